package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

// PermissionChecker reports whether the camera may be used
type PermissionChecker interface {
	CameraGranted(ctx context.Context) bool
}

// StaticPermission is a fixed grant decision
type StaticPermission bool

func (p StaticPermission) CameraGranted(context.Context) bool {
	return bool(p)
}

// CaptureDevice writes one photo to path. It returns false when the user backed out.
type CaptureDevice interface {
	Capture(ctx context.Context, path string) (bool, error)
}

// Camera acquires images from a capture device into allocated temp assets
type Camera struct {
	Device      CaptureDevice
	Permissions PermissionChecker
}

func NewCamera(device CaptureDevice, permissions PermissionChecker) *Camera {
	return &Camera{Device: device, Permissions: permissions}
}

func (c *Camera) Origin() models.Origin {
	return models.OriginCamera
}

func (c *Camera) Acquire(ctx context.Context, assets Allocator) (models.ImageHandle, error) {
	return c.Capture(ctx, assets)
}

// Capture fails fast with PermissionDenied before any temp file is allocated
func (c *Camera) Capture(ctx context.Context, assets Allocator) (models.ImageHandle, error) {
	if c.Permissions == nil || !c.Permissions.CameraGranted(ctx) {
		return models.ImageHandle{}, models.Errorf(models.PermissionDenied, "camera permission has not been granted")
	}
	if c.Device == nil {
		return models.ImageHandle{}, models.Errorf(models.CaptureDeviceError, "no capture device configured")
	}

	record, err := assets.Allocate(models.OriginCamera)
	if err != nil {
		return models.ImageHandle{}, models.NewError(models.CaptureDeviceError, "failed to allocate capture target", err)
	}

	fail := func(e error) (models.ImageHandle, error) {
		if rerr := assets.Release(record); rerr != nil {
			slog.Error("Failed to release capture target", "path", record.Path, "err", rerr)
		}
		return models.ImageHandle{}, e
	}

	taken, err := c.Device.Capture(ctx, record.Path)
	switch {
	case errors.Is(err, ErrCancelled):
		return fail(models.Errorf(models.UserCancelled, "capture cancelled"))
	case ctx.Err() != nil:
		return fail(ctx.Err())
	case err != nil:
		return fail(models.NewError(models.CaptureDeviceError, "capture failed", err))
	case !taken:
		return fail(models.Errorf(models.UserCancelled, "no photo was taken"))
	}

	info, err := os.Stat(record.Path)
	if err != nil || info.Size() == 0 {
		return fail(models.Errorf(models.CaptureDeviceError, "capture produced no image"))
	}

	slog.Info("Captured photo", "path", record.Path, "bytes", info.Size())
	return models.ImageHandle{
		URI:       record.Path,
		Origin:    models.OriginCamera,
		MimeType:  "image/jpeg",
		CreatedAt: time.Now(),
	}, nil
}

// CommandCamera runs an external capture program such as libcamera-still or
// fswebcam. The literal {output} in Args is replaced by the target path.
type CommandCamera struct {
	Command string
	Args    []string
}

// NewCommandCamera splits a command line on whitespace
func NewCommandCamera(commandLine string) (*CommandCamera, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("camera command is empty")
	}
	args := fields[1:]
	hasOutput := false
	for _, a := range args {
		if strings.Contains(a, "{output}") {
			hasOutput = true
		}
	}
	if !hasOutput {
		args = append(args, "{output}")
	}
	return &CommandCamera{Command: fields[0], Args: args}, nil
}

func (c *CommandCamera) Capture(ctx context.Context, path string) (bool, error) {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strings.ReplaceAll(a, "{output}", path)
	}

	cmd := exec.CommandContext(ctx, c.Command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %s", c.Command, err, strings.TrimSpace(string(out)))
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat capture output: %w", err)
	}
	// programs that exit cleanly without writing anything were dismissed
	return info.Size() > 0, nil
}
