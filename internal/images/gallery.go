package images

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

// Picked is a gallery selection. Either Path references an existing file or
// Data carries the bytes, which are staged into a temp asset.
type Picked struct {
	Path     string
	Data     []byte
	Name     string
	MimeType string
}

// Picker lets the user choose an image
type Picker interface {
	Pick(ctx context.Context) (Picked, error)
}

// Gallery acquires images chosen through a Picker
type Gallery struct {
	Picker Picker
}

func NewGallery(picker Picker) *Gallery {
	return &Gallery{Picker: picker}
}

func (g *Gallery) Origin() models.Origin {
	return models.OriginGallery
}

func (g *Gallery) Acquire(ctx context.Context, assets Allocator) (models.ImageHandle, error) {
	return g.PickFromGallery(ctx, assets)
}

func (g *Gallery) PickFromGallery(ctx context.Context, assets Allocator) (models.ImageHandle, error) {
	if g.Picker == nil {
		return models.ImageHandle{}, models.Errorf(models.UserCancelled, "no picker available")
	}

	picked, err := g.Picker.Pick(ctx)
	switch {
	case errors.Is(err, ErrCancelled):
		return models.ImageHandle{}, models.Errorf(models.UserCancelled, "selection cancelled")
	case ctx.Err() != nil:
		return models.ImageHandle{}, ctx.Err()
	case err != nil:
		var typed *models.Error
		if errors.As(err, &typed) {
			return models.ImageHandle{}, err
		}
		return models.ImageHandle{}, models.NewError(models.UnreadableImage, "failed to read selected image", err)
	}
	if picked.Path == "" && len(picked.Data) == 0 {
		return models.ImageHandle{}, models.Errorf(models.UserCancelled, "nothing was selected")
	}

	mimeType := detectMimeType(picked)
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return models.ImageHandle{}, models.Errorf(models.UnsupportedFormat, "selected media is %s, not an image", mimeType)
	}

	handle := models.ImageHandle{
		URI:       picked.Path,
		Origin:    models.OriginGallery,
		MimeType:  mimeType,
		CreatedAt: time.Now(),
	}
	if len(picked.Data) == 0 {
		slog.Info("Picked image", "path", picked.Path, "mime_type", mimeType)
		return handle, nil
	}

	record, err := assets.Allocate(models.OriginGallery)
	if err != nil {
		return models.ImageHandle{}, models.NewError(models.UnreadableImage, "failed to stage selected image", err)
	}
	if err := os.WriteFile(record.Path, picked.Data, 0600); err != nil {
		if rerr := assets.Release(record); rerr != nil {
			slog.Error("Failed to release staged image", "path", record.Path, "err", rerr)
		}
		return models.ImageHandle{}, models.NewError(models.UnreadableImage, "failed to stage selected image", err)
	}

	handle.URI = record.Path
	slog.Info("Staged picked image", "name", picked.Name, "path", record.Path, "bytes", len(picked.Data), "mime_type", mimeType)
	return handle, nil
}

func detectMimeType(p Picked) string {
	if p.MimeType != "" {
		mt, _, err := mime.ParseMediaType(p.MimeType)
		if err != nil {
			mt = p.MimeType
		}
		// servers and browsers send octet-stream when they do not know
		if mt != "application/octet-stream" {
			return mt
		}
	}
	if len(p.Data) > 0 {
		mt := http.DetectContentType(p.Data)
		if mt == "application/octet-stream" {
			return ""
		}
		mt, _, _ = mime.ParseMediaType(mt)
		return mt
	}
	name := p.Name
	if name == "" {
		name = p.Path
	}
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); mt != "" {
		mt, _, _ = mime.ParseMediaType(mt)
		return mt
	}
	return ""
}
