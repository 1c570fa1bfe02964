package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"
)

// MaxDownloadBytes caps URL and upload payloads
const MaxDownloadBytes = 10 * 1024 * 1024

// FilePicker selects an existing file on disk
type FilePicker struct {
	Path string
}

func (p FilePicker) Pick(ctx context.Context) (Picked, error) {
	info, err := os.Stat(p.Path)
	if err != nil {
		return Picked{}, fmt.Errorf("failed to open %s: %w", p.Path, err)
	}
	if info.IsDir() {
		return Picked{}, fmt.Errorf("%s is a directory", p.Path)
	}
	return Picked{Path: p.Path, Name: info.Name()}, nil
}

// BytesPicker hands over an image already in memory, e.g. an HTTP upload
type BytesPicker struct {
	Data     []byte
	Name     string
	MimeType string
}

func (p BytesPicker) Pick(ctx context.Context) (Picked, error) {
	if len(p.Data) == 0 {
		return Picked{}, ErrCancelled
	}
	return Picked{Data: p.Data, Name: p.Name, MimeType: p.MimeType}, nil
}

// PickerFunc adapts a function to Picker
type PickerFunc func(ctx context.Context) (Picked, error)

func (f PickerFunc) Pick(ctx context.Context) (Picked, error) {
	return f(ctx)
}

// URLPicker downloads a remote image
type URLPicker struct {
	URL        string
	HTTPClient *http.Client
}

// NewURLPicker creates a picker with a 30 second download timeout
func NewURLPicker(url string) *URLPicker {
	return &URLPicker{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *URLPicker) Pick(ctx context.Context) (Picked, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return Picked{}, fmt.Errorf("failed to create download request: %w", err)
	}

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Picked{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Picked{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return Picked{}, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxDownloadBytes {
		return Picked{}, fmt.Errorf("image too large (max %d bytes)", MaxDownloadBytes)
	}

	name := path.Base(req.URL.Path)
	if name == "." || name == "/" {
		name = "image.jpg"
	}

	slog.Info("Downloaded image", "url", p.URL, "bytes", len(data))
	return Picked{
		Data:     data,
		Name:     name,
		MimeType: resp.Header.Get("Content-Type"),
	}, nil
}
