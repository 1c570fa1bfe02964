package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

const (
	DefaultMaxDimension       = 4096
	DefaultMaxPixels    int64 = 64 * 1024 * 1024
	// hard cap on declared width/height regardless of configuration
	maxDeclaredDimension = 32768
)

// Formats accepted by default. Names match image.RegisterFormat.
var DefaultFormats = []string{"jpeg", "png", "gif", "webp", "bmp", "tiff"}

// Normalizer decodes acquired images into canonical NRGBA bitmaps
type Normalizer struct {
	maxDimension int
	maxPixels    int64
	formats      map[string]bool
}

func NewNormalizer(maxDimension int, maxPixels int64, formats ...string) *Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	allowed := make(map[string]bool, len(formats))
	for _, f := range formats {
		allowed[strings.ToLower(f)] = true
	}
	return &Normalizer{
		maxDimension: maxDimension,
		maxPixels:    maxPixels,
		formats:      allowed,
	}
}

// Decode reads the file behind handle and decodes it
func (n *Normalizer) Decode(ctx context.Context, handle models.ImageHandle) (*models.NormalizedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := LocalPath(handle.URI)
	if err != nil {
		return nil, models.NewError(models.UnreadableImage, "image handle is not a local file", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.UnreadableImage, "failed to read image", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return n.DecodeBytes(data)
}

// DecodeBytes decodes an encoded image. Corrupt or truncated input is UnreadableImage.
func (n *Normalizer) DecodeBytes(data []byte) (img *models.NormalizedImage, err error) {
	if len(data) == 0 {
		return nil, models.Errorf(models.UnreadableImage, "image stream is empty")
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Image decoder panicked", "panic", r)
			img = nil
			err = models.Errorf(models.UnreadableImage, "image decoder failed: %v", r)
		}
	}()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
				return nil, models.Errorf(models.UnsupportedFormat, "image format %s is not supported", sniffed)
			}
		}
		return nil, models.NewError(models.UnreadableImage, "failed to read image header", err)
	}
	if !n.formats[format] {
		return nil, models.Errorf(models.UnsupportedFormat, "image format %s is not supported", format)
	}
	if err := n.validateBounds(cfg.Width, cfg.Height); err != nil {
		return nil, models.NewError(models.UnsupportedFormat, "image size rejected", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewError(models.UnreadableImage, "failed to decode image", err)
	}
	b := decoded.Bounds()
	if b.Dx() != cfg.Width || b.Dy() != cfg.Height {
		return nil, models.Errorf(models.UnreadableImage, "decoded size %dx%d does not match header %dx%d", b.Dx(), b.Dy(), cfg.Width, cfg.Height)
	}

	pixels := toNRGBA(decoded)
	width, height := fitWithin(cfg.Width, cfg.Height, n.maxDimension)
	if width != cfg.Width || height != cfg.Height {
		scaled := image.NewNRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), pixels, pixels.Bounds(), xdraw.Src, nil)
		pixels = scaled
		slog.Debug("Downscaled image", "from_width", cfg.Width, "from_height", cfg.Height, "width", width, "height", height)
	}

	return &models.NormalizedImage{
		Width:        width,
		Height:       height,
		SourceWidth:  cfg.Width,
		SourceHeight: cfg.Height,
		Format:       format,
		Pixels:       pixels,
	}, nil
}

func (n *Normalizer) validateBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > maxDeclaredDimension || height > maxDeclaredDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	pixels := int64(width) * int64(height)
	if pixels > n.maxPixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", pixels, n.maxPixels)
	}
	return nil
}

// EncodePNG serializes the normalized pixels for backends that need an encoded payload
func EncodePNG(img *models.NormalizedImage) ([]byte, error) {
	if img == nil || img.Pixels == nil {
		return nil, fmt.Errorf("no pixels to encode")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.Pixels); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// LocalPath accepts a bare path or a file:// URI
func LocalPath(uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("empty image uri")
	}
	if !strings.Contains(uri, "://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid image uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

func fitWithin(width, height, limit int) (int, int) {
	if width <= limit && height <= limit {
		return width, height
	}
	if width >= height {
		h := height * limit / width
		if h < 1 {
			h = 1
		}
		return limit, h
	}
	w := width * limit / height
	if w < 1 {
		w = 1
	}
	return w, limit
}
