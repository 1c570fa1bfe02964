package images

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

// ErrCancelled is returned by devices and pickers when the user backs out
var ErrCancelled = errors.New("cancelled by user")

// Allocator is the part of the temp asset manager a source may use
type Allocator interface {
	Allocate(origin models.Origin) (models.TempAssetRecord, error)
	Release(record models.TempAssetRecord) error
}

// Source produces an ImageHandle from camera capture or gallery selection.
// Failures are *models.Error values.
type Source interface {
	Origin() models.Origin
	Acquire(ctx context.Context, assets Allocator) (models.ImageHandle, error)
}
