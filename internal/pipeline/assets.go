package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

// AssetManager is the temp asset namespace shared by every request
type AssetManager interface {
	Allocate(origin models.Origin) (models.TempAssetRecord, error)
	Release(record models.TempAssetRecord) error
	ReleaseAll() error
	ActiveCount() int
}

// requestAssets scopes allocations to one request generation. Once closed it
// refuses new allocations, so a superseded worker cannot leak files.
type requestAssets struct {
	manager    AssetManager
	generation uint64

	mu      sync.Mutex
	records map[string]models.TempAssetRecord
	closed  bool
}

func newRequestAssets(manager AssetManager, generation uint64) *requestAssets {
	return &requestAssets{
		manager:    manager,
		generation: generation,
		records:    make(map[string]models.TempAssetRecord),
	}
}

func (a *requestAssets) Allocate(origin models.Origin) (models.TempAssetRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return models.TempAssetRecord{}, fmt.Errorf("request %d is no longer active", a.generation)
	}
	record, err := a.manager.Allocate(origin)
	if err != nil {
		return models.TempAssetRecord{}, err
	}
	a.records[record.ID] = record
	return record, nil
}

func (a *requestAssets) Release(record models.TempAssetRecord) error {
	a.mu.Lock()
	delete(a.records, record.ID)
	a.mu.Unlock()
	return a.manager.Release(record)
}

// close releases everything the request allocated; safe to call repeatedly
func (a *requestAssets) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, record := range a.records {
		if err := a.manager.Release(record); err != nil {
			slog.Error("Failed to release temp asset", "generation", a.generation, "path", record.Path, "err", err)
		}
		delete(a.records, id)
	}
}

func (a *requestAssets) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}
