package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

// Manager owns the temporary capture directory. No other component writes there.
type Manager struct {
	dir     string
	records map[string]models.TempAssetRecord
	mu      sync.RWMutex
	counter atomic.Uint64
	now     func() time.Time
}

// New creates the directory (0700) if needed and returns a manager scoped to it
func New(dir string) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("temp asset directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create temp asset directory: %w", err)
	}
	// MkdirAll leaves existing directories alone
	if err := os.Chmod(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to restrict temp asset directory: %w", err)
	}
	return &Manager{
		dir:     dir,
		records: make(map[string]models.TempAssetRecord),
		now:     time.Now,
	}, nil
}

func (m *Manager) Dir() string {
	return m.dir
}

// Allocate creates an empty, uniquely named file readable only by the owner
func (m *Manager) Allocate(origin models.Origin) (models.TempAssetRecord, error) {
	created := m.now()
	seq := m.counter.Add(1)
	id := uuid.NewString()
	name := fmt.Sprintf("%s_%s_%d_%s.jpg", origin, created.Format("20060102_150405"), seq, id[:8])
	path := filepath.Join(m.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return models.TempAssetRecord{}, fmt.Errorf("failed to allocate temp asset: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return models.TempAssetRecord{}, fmt.Errorf("failed to allocate temp asset: %w", err)
	}

	record := models.TempAssetRecord{
		ID:        id,
		Path:      path,
		Origin:    origin,
		CreatedAt: created,
	}

	m.mu.Lock()
	m.records[id] = record
	m.mu.Unlock()

	slog.Debug("Allocated temp asset", "id", id, "path", path)
	return record, nil
}

// Release deletes the record's file. Unknown records and missing files are not errors.
func (m *Manager) Release(record models.TempAssetRecord) error {
	m.mu.Lock()
	delete(m.records, record.ID)
	m.mu.Unlock()

	return removeFile(record.Path)
}

// ReleaseAll deletes every outstanding record and returns the first failure
func (m *Manager) ReleaseAll() error {
	m.mu.Lock()
	records := m.records
	m.records = make(map[string]models.TempAssetRecord)
	m.mu.Unlock()

	var errs []error
	for _, r := range records {
		if err := removeFile(r.Path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(records) > 0 {
		slog.Debug("Released temp assets", "count", len(records))
	}
	return errors.Join(errs...)
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func removeFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to release temp asset %s: %w", path, err)
	}
	return nil
}
