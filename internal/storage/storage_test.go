package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

func TestNewCreatesPrivateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	m, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if m.Dir() != dir {
		t.Errorf("Expected dir %s, got %s", dir, m.Dir())
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("Expected mode 0700, got %o", perm)
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("Expected error for empty dir")
	}
}

func TestAllocate(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	record, err := m.Allocate(models.OriginCamera)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if record.Origin != models.OriginCamera {
		t.Errorf("Expected origin camera, got %s", record.Origin)
	}
	if filepath.Dir(record.Path) != m.Dir() {
		t.Errorf("Expected file inside %s, got %s", m.Dir(), record.Path)
	}
	info, err := os.Stat(record.Path)
	if err != nil {
		t.Fatalf("allocated file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected mode 0600, got %o", perm)
	}
	if m.ActiveCount() != 1 {
		t.Errorf("Expected 1 active record, got %d", m.ActiveCount())
	}
}

func TestAllocateUniqueUnderRapidCalls(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	paths := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := m.Allocate(models.OriginCamera)
			if err != nil {
				t.Errorf("Allocate failed: %v", err)
				return
			}
			paths <- record.Path
		}()
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]bool)
	for p := range paths {
		if seen[p] {
			t.Errorf("Duplicate path %s", p)
		}
		seen[p] = true
	}
	if m.ActiveCount() != n {
		t.Errorf("Expected %d active records, got %d", n, m.ActiveCount())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	record, err := m.Allocate(models.OriginGallery)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if err := m.Release(record); err != nil {
		t.Errorf("first Release returned error: %v", err)
	}
	if err := m.Release(record); err != nil {
		t.Errorf("second Release returned error: %v", err)
	}
	if _, err := os.Stat(record.Path); !os.IsNotExist(err) {
		t.Errorf("Expected file to be deleted, stat err: %v", err)
	}
	if m.ActiveCount() != 0 {
		t.Errorf("Expected 0 active records, got %d", m.ActiveCount())
	}
}

func TestReleaseMissingFile(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	record, err := m.Allocate(models.OriginCamera)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := os.Remove(record.Path); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := m.Release(record); err != nil {
		t.Errorf("Release of missing file returned error: %v", err)
	}
}

func TestReleaseAll(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var records []models.TempAssetRecord
	for i := 0; i < 3; i++ {
		r, err := m.Allocate(models.OriginCamera)
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		records = append(records, r)
	}

	if err := m.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll failed: %v", err)
	}
	if m.ActiveCount() != 0 {
		t.Errorf("Expected 0 active records, got %d", m.ActiveCount())
	}
	for _, r := range records {
		if _, err := os.Stat(r.Path); !os.IsNotExist(err) {
			t.Errorf("Expected %s deleted", r.Path)
		}
	}
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty dir, found %d entries", len(entries))
	}
}
