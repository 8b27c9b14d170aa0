package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestCache creates a temporary persistent backend for testing
func setupTestCache(t *testing.T, compression bool) (*PersistentBackend, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_cache.db")
	backupPath := filepath.Join(tmpDir, "backups")

	pb, err := NewPersistentBackend(dbPath, backupPath, compression)
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}
	t.Cleanup(func() { pb.Close() })

	return pb, tmpDir
}

func TestNewPersistentBackend(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "cache.db")
	backupPath := filepath.Join(tmpDir, "backups")

	pb, err := NewPersistentBackend(dbPath, backupPath, true)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer pb.Close()

	if pb.db == nil {
		t.Error("Expected database to be initialized")
	}
	if !pb.compressionEnabled {
		t.Error("Expected compression to be enabled")
	}
	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Expected cache directory to be created")
	}
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		t.Error("Expected backup directory to be created")
	}
}

func TestPersistentSetAndGet(t *testing.T) {
	for _, compression := range []bool{false, true} {
		pb, _ := setupTestCache(t, compression)

		value := []byte(`[{"id":"b"},{"id":"a"}]`)
		if err := pb.Set("search:x:y", value, time.Hour); err != nil {
			t.Fatalf("Failed to set value: %v", err)
		}

		retrieved, err := pb.Get("search:x:y")
		if err != nil {
			t.Fatalf("Expected to find the key (compression=%v): %v", compression, err)
		}
		if string(retrieved) != string(value) {
			t.Errorf("Expected %q, got %q", value, retrieved)
		}
	}
}

func TestPersistentGetMissing(t *testing.T) {
	pb, _ := setupTestCache(t, false)

	if _, err := pb.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPersistentExpiry(t *testing.T) {
	pb, _ := setupTestCache(t, false)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	pb.now = func() time.Time { return now }

	if err := pb.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, err := pb.Get("k"); err != nil {
		t.Errorf("Expected entry before expiry, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := pb.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}

	// the expired read also dropped it from disk
	if _, err := pb.readEntry("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected expired entry removed from disk, got %v", err)
	}
}

func TestPersistentPurgeExpired(t *testing.T) {
	pb, _ := setupTestCache(t, true)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	pb.now = func() time.Time { return now }

	pb.Set("short:1", []byte("a"), time.Minute)
	pb.Set("short:2", []byte("b"), time.Minute)
	pb.Set("long:1", []byte("c"), 24*time.Hour)

	now = now.Add(time.Hour)

	purged, err := pb.PurgeExpired()
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 2 {
		t.Errorf("Expected 2 purged entries, got %d", purged)
	}
	if pb.Len() != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", pb.Len())
	}
}

func TestPersistentDeleteByPrefix(t *testing.T) {
	pb, _ := setupTestCache(t, false)

	pb.Set("search:a:b", []byte("1"), time.Hour)
	pb.Set("search:c:d", []byte("2"), time.Hour)
	pb.Set("credits:x", []byte("3"), time.Hour)
	pb.Set("searching", []byte("4"), time.Hour)

	n, err := pb.DeleteByPrefix("search:")
	if err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 deletions, got %d", n)
	}
	if _, err := pb.Get("search:a:b"); !errors.Is(err, ErrNotFound) {
		t.Error("Expected search:a:b to be gone")
	}
	if _, err := pb.Get("searching"); err != nil {
		t.Error("Expected searching to survive")
	}
	if _, err := pb.Get("credits:x"); err != nil {
		t.Error("Expected credits:x to survive")
	}
}

func TestPersistentDelete(t *testing.T) {
	pb, _ := setupTestCache(t, false)

	pb.Set("k", []byte("v"), time.Hour)
	if err := pb.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := pb.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Error("Expected key to be deleted")
	}
}

func TestPersistentReloadFromDisk(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cache.db")

	pb, err := NewPersistentBackend(dbPath, "", true)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	pb.Set("kept", []byte("value"), time.Hour)
	pb.Set("stale", []byte("value"), time.Nanosecond)
	pb.Close()

	time.Sleep(time.Millisecond)

	reopened, err := NewPersistentBackend(dbPath, "", true)
	if err != nil {
		t.Fatalf("Failed to reopen cache: %v", err)
	}
	defer reopened.Close()

	if reopened.Len() != 1 {
		t.Errorf("Expected only the unexpired entry mirrored, got %d", reopened.Len())
	}
	got, err := reopened.Get("kept")
	if err != nil || string(got) != "value" {
		t.Errorf("Expected persisted value, got %q (%v)", got, err)
	}
}

func TestPersistentClosed(t *testing.T) {
	pb, _ := setupTestCache(t, false)
	pb.Close()

	if _, err := pb.Get("k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := pb.Set("k", []byte("v"), time.Minute); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestPersistentBackup(t *testing.T) {
	pb, _ := setupTestCache(t, false)
	pb.Set("k", []byte("v"), time.Hour)

	path, err := pb.Backup()
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected backup file at %s: %v", path, err)
	}

	backups, err := pb.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("Expected 1 backup, got %d", len(backups))
	}

	// the live database is untouched
	if _, err := pb.Get("k"); err != nil {
		t.Errorf("Expected key after backup: %v", err)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	in := []byte(`{"results":[{"title":"Come Together"}]}`)
	compressed, err := compressString(in)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	out, err := decompressString(compressed)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if string(out) != string(in) {
		t.Errorf("Expected %q, got %q", in, out)
	}

	if _, err := decompressString("not base64!"); err == nil {
		t.Error("Expected error for invalid input")
	}
}
