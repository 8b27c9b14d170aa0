package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"music-search-api-go/logcolors"
)

const bucketName = "cache"

// PersistentBackend wraps BoltDB with an in-memory mirror for fast reads
type PersistentBackend struct {
	mu                 sync.RWMutex // guards db against Close
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	backupPath         string
	compressionEnabled bool
	now                func() time.Time
}

// persistentEntry is the on-disk record. Value is base64 gzip when compressed.
type persistentEntry struct {
	Value      string `json:"value"`
	Compressed bool   `json:"compressed,omitempty"`
	ExpiresAt  int64  `json:"expiresAt,omitempty"` // unix nanos, zero never expires
}

func (e persistentEntry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixNano() >= e.ExpiresAt
}

// NewPersistentBackend opens or creates the database at dbPath
func NewPersistentBackend(dbPath, backupPath string, compressionEnabled bool) (*PersistentBackend, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if backupPath != "" {
		if err := os.MkdirAll(backupPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing database file at: %s (size: %d bytes)", logcolors.LogCacheInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating new database file at: %s", logcolors.LogCacheInit, dbPath)
	}

	db, err := openBolt(dbPath)
	if err != nil {
		return nil, err
	}

	pb := &PersistentBackend{
		db:                 db,
		dbPath:             dbPath,
		backupPath:         backupPath,
		compressionEnabled: compressionEnabled,
		now:                time.Now,
	}

	if err := pb.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload cache to memory: %v", logcolors.LogCache, err)
	}

	log.Infof("%s Persistent cache initialized at %s (compression: %v)", logcolors.LogCache, dbPath, compressionEnabled)
	return pb, nil
}

func openBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return db, nil
}

// loadToMemory mirrors every unexpired entry from disk
func (pb *PersistentBackend) loadToMemory() error {
	now := pb.now()
	count := 0
	err := pb.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry persistentEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Failed to unmarshal cache entry for key %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			if entry.expired(now) {
				return nil
			}
			pb.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d entries from disk to memory", logcolors.LogCache, count)
	return nil
}

// Get checks memory first, then disk. Expired entries are removed lazily.
func (pb *PersistentBackend) Get(key string) ([]byte, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	if pb.db == nil {
		return nil, ErrClosed
	}

	entry, ok := pb.loadEntry(key)
	if !ok {
		var err error
		entry, err = pb.readEntry(key)
		if err != nil {
			return nil, err
		}
		pb.memCache.Store(key, entry)
	}

	if entry.expired(pb.now()) {
		pb.memCache.Delete(key)
		pb.dropExpired(key)
		return nil, ErrNotFound
	}

	return decodeValue(entry)
}

func (pb *PersistentBackend) loadEntry(key string) (persistentEntry, bool) {
	v, ok := pb.memCache.Load(key)
	if !ok {
		return persistentEntry{}, false
	}
	return v.(persistentEntry), true
}

func (pb *PersistentBackend) readEntry(key string) (persistentEntry, error) {
	var entry persistentEntry
	err := pb.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &entry)
	})
	return entry, err
}

func decodeValue(entry persistentEntry) ([]byte, error) {
	if !entry.Compressed {
		return []byte(entry.Value), nil
	}
	value, err := decompressString(entry.Value)
	if err != nil {
		return nil, fmt.Errorf("error decompressing cache value: %w", err)
	}
	return value, nil
}

// Set stores value in memory and on disk
func (pb *PersistentBackend) Set(key string, value []byte, ttl time.Duration) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	if pb.db == nil {
		return ErrClosed
	}

	entry := persistentEntry{Value: string(value)}
	if pb.compressionEnabled {
		compressed, err := compressString(value)
		if err != nil {
			return fmt.Errorf("error compressing cache value for key %s: %w", key, err)
		}
		entry.Value = compressed
		entry.Compressed = true
	}
	if ttl > 0 {
		entry.ExpiresAt = pb.now().Add(ttl).UnixNano()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	err = pb.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return err
	}

	pb.memCache.Store(key, entry)
	return nil
}

// Delete removes a key from memory and disk
func (pb *PersistentBackend) Delete(key string) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	if pb.db == nil {
		return ErrClosed
	}

	pb.memCache.Delete(key)
	return pb.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
}

// dropExpired deletes key from disk unless it was rewritten meanwhile.
// Callers hold pb.mu.
func (pb *PersistentBackend) dropExpired(key string) {
	now := pb.now()
	err := pb.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		var entry persistentEntry
		if err := json.Unmarshal(data, &entry); err == nil && !entry.expired(now) {
			// rewritten since the expired read
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		log.Debugf("%s Failed to drop expired key %s: %v", logcolors.LogCache, key, err)
	}
}

// DeleteByPrefix removes every key with the given prefix
func (pb *PersistentBackend) DeleteByPrefix(prefix string) (int, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	if pb.db == nil {
		return 0, ErrClosed
	}

	var deleted []string
	err := pb.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		p := []byte(prefix)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted = append(deleted, string(k))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, k := range deleted {
		pb.memCache.Delete(k)
	}
	return len(deleted), nil
}

// PurgeExpired deletes every expired entry from disk and memory
func (pb *PersistentBackend) PurgeExpired() (int, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	if pb.db == nil {
		return 0, ErrClosed
	}

	now := pb.now()
	var purged []string
	err := pb.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry persistentEntry
			if err := json.Unmarshal(v, &entry); err != nil || entry.expired(now) {
				purged = append(purged, string(k))
			}
		}
		for _, k := range purged {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, k := range purged {
		pb.memCache.Delete(k)
	}
	return len(purged), nil
}

// Len returns the number of mirrored entries, including expired ones not yet swept
func (pb *PersistentBackend) Len() int {
	n := 0
	pb.memCache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Backup copies the database file into the backup directory and returns its path
func (pb *PersistentBackend) Backup() (string, error) {
	if pb.backupPath == "" {
		return "", fmt.Errorf("no backup directory configured")
	}

	pb.mu.RLock()
	defer pb.mu.RUnlock()
	if pb.db == nil {
		return "", ErrClosed
	}

	timestamp := pb.now().Format("2006-01-02_15-04-05.000")
	backupFilePath := filepath.Join(pb.backupPath, fmt.Sprintf("cache_backup_%s.db", timestamp))

	log.Infof("%s Creating backup at: %s", logcolors.LogCacheBackup, backupFilePath)

	// bolt copies a consistent snapshot inside a read transaction
	err := pb.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupFilePath, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	log.Infof("%s Backup created successfully: %s", logcolors.LogCacheBackup, backupFilePath)
	return backupFilePath, nil
}

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBackups returns every backup file in the backup directory
func (pb *PersistentBackend) ListBackups() ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(pb.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warnf("%s Failed to get info for %s: %v", logcolors.LogCacheBackup, entry.Name(), err)
			continue
		}
		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	return backups, nil
}

// Close closes the database connection
func (pb *PersistentBackend) Close() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.db == nil {
		return nil
	}
	err := pb.db.Close()
	pb.db = nil
	return err
}
