package cache

import (
	"database/sql"
	"sort"
	"strings"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// CacheProvider is an interface for a cache provider.
// It stores and retrieves []byte values, which represent HTTP responses.
// Keys are prefixed with the name of the versioned store they belong
// to, so prefix operations are what carry the store lifecycle: a
// version purge removes every key of the superseded store in one call.
//
// Implementations must be thread-safe. Individual operations are
// atomic, but a read-then-write pair is not: concurrent writers for
// the same key interleave and the last write wins.
type CacheProvider interface {
	// Get returns the stored bytes for the given key, if they exist.
	// The boolean indicates whether the key was present.
	Get(key string) ([]byte, bool, error)
	// Put stores the given bytes under the given key,
	// replacing any previous value.
	Put(key string, bytes []byte) error
	// Has checks if the specified key exists in the cache.
	Has(key string) (bool, error)
	// Keys returns all keys with the given prefix, sorted.
	Keys(prefix string) ([]string, error)
	// PurgePrefix removes every entry whose key has the given prefix.
	PurgePrefix(prefix string) error
}

// MemCache is an in-memory cache provider.
// Use it for tests and for workers that may start cold on every run.
type MemCache struct {
	mutex   *sync.RWMutex
	entries map[string][]byte
}

func NewMemCache() MemCache {
	return MemCache{
		mutex:   &sync.RWMutex{},
		entries: make(map[string][]byte),
	}
}

func (m MemCache) Get(key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	bytes, ok := m.entries[key]
	return bytes, ok, nil
}

func (m MemCache) Put(key string, bytes []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries[key] = bytes
	return nil
}

func (m MemCache) Has(key string) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

func (m MemCache) Keys(prefix string) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	keys := make([]string, 0)
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m MemCache) PurgePrefix(prefix string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// SQLiteCache is a cache provider backed by a SQLite database,
// so cached responses survive worker restarts.
type SQLiteCache struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteCache(filename string) SQLiteCache {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		bytes BLOB
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		panic(err)
	}
	return SQLiteCache{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s SQLiteCache) Get(key string) ([]byte, bool, error) {
	var bytes []byte
	err := s.db.QueryRow("SELECT bytes FROM cache WHERE key = ?", key).Scan(&bytes)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bytes, true, nil
}

func (s SQLiteCache) Put(key string, bytes []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO cache (key, bytes) VALUES (?, ?)", key, bytes)
	return err
}

func (s SQLiteCache) Has(key string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM cache WHERE key = ?", key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s SQLiteCache) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM cache WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		likePrefix(prefix),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s SQLiteCache) PurgePrefix(prefix string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec(`DELETE FROM cache WHERE key LIKE ? ESCAPE '\'`, likePrefix(prefix))
	return err
}

// likePrefix escapes LIKE wildcards so a prefix is matched literally.
func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
	return escaped + "%"
}
