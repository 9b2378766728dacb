// Package cache keeps the last value successfully fetched for each key so a
// failing vendor can be answered with the most recent real data.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned when no value was stored under the key.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("cache: closed")
)

var bucketValues = []byte("values")

// Store is a last-known-good value store.
type Store interface {
	Put(key string, v any) error
	// Get decodes the value stored under key into v and returns when it was stored.
	Get(key string, v any) (time.Time, error)
	Close() error
}

// BoltStore persists values in a bbolt file as zstd-compressed JSON, each
// prefixed with its store time.
type BoltStore struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

func Open(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketValues)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, enc: enc, dec: dec, now: time.Now}, nil
}

func (s *BoltStore) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	buf := make([]byte, 8, 8+len(data))
	binary.BigEndian.PutUint64(buf, uint64(s.now().UnixNano()))
	buf = s.enc.EncodeAll(data, buf)

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketValues).Put([]byte(key), buf)
	})
}

func (s *BoltStore) Get(key string, v any) (time.Time, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucketValues).Get([]byte(key))
		if val == nil {
			return ErrNotFound
		}
		raw = append([]byte(nil), val...)
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if len(raw) < 8 {
		return time.Time{}, fmt.Errorf("cache: corrupt entry %s", key)
	}
	storedAt := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
	data, err := s.dec.DecodeAll(raw[8:], nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("cache: decompress %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return time.Time{}, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return storedAt, nil
}

func (s *BoltStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// MemoryStore keeps values in process memory. It is used when no cache path is
// configured.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]memoryItem
	closed bool
	now    func() time.Time
}

type memoryItem struct {
	data     []byte
	storedAt time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.items[key] = memoryItem{data: data, storedAt: m.now()}
	return nil
}

func (m *MemoryStore) Get(key string, v any) (time.Time, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return time.Time{}, ErrClosed
	}
	if !ok {
		return time.Time{}, ErrNotFound
	}
	if err := json.Unmarshal(item.data, v); err != nil {
		return time.Time{}, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return item.storedAt, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
