package session

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/sdomino/scribble"
)

// Keys persisted by the provider
const (
	KeyUsername   = "username"
	KeyToken      = "token"
	KeyAdminToken = "adminToken"
	// KeyLegacyAdmin was written by older clients. It is cleared and never read.
	KeyLegacyAdmin = "isAdmin"
)

// Keys lists every key the provider owns
var Keys = []string{KeyUsername, KeyToken, KeyAdminToken, KeyLegacyAdmin}

// Storage is the persistent key-value store that outlives a single run
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStorage keeps values in a map
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns an empty storage, optionally seeded with values
func NewMemoryStorage(seed map[string]string) *MemoryStorage {
	m := &MemoryStorage{values: make(map[string]string, len(seed))}
	for k, v := range seed {
		m.values[k] = v
	}
	return m
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

const fileCollection = "session"

type fileEntry struct {
	Value string `json:"value"`
}

// FileStorage keeps one JSON document per key in a directory
type FileStorage struct {
	conn *scribble.Driver
}

// NewFileStorage opens (or creates) a storage directory
func NewFileStorage(dir string) (*FileStorage, error) {
	conn, err := scribble.New(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open session storage: %w", err)
	}
	return &FileStorage{conn: conn}, nil
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("invalid session key %q", key)
	}
	return nil
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	var entry fileEntry
	if err := f.conn.Read(fileCollection, key, &entry); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

func (f *FileStorage) Set(key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return f.conn.Write(fileCollection, key, fileEntry{Value: value})
}

func (f *FileStorage) Remove(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	// scribble reports a missing document with a plain formatted error
	err := f.conn.Delete(fileCollection, key)
	if err != nil && (errors.Is(err, fs.ErrNotExist) || strings.Contains(err.Error(), "Unable to find")) {
		return nil
	}
	return err
}
