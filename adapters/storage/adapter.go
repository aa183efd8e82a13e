// Package storage provides the key-value persistence behind the price table
// and the current bill. Supports multiple backends: file, memory, Redis, PostgreSQL.
package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile     Backend = "file"
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

// KV is the key-value interface every backend implements. Implementations
// must be safe for concurrent use.
type KV interface {
	// Get returns the value for key and whether it exists
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key; a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists every key in sorted order
	Keys(ctx context.Context) ([]string, error)

	// Close releases backend resources
	Close() error
}

// Open creates the backend selected by cfg.Backend
func Open(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch Backend(cfg.Backend) {
	case BackendFile, "":
		return NewFileKV(cfg.Path)
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendRedis:
		return NewRedisKV(ctx, cfg.Redis)
	case BackendPostgres:
		return NewPostgresKV(ctx, cfg.Postgres)
	default:
		return nil, errors.Config("unknown storage backend: "+cfg.Backend, nil)
	}
}

// MemoryKV is an in-memory backend (for tests and ephemeral runs)
type MemoryKV struct {
	values map[string][]byte
	mu     sync.RWMutex
}

// NewMemoryKV creates a memory backend
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryKV) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryKV) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.values), nil
}

func (s *MemoryKV) Close() error {
	return nil
}

// FileKV keeps every key in one JSON document on disk. Values are stored
// as JSON strings so the document stays readable.
type FileKV struct {
	path   string
	values map[string]string
	mu     sync.RWMutex
}

// NewFileKV opens (or creates on first write) the document at path
func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.Config("file storage requires a path", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Storage("create storage directory", err)
	}

	s := &FileKV{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Storage("read "+path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, errors.Storage("decode "+path, err)
		}
	}
	return s, nil
}

func (s *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (s *FileKV) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = string(value)
	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *FileKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.flush(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

func (s *FileKV) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.values), nil
}

func (s *FileKV) Close() error {
	return nil
}

// flush writes the document to a temp file and renames it into place.
// Callers hold the write lock.
func (s *FileKV) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errors.Storage("encode "+s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Storage("create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Storage("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Storage("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Storage("replace "+s.path, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
