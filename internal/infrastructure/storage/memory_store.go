package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
)

var _ audit.ObjectReader = (*MemoryObjectStore)(nil)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryObjectStore keeps objects in process memory. Used for development
// and tests when no bucket is configured.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryObjectStore creates an empty store
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]memoryObject)}
}

// GetObject returns a copy of the stored object
func (s *MemoryObjectStore) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	obj, ok := s.objects[normalizeKey(key)]
	s.mu.RUnlock()
	if !ok {
		return nil, "", shared.NewNotFoundError("evidence object " + key + " not found")
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

// PutObject stores a copy of data under key
func (s *MemoryObjectStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return shared.NewValidationError("storage key is required")
	}
	s.mu.Lock()
	s.objects[normalizeKey(key)] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	s.mu.Unlock()
	return nil
}

// Ping always succeeds
func (s *MemoryObjectStore) Ping(context.Context) error {
	return nil
}

func normalizeKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}
