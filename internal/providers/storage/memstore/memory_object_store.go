package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/storage"
)

var _ storage.ObjectStore = (*MemoryObjectStore)(nil)

// MemoryObjectStore keeps objects in process memory. It backs tests
// and ephemeral single-instance deployments where durability is not
// required.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: map[string][]byte{}}
}

func (s *MemoryObjectStore) Read(_ context.Context, objectPath string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.objects[objectPath]
	if !ok {
		return nil, faults.NotFound(fmt.Sprintf("object %q not found", objectPath))
	}
	copied := make([]byte, len(content))
	copy(copied, content)
	return copied, nil
}

func (s *MemoryObjectStore) Write(_ context.Context, objectPath string, content []byte) error {
	if strings.TrimSpace(objectPath) == "" {
		return faults.Validation("object path must not be empty", nil)
	}

	copied := make([]byte, len(content))
	copy(copied, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectPath] = copied
	return nil
}

func (s *MemoryObjectStore) Exists(_ context.Context, objectPath string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[objectPath]
	return ok, nil
}

func (s *MemoryObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.objects))
	for objectPath := range s.objects {
		if strings.HasPrefix(objectPath, prefix) {
			paths = append(paths, objectPath)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
