// Package refstore maintains a provider's in-memory index of resource
// references, mirrored to a single durable index document. The map is
// authoritative between flushes; every mutation rewrites the document
// in full. The reference set is small, so a full rewrite is cheaper
// than maintaining compaction logic for an append log.
package refstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/resource"
	"github.com/agentplane/agentplane/storage"
)

type indexDocument struct {
	References []resource.Reference `json:"references"`
}

// Store indexes resource references by name for one provider. Many
// readers and writers of distinct names may proceed concurrently; two
// writers of the same name race and the last flush wins. Callers that
// need strict per-key serialization layer it on top.
type Store struct {
	objectStore storage.ObjectStore
	indexPath   string
	log         logr.Logger

	mu         sync.RWMutex
	references map[string]resource.Reference
}

func New(objectStore storage.ObjectStore, indexPath string, log logr.Logger) *Store {
	return &Store{
		objectStore: objectStore,
		indexPath:   indexPath,
		log:         log,
		references:  map[string]resource.Reference{},
	}
}

// Load reads the index document and replaces the in-memory map. When
// the document does not exist yet, an empty index is written so later
// loads find a well-formed document (first-run bootstrap).
func (s *Store) Load(ctx context.Context) error {
	exists, err := s.objectStore.Exists(ctx, s.indexPath)
	if err != nil {
		return faults.Internal("failed to check the reference index document", err)
	}

	if !exists {
		s.mu.Lock()
		s.references = map[string]resource.Reference{}
		s.mu.Unlock()
		s.log.V(1).Info("bootstrapping empty reference index", "indexPath", s.indexPath)
		return s.Flush(ctx)
	}

	content, err := s.objectStore.Read(ctx, s.indexPath)
	if err != nil {
		return faults.Internal("failed to read the reference index document", err)
	}

	var document indexDocument
	if err := json.Unmarshal(content, &document); err != nil {
		return faults.Internal("failed to decode the reference index document", err)
	}

	loaded := make(map[string]resource.Reference, len(document.References))
	for _, reference := range document.References {
		loaded[reference.Name] = reference
	}

	s.mu.Lock()
	s.references = loaded
	s.mu.Unlock()
	return nil
}

// Get returns the reference for name. Unknown and soft-deleted names
// both report NotFoundError; a deleted reference is invisible to
// readers even though it still blocks its name.
func (s *Store) Get(name string) (resource.Reference, error) {
	s.mu.RLock()
	reference, ok := s.references[name]
	s.mu.RUnlock()

	if !ok || reference.Deleted {
		return resource.Reference{}, faults.NotFound(fmt.Sprintf("could not locate the %s resource", name))
	}
	return reference, nil
}

// List returns all non-deleted references, ordered by name.
func (s *Store) List() []resource.Reference {
	s.mu.RLock()
	references := make([]resource.Reference, 0, len(s.references))
	for _, reference := range s.references {
		if reference.Deleted {
			continue
		}
		references = append(references, reference)
	}
	s.mu.RUnlock()

	sort.Slice(references, func(i, j int) bool {
		return references[i].Name < references[j].Name
	})
	return references
}

// Claimed reports whether a name is held by any reference, live or
// soft deleted. Name checks deny both cases.
func (s *Store) Claimed(name string) bool {
	s.mu.RLock()
	_, ok := s.references[name]
	s.mu.RUnlock()
	return ok
}

// IsDeleted reports whether the name is held by a soft-deleted
// reference. Handlers check this before writing a resource object so
// a doomed upsert fails before it mutates the store.
func (s *Store) IsDeleted(name string) bool {
	s.mu.RLock()
	reference, ok := s.references[name]
	s.mu.RUnlock()
	return ok && reference.Deleted
}

// Upsert inserts or replaces the reference and flushes the index.
// A name claimed by a soft-deleted reference can never be reused;
// reclaiming it requires an out-of-band purge.
func (s *Store) Upsert(ctx context.Context, reference resource.Reference) error {
	s.mu.Lock()
	existing, ok := s.references[reference.Name]
	if ok && existing.Deleted {
		s.mu.Unlock()
		return faults.Conflict(fmt.Sprintf(
			"the resource %s cannot be added or updated: the name was previously deleted and not purged",
			reference.Name))
	}
	s.references[reference.Name] = reference
	s.mu.Unlock()

	return s.Flush(ctx)
}

// MarkDeleted soft-deletes the named reference and flushes the index.
// Deleting an unknown or already-deleted name is NotFoundError, not a
// no-op, so caller mistakes surface instead of being masked.
func (s *Store) MarkDeleted(ctx context.Context, name string) error {
	s.mu.Lock()
	reference, ok := s.references[name]
	if !ok || reference.Deleted {
		s.mu.Unlock()
		return faults.NotFound(fmt.Sprintf("could not locate the %s resource", name))
	}
	reference.Deleted = true
	s.references[name] = reference
	s.mu.Unlock()

	return s.Flush(ctx)
}

// Flush rewrites the full index document from the current map.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	document := indexDocument{References: make([]resource.Reference, 0, len(s.references))}
	for _, reference := range s.references {
		document.References = append(document.References, reference)
	}
	s.mu.RUnlock()

	sort.Slice(document.References, func(i, j int) bool {
		return document.References[i].Name < document.References[j].Name
	})

	content, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return faults.Internal("failed to encode the reference index document", err)
	}
	if err := s.objectStore.Write(ctx, s.indexPath, content); err != nil {
		return faults.Internal("failed to persist the reference index document", err)
	}
	return nil
}
