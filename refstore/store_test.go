package refstore

import (
	"context"
	"testing"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/internal/providers/storage/memstore"
	"github.com/agentplane/agentplane/resource"
)

const indexPath = "/AgentPlane.Prompt/_prompt-references.json"

func newTestStore() (*Store, *memstore.MemoryObjectStore) {
	objects := memstore.NewMemoryObjectStore()
	return New(objects, indexPath, logr.Discard()), objects
}

func greetingReference() resource.Reference {
	return resource.Reference{
		Name:     "Greeting",
		Type:     "multipart",
		Location: "/AgentPlane.Prompt/Greeting.json",
	}
}

func TestLoadBootstrapsEmptyIndex(t *testing.T) {
	t.Parallel()

	store, objects := newTestStore()
	ctx := context.Background()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	exists, err := objects.Exists(ctx, indexPath)
	if err != nil || !exists {
		t.Fatalf("expected bootstrapped index document, found=%v err=%v", exists, err)
	}
}

func TestUpsertThenGet(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if err := store.Upsert(ctx, greetingReference()); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	got, err := store.Get("Greeting")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Location != "/AgentPlane.Prompt/Greeting.json" {
		t.Fatalf("unexpected reference %+v", got)
	}
}

func TestLoadRestoresPersistedReferences(t *testing.T) {
	t.Parallel()

	first, objects := newTestStore()
	ctx := context.Background()
	if err := first.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := first.Upsert(ctx, greetingReference()); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	second := New(objects, indexPath, logr.Discard())
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load on second store returned error: %v", err)
	}
	if _, err := second.Get("Greeting"); err != nil {
		t.Fatalf("expected persisted reference to load, got %v", err)
	}
}

func TestMarkDeleted(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := store.Upsert(ctx, greetingReference()); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if err := store.MarkDeleted(ctx, "Greeting"); err != nil {
		t.Fatalf("MarkDeleted returned error: %v", err)
	}

	if _, err := store.Get("Greeting"); !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}

	if err := store.MarkDeleted(ctx, "Greeting"); !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError on double delete, got %v", err)
	}
	if err := store.MarkDeleted(ctx, "Unknown"); !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError on unknown delete, got %v", err)
	}
}

func TestDeletedNameBlocksReuse(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := store.Upsert(ctx, greetingReference()); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if err := store.MarkDeleted(ctx, "Greeting"); err != nil {
		t.Fatalf("MarkDeleted returned error: %v", err)
	}

	err := store.Upsert(ctx, greetingReference())
	if !faults.IsCategory(err, faults.ConflictError) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	if !store.Claimed("Greeting") {
		t.Fatalf("deleted name must stay claimed")
	}
}

func TestListSkipsDeleted(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	for _, name := range []string{"B", "A", "C"} {
		reference := greetingReference()
		reference.Name = name
		if err := store.Upsert(ctx, reference); err != nil {
			t.Fatalf("Upsert(%q) returned error: %v", name, err)
		}
	}
	if err := store.MarkDeleted(ctx, "B"); err != nil {
		t.Fatalf("MarkDeleted returned error: %v", err)
	}

	listed := store.List()
	if len(listed) != 2 || listed[0].Name != "A" || listed[1].Name != "C" {
		t.Fatalf("unexpected listing %+v", listed)
	}
}
