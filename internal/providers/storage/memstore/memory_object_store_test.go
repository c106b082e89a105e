package memstore

import (
	"context"
	"sync"
	"testing"

	"github.com/agentplane/agentplane/faults"
)

func TestMemoryObjectStore(t *testing.T) {
	t.Parallel()

	t.Run("write_then_read", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryObjectStore()
		ctx := context.Background()
		if err := store.Write(ctx, "/p/a.json", []byte("abc")); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
		got, err := store.Read(ctx, "/p/a.json")
		if err != nil || string(got) != "abc" {
			t.Fatalf("unexpected read %q err=%v", got, err)
		}
	})

	t.Run("read_returns_copy", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryObjectStore()
		ctx := context.Background()
		if err := store.Write(ctx, "/p/a.json", []byte("abc")); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
		first, _ := store.Read(ctx, "/p/a.json")
		first[0] = 'z'
		second, _ := store.Read(ctx, "/p/a.json")
		if string(second) != "abc" {
			t.Fatalf("stored content was mutated through a read: %q", second)
		}
	})

	t.Run("missing_object", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryObjectStore()
		_, err := store.Read(context.Background(), "/nope.json")
		if !faults.IsCategory(err, faults.NotFoundError) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("concurrent_writers_distinct_keys", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryObjectStore()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(n byte) {
				defer wg.Done()
				objectPath := "/p/" + string('a'+rune(n)) + ".json"
				_ = store.Write(ctx, objectPath, []byte{n})
			}(byte(i))
		}
		wg.Wait()

		paths, err := store.List(ctx, "/p/")
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(paths) != 16 {
			t.Fatalf("expected 16 objects, got %d", len(paths))
		}
	})
}
