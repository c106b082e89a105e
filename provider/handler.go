package provider

import (
	"context"

	"github.com/agentplane/agentplane/events"
	"github.com/agentplane/agentplane/resource"
)

// Handler is the capability set a concrete resource provider
// implements. The orchestrator owns parsing, authorization, lifecycle
// gating, and event plumbing; handlers own only type-specific
// persistence and validation.
type Handler interface {
	// TypeGraph declares the resource types the provider manages,
	// their actions, and their allowed sub-types. It must return the
	// same graph on every call.
	TypeGraph() map[string]resource.TypeDescriptor

	// Initialize performs provider-specific bootstrap, typically
	// loading the reference index (creating it on first run).
	Initialize(ctx context.Context) error

	// FetchByReference resolves a parsed path to a single resource,
	// or, for a collection path with no id, the full non-deleted list
	// of that type.
	FetchByReference(ctx context.Context, path resource.Path) (any, error)

	// Upsert validates and writes the serialized resource body, then
	// updates the reference index. objectID is the fully-qualified
	// identifier of the written resource.
	Upsert(ctx context.Context, path resource.Path, body []byte, objectID string) (any, error)

	// ExecuteAction runs the terminal action of the path against the
	// serialized action body.
	ExecuteAction(ctx context.Context, path resource.Path, body []byte) (any, error)

	// Delete soft-deletes the addressed reference. The backing object
	// is retained for restore and audit.
	Delete(ctx context.Context, path resource.Path) error
}

// EventReactor is implemented by handlers that must react to change
// events from other replicas, typically by reloading the affected
// references. Handlers without it ignore events.
type EventReactor interface {
	HandleEvents(ctx context.Context, set events.EventSet)
}
