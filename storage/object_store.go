package storage

import "context"

// ObjectStore is the durable key/blob store a resource provider
// persists through. It is the only source of truth: reference index
// documents and resource payloads both live here. Implementations
// apply their own timeout and retry policy; the framework does not
// retry on their behalf.
type ObjectStore interface {
	// Read returns the content of the object at objectPath. Absent
	// objects yield a NotFoundError.
	Read(ctx context.Context, objectPath string) ([]byte, error)

	// Write stores content at objectPath, replacing any previous
	// object.
	Write(ctx context.Context, objectPath string, content []byte) error

	// Exists reports whether an object is present at objectPath.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns the paths of all objects under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
