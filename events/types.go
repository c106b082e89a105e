// Package events carries change notifications between provider
// replicas. Delivery is best effort: events may arrive late, out of
// order, or more than once, and a replica between polling cycles
// serves stale reads. That is acceptable because reads are idempotent
// and writes always re-check current state from the durable store.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// ChangeEvent announces that a resource in a namespace changed.
// Subject names the affected resource; the payload is opaque to the
// framework.
type ChangeEvent struct {
	ID        string          `json:"id"`
	Namespace string          `json:"namespace"`
	Subject   string          `json:"subject,omitempty"`
	Time      time.Time       `json:"time"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventSet is a batch of events dequeued from one namespace.
type EventSet struct {
	Namespace string
	Events    []ChangeEvent
}

// Handler consumes a dequeued event batch. Handlers must tolerate
// duplicate and reordered batches.
type Handler func(ctx context.Context, set EventSet)

// Publisher emits change events to every subscriber of the event's
// namespace.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Source is one subscriber's view of the event channel. Dequeue
// drains the events buffered for a namespace since the previous call.
type Source interface {
	Dequeue(ctx context.Context, namespace string) ([]ChangeEvent, error)
}
