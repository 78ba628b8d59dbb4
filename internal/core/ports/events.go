package ports

import "time"

// EventKind classifies an operational event emitted by the cache layer.
type EventKind string

const (
	EventHit    EventKind = "hit"
	EventMiss   EventKind = "miss"
	EventExpire EventKind = "expire"
	EventWrite  EventKind = "write"
	EventDelete EventKind = "delete"
	EventError  EventKind = "error"
)

// Event describes one cache operation outcome.
type Event struct {
	Layer   string // "memory" or "remote"
	Op      string
	Kind    EventKind
	Key     string
	Elapsed time.Duration
	Err     error
}

// EventSink receives diagnostics. Emit must not block and must be safe for concurrent use.
type EventSink interface {
	Emit(e Event)
}
