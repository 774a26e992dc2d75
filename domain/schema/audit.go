package schema

import (
	"context"
	"time"
)

// AuditEvent records one administrative action against a domain schema.
type AuditEvent struct {
	Action     string
	DomainID   string
	ActorID    string
	OldVersion int64
	NewVersion int64
	Detail     string
	At         time.Time
}

// AuditSink receives audit events for schema mutations. Sinks must not fail
// the mutation they observe; errors are for the sink's own diagnostics.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}
