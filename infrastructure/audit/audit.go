// Package audit implements schema audit sinks.
package audit

import (
	"context"

	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/internal/log"
)

// LogSink writes schema audit events to the structured log.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink. A nil logger falls back to the default.
func NewLogSink(logger *log.Logger) LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return LogSink{logger: logger.With("component", "schema_audit")}
}

// Record logs the event. It never returns an error.
func (s LogSink) Record(ctx context.Context, event schema.AuditEvent) error {
	s.logger.InfoContext(ctx, "schema audit",
		"action", event.Action,
		"domain_id", event.DomainID,
		"actor_id", event.ActorID,
		"old_version", event.OldVersion,
		"new_version", event.NewVersion,
		"detail", event.Detail,
		"at", event.At,
	)
	return nil
}

var _ schema.AuditSink = LogSink{}
