// Package runlog provides run-scoped logging: every pipeline run gets its own run_id and the logger travels in context
package runlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type loggerWithRunID struct{}

// NewRunLogger - derives a logger tagged with a fresh run_id from base
func NewRunLogger(base zerolog.Logger) (zerolog.Logger, string) {
	runID := uuid.New().String()
	return base.With().Str("run_id", runID).Logger(), runID
}

// WithLogger puts logger to context so that remote clients log under the same run_id
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerWithRunID{}, logger)
}

// FromContext extracts logger from context - used in client-layer.
// Falls back to a disabled logger, clients never write to a global one.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerWithRunID{}).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}
