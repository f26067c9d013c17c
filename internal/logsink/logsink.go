// Package logsink provides a minimal domain.LogSink implementation. The
// request-log schema and storage engine are owned externally (SPEC_FULL §1,
// §6); this package only gives the Dispatcher something to call out of the
// box. Grounded on internal/audit/service.go's context-carried-request-info
// shape, repurposed here for request telemetry rather than a tenant audit
// trail: no tenant slug, no actor, no postgres store.
package logsink

import (
	"context"
	"log/slog"

	"modelgate/internal/domain"
)

// SlogSink records every log row as a structured slog line. It never fails
// a request: InsertLog always returns nil, matching the propagation rule
// that a telemetry failure must not surface to the client (SPEC_FULL §7).
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink writing through logger. A nil logger uses
// slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// InsertLog implements domain.LogSink.
func (s *SlogSink) InsertLog(ctx context.Context, row domain.LogRow) error {
	attrs := []any{
		"timestamp", row.Timestamp,
		"account_id", row.AccountID,
		"model", row.Model,
		"success", row.Success,
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	if row.ErrorMessage != "" {
		attrs = append(attrs, "error", row.ErrorMessage)
	}

	if row.Success {
		s.logger.InfoContext(ctx, "request completed", attrs...)
	} else {
		s.logger.WarnContext(ctx, "request failed", attrs...)
	}
	return nil
}

// contextKey namespaces values this package stores on a context, mirroring
// the audit package's request-info-on-context pattern.
type contextKey string

const contextKeyRequestID contextKey = "logsink_request_id"

// WithRequestID attaches a caller-assigned request id to ctx, surfaced on
// every log row emitted from a LogSink derived via FromContext.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestIDFromContext retrieves the request id attached by WithRequestID,
// or "" if none was set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}
