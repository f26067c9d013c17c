package logsink

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"modelgate/internal/domain"
)

func newTestSink(buf *bytes.Buffer) *SlogSink {
	handler := slog.NewJSONHandler(buf, nil)
	return NewSlogSink(slog.New(handler))
}

func TestInsertLogSuccessNeverErrors(t *testing.T) {
	var buf bytes.Buffer
	sink := newTestSink(&buf)

	err := sink.InsertLog(context.Background(), domain.LogRow{
		Timestamp: time.Now(),
		AccountID: "acc-1",
		Model:     "claude-3-opus",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("InsertLog: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "request completed") {
		t.Errorf("expected success log line, got %q", out)
	}
	if !strings.Contains(out, "acc-1") {
		t.Errorf("expected account id in log line, got %q", out)
	}
}

func TestInsertLogFailureLogsErrorMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := newTestSink(&buf)

	err := sink.InsertLog(context.Background(), domain.LogRow{
		Timestamp:    time.Now(),
		AccountID:    "acc-2",
		Model:        "claude-3-sonnet",
		Success:      false,
		ErrorMessage: "upstream 500",
	})
	if err != nil {
		t.Fatalf("InsertLog: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "request failed") {
		t.Errorf("expected failure log line, got %q", out)
	}
	if !strings.Contains(out, "upstream 500") {
		t.Errorf("expected error message in log line, got %q", out)
	}
}

func TestNewSlogSinkNilLoggerFallsBackToDefault(t *testing.T) {
	sink := NewSlogSink(nil)
	if sink.logger == nil {
		t.Fatal("expected a non-nil fallback logger")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("RequestIDFromContext = %q, want req-123", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext on bare context = %q, want empty", got)
	}
}

func TestInsertLogSurfacesRequestIDWhenPresent(t *testing.T) {
	var buf bytes.Buffer
	sink := newTestSink(&buf)

	ctx := WithRequestID(context.Background(), "req-456")
	err := sink.InsertLog(ctx, domain.LogRow{
		Timestamp: time.Now(),
		AccountID: "acc-1",
		Model:     "claude-3-opus",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("InsertLog: %v", err)
	}
	if !strings.Contains(buf.String(), "req-456") {
		t.Errorf("expected request id in log line, got %q", buf.String())
	}
}

func TestInsertLogOmitsRequestIDWhenAbsent(t *testing.T) {
	var buf bytes.Buffer
	sink := newTestSink(&buf)

	err := sink.InsertLog(context.Background(), domain.LogRow{
		Timestamp: time.Now(),
		AccountID: "acc-1",
		Model:     "claude-3-opus",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("InsertLog: %v", err)
	}
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("expected no request_id field on bare context, got %q", buf.String())
	}
}
