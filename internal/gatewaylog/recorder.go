// Package gatewaylog records processor activity (order creation attempts and
// webhook outcomes) for operators. It is the equivalent of the billing
// system's gateway log: best-effort, never on the critical path.
package gatewaylog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"paygate/internal/types"
)

// Recorder persists gateway activity entries.
type Recorder interface {
	Record(ctx context.Context, entry types.GatewayLogEntry) error
}

// redactedValue replaces any credential-looking field.
const redactedValue = "[REDACTED]"

// sensitiveKeyParts marks data keys whose values must never be recorded.
var sensitiveKeyParts = []string{"secret", "password", "token", "sign"}

// Sanitize returns a copy of data with credential-looking keys redacted.
func Sanitize(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if isSensitiveKey(k) {
			out[k] = redactedValue
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(k string) bool {
	lower := strings.ToLower(k)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// prepare fills defaults shared by every Recorder.
func prepare(ctx context.Context, entry types.GatewayLogEntry) types.GatewayLogEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = types.GetRequestID(ctx)
	}
	entry.Data = Sanitize(entry.Data)
	return entry
}

// SlogRecorder writes entries to a structured logger. It is the default
// when no queue is configured.
type SlogRecorder struct {
	logger *slog.Logger
}

// NewSlogRecorder creates a SlogRecorder.
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *SlogRecorder) Record(ctx context.Context, entry types.GatewayLogEntry) error {
	entry = prepare(ctx, entry)
	r.logger.InfoContext(ctx, "gateway activity",
		"gateway", entry.Gateway,
		"action", entry.Action,
		"result", string(entry.Result),
		"request_id", entry.RequestID,
		"data", entry.Data,
	)
	return nil
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, types.GatewayLogEntry) error { return nil }
