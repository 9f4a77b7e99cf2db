package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/internal/config"
	"paygate/internal/core"
	"paygate/internal/webhook"
)

// defaultMaxWebhookBody caps a processor notification body.
const defaultMaxWebhookBody = 64 * 1024

// WebhookProcessor applies verified processor notifications.
type WebhookProcessor interface {
	Handle(ctx context.Context, header http.Header, rawBody []byte) (*webhook.Result, error)
}

// WebhookHandler receives processor notifications. It is not behind the API
// key middleware; the processor authenticates with a signature.
type WebhookHandler struct {
	processor WebhookProcessor
	maxBody   int64
	logger    *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. A non-positive maxBody selects
// 64 KiB.
func NewWebhookHandler(p WebhookProcessor, maxBody int64, l *slog.Logger) *WebhookHandler {
	if l == nil {
		l = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = defaultMaxWebhookBody
	}
	return &WebhookHandler{processor: p, maxBody: maxBody, logger: l}
}

// RegisterRoutes mounts the webhook endpoint at the router root.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post(config.WebhookPath, h.Handle)
}

// Handle reads the raw body, hands it to the processor and writes a short
// plain-text reason with the mapped status.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.WarnContext(r.Context(), "webhook body too large", "limit_bytes", h.maxBody)
			core.Text(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		h.logger.WarnContext(r.Context(), "failed to read webhook body", "error", err)
		core.Text(w, http.StatusBadRequest, "Malformed body")
		return
	}

	res, err := h.processor.Handle(r.Context(), r.Header, body)
	status, msg := webhook.Response(res, err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "webhook processing failed", "error", err)
	}
	core.Text(w, status, msg)
}
