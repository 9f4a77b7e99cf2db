// Package main is the Lambda entrypoint for processor notifications behind
// an API Gateway HTTP API. It runs the same webhook processor as the HTTP
// server so both intake paths share verification and idempotency.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"paygate/internal/app"
	"paygate/internal/config"
	"paygate/internal/types"
	"paygate/internal/webhook"
)

// Processor applies verified processor notifications.
type Processor interface {
	Handle(ctx context.Context, header http.Header, rawBody []byte) (*webhook.Result, error)
}

// Handler adapts API Gateway v2 events to the webhook processor.
type Handler struct {
	processor Processor
	maxBody   int64
	logger    *slog.Logger
}

// Handle decodes the event body, runs the processor and maps the outcome to
// a plain-text response.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = types.WithRequestID(ctx, requestID)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			h.logger.WarnContext(ctx, "invalid base64 webhook body", "request_id", requestID, "error", err)
			return textResponse(http.StatusBadRequest, "Malformed body"), nil
		}
		body = decoded
	}
	if int64(len(body)) > h.maxBody {
		h.logger.WarnContext(ctx, "webhook body too large", "request_id", requestID, "limit_bytes", h.maxBody)
		return textResponse(http.StatusRequestEntityTooLarge, "Payload too large"), nil
	}

	header := make(http.Header, len(req.Headers))
	for k, v := range req.Headers {
		header.Set(k, v)
	}

	res, err := h.processor.Handle(ctx, header, body)
	status, msg := webhook.Response(res, err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "webhook processing failed", "request_id", requestID, "error", err)
	}
	return textResponse(status, msg), nil
}

func textResponse(status int, msg string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       msg,
	}
}

func main() {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	comps, err := app.Build(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	h := &Handler{
		processor: comps.Webhooks,
		maxBody:   cfg.Webhook.MaxBodyBytes,
		logger:    logger,
	}
	lambda.Start(h.Handle)
}
