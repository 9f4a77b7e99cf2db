package gatewaylog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"paygate/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSRecorder ships entries to a queue consumed by the billing system's
// gateway-log importer.
type SQSRecorder struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewSQSRecorder creates a new SQSRecorder for queueURL.
func NewSQSRecorder(client SQSSender, queueURL string, logger *slog.Logger) *SQSRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSRecorder{client: client, queueURL: queueURL, logger: logger}
}

// Record implements Recorder.
func (r *SQSRecorder) Record(ctx context.Context, entry types.GatewayLogEntry) error {
	entry = prepare(ctx, entry)

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("gatewaylog: failed to marshal entry: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"gateway": {
				DataType:    aws.String("String"),
				StringValue: aws.String(entry.Gateway),
			},
			"result": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(entry.Result)),
			},
			"entry_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(uuid.NewString()),
			},
		},
	}

	if _, err := r.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("gatewaylog: failed to send entry to %s: %w", r.queueURL, err)
	}

	r.logger.DebugContext(ctx, "gateway activity queued",
		"queue_url", r.queueURL,
		"action", entry.Action,
		"result", string(entry.Result),
	)
	return nil
}
