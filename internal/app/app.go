// Package app assembles the service components from configuration. Both the
// HTTP server and the Lambda webhook entrypoint build through it so the two
// process notifications identically.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"paygate/internal/config"
	"paygate/internal/core"
	"paygate/internal/db"
	"paygate/internal/external"
	"paygate/internal/gatewaylog"
	"paygate/internal/payment"
	"paygate/internal/telemetry"
	"paygate/internal/webhook"
)

// Components holds the constructed service graph.
type Components struct {
	Pool           *pgxpool.Pool
	Transactions   *db.TransactionRepo
	Invoices       *db.InvoiceRepo
	Metrics        telemetry.Recorder
	MetricsHandler http.Handler
	GatewayLog     gatewaylog.Recorder
	Webhooks       *webhook.Processor
	Checkout       *payment.Checkout
}

// Close releases the database pool.
func (c *Components) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Build connects to the database, optionally applies migrations and wires
// every component.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	c := &Components{
		Pool:         pool,
		Transactions: db.NewTransactionRepo(pool, logger),
		Invoices:     db.NewInvoiceRepo(pool, logger),
	}

	var awsCfg *aws.Config
	if needsAWS(cfg) {
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("loading AWS configuration: %w", err)
		}
		awsCfg = &loaded
	}

	c.Metrics, c.MetricsHandler = newMetrics(cfg, awsCfg, logger)
	c.GatewayLog = newGatewayLog(cfg, awsCfg, logger)

	verifier := webhook.NewVerifier(cfg.Webhook.Tolerance)
	c.Webhooks = webhook.NewProcessor(
		verifier,
		c.Transactions,
		c.Invoices,
		cfg.Webhook.Secret,
		cfg.Processor.GatewayName,
		logger,
		webhook.WithValidator(core.NewValidator(logger)),
		webhook.WithRecorder(c.GatewayLog),
		webhook.WithMetrics(c.Metrics),
	)

	processor := external.NewWowPayClient(
		external.NewBaseClient(
			&http.Client{Timeout: cfg.Processor.Timeout},
			cfg.Processor.GatewayName,
			cfg.Processor.UserAgent,
		),
		cfg.Processor.BaseURL,
		logger,
	)
	initiator := payment.NewInitiator(processor, c.Transactions, cfg.Processor.GatewayName, logger,
		payment.WithRecorder(c.GatewayLog),
		payment.WithOrderMetrics(c.Metrics),
	)
	c.Checkout = payment.NewCheckout(
		c.Invoices,
		c.Transactions,
		initiator,
		payment.Credentials{AppID: cfg.Processor.AppID, AppSecret: cfg.Processor.AppSecret},
		cfg.CallbackURL(),
		logger,
	)

	return c, nil
}

func needsAWS(cfg *config.Config) bool {
	return cfg.Observability.MetricsBackend == "cloudwatch" || cfg.AWS.GatewayLogQueueURL != ""
}

// newMetrics selects the metrics backend. The handler is non-nil only for
// Prometheus.
func newMetrics(cfg *config.Config, awsCfg *aws.Config, logger *slog.Logger) (telemetry.Recorder, http.Handler) {
	switch cfg.Observability.MetricsBackend {
	case "prometheus":
		p := telemetry.NewPrometheus(cfg.Observability.MetricNamespace)
		return p, p.Handler()
	case "cloudwatch":
		if awsCfg == nil {
			logger.Warn("cloudwatch metrics requested without AWS configuration, metrics disabled")
			return telemetry.Nop{}, nil
		}
		client := cloudwatch.NewFromConfig(*awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		return telemetry.NewCloudWatch(client, cfg.Observability.MetricNamespace, logger), nil
	default:
		return telemetry.Nop{}, nil
	}
}

// newGatewayLog ships gateway activity to SQS when a queue is configured and
// to the structured log otherwise.
func newGatewayLog(cfg *config.Config, awsCfg *aws.Config, logger *slog.Logger) gatewaylog.Recorder {
	if cfg.AWS.GatewayLogQueueURL == "" || awsCfg == nil {
		return gatewaylog.NewSlogRecorder(logger)
	}
	client := sqs.NewFromConfig(*awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return gatewaylog.NewSQSRecorder(client, cfg.AWS.GatewayLogQueueURL, logger)
}

// NewLogger creates a JSON slog.Logger on stdout for the given level name.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
