// Package config defines the configuration structure for the payment gateway
// adapter. Configuration is loaded once at process start and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> SSM Parameter Store
//
// A secret such as WOWPAY_APP_SECRET can be supplied as an SSM path in
// WOWPAY_APP_SECRET_SSM_PARAM; it is resolved outside APP_ENV=local when the
// variable itself is unset.
//
// Any missing required value or invalid format fails startup immediately.
package config

import (
	"time"

	"paygate/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for processor and webhook credentials.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"paygate"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	Processor     ProcessorConfig
	Webhook       WebhookConfig
	Security      SecurityConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Public base URL used to build the processor callback URL (no trailing slash).
	APIExternalURL string        `envconfig:"API_EXTERNAL_URL" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
	AutoMigrate       bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// ProcessorConfig holds the remote payment processor endpoint and merchant
// credentials.
type ProcessorConfig struct {
	BaseURL     string        `envconfig:"WOWPAY_BASE_URL" default:"https://wowpay.cfd" validate:"required,url"`
	AppID       string        `envconfig:"WOWPAY_APP_ID" validate:"required"`
	AppSecret   SecretString  `envconfig:"WOWPAY_APP_SECRET" validate:"required"`
	GatewayName string        `envconfig:"WOWPAY_GATEWAY_NAME" default:"wowpay"`
	Timeout     time.Duration `envconfig:"WOWPAY_TIMEOUT" default:"15s" validate:"gt=0"`
	UserAgent   string        `envconfig:"WOWPAY_USER_AGENT" default:"PayGate/1.0"`
}

// WebhookConfig holds inbound notification verification settings.
type WebhookConfig struct {
	Secret       SecretString  `envconfig:"WOWPAY_WEBHOOK_SECRET" validate:"required"`
	Tolerance    time.Duration `envconfig:"WEBHOOK_TOLERANCE" default:"300s" validate:"gt=0"`
	MaxBodyBytes int64         `envconfig:"WEBHOOK_MAX_BODY_BYTES" default:"65536" validate:"gt=0"`
}

// SecurityConfig holds the API key protecting the /v1 checkout API.
type SecurityConfig struct {
	AdminAPIKey SecretString `envconfig:"ADMIN_API_KEY" validate:"required"`
}

// AWSConfig holds AWS resource identifiers. Both are optional; when empty,
// the corresponding AWS-backed component is not constructed.
type AWSConfig struct {
	Region             string `envconfig:"AWS_REGION" default:"us-east-1"`
	GatewayLogQueueURL string `envconfig:"SQS_GATEWAY_LOG" validate:"omitempty,url"`
	EndpointURL        string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsBackend  string `envconfig:"METRICS_BACKEND" default:"prometheus" validate:"oneof=prometheus cloudwatch none"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"PayGate"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrSecretResolution indicates a *_SSM_PARAM pointer could not be resolved.
	ErrSecretResolution ConfigErrorType = "SECRET_RESOLUTION_FAILED"
)
