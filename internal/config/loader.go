package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// secretPointerSuffix marks a variable holding the SSM path of another
// variable, e.g. WOWPAY_APP_SECRET_SSM_PARAM=/prod/paygate/wowpay/app_secret.
const secretPointerSuffix = "_SSM_PARAM"

// localEnv skips secret resolution entirely.
const localEnv = "local"

// envSource is the process environment, injectable for tests.
type envSource struct {
	lookup  func(string) (string, bool)
	set     func(string, string) error
	environ func() []string
}

func osEnv() envSource {
	return envSource{lookup: os.LookupEnv, set: os.Setenv, environ: os.Environ}
}

// LoadConfig loads and validates the configuration.
//
//  1. Sets the process timezone to UTC.
//  2. Loads a .env file if present without overriding the environment.
//  3. Outside APP_ENV=local, resolves every *_SSM_PARAM pointer through
//     provider into its target variable, unless the target is already set.
//  4. Processes envconfig tags, adds BuildInfo and validates.
//
// provider may be nil when no pointers are configured.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfig(provider, osEnv())
}

func loadConfig(provider SecretProvider, env envSource) (*Config, error) {
	time.Local = time.UTC

	_ = godotenv.Load()

	if appEnv, _ := env.lookup("APP_ENV"); appEnv != localEnv {
		if err := resolveSecrets(provider, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// resolveSecrets fetches all pending pointers in one provider call and
// exports the values under their target names.
func resolveSecrets(provider SecretProvider, env envSource) error {
	targets := make(map[string][]string) // SSM path -> target variables
	var paths []string
	for _, kv := range env.environ() {
		name, path, ok := strings.Cut(kv, "=")
		if !ok || path == "" || !strings.HasSuffix(name, secretPointerSuffix) {
			continue
		}
		target := strings.TrimSuffix(name, secretPointerSuffix)
		if _, set := env.lookup(target); set {
			continue
		}
		if _, seen := targets[path]; !seen {
			paths = append(paths, path)
		}
		targets[path] = append(targets[path], target)
	}
	if len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)

	if provider == nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("a secret provider is required to resolve %d SSM pointers", len(paths)),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	values, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("failed to resolve %d SSM parameters", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, path := range paths {
		value, ok := values[path]
		if !ok {
			missing = append(missing, targets[path]...)
			continue
		}
		for _, target := range targets[path] {
			if err := env.set(target, value); err != nil {
				return &ConfigError{
					Type:    ErrSecretResolution,
					Message: "failed to export resolved value for " + target,
					Err:     err,
				}
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: "SSM parameters not found for: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// CallbackURL returns the absolute webhook URL advertised to the processor.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.Server.APIExternalURL, "/") + WebhookPath
}

// WebhookPath is the route the processor delivers notifications to.
const WebhookPath = "/webhooks/wowpay"
