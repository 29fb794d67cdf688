package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const defaultWaitTimeout = 1 * time.Second

type Config struct {
	port         string
	sentryDSN    string
	upstreamURL  string
	otlpEndpoint string
	waitTimeout  time.Duration
	env          environment
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) UpstreamURL() string {
	return c.upstreamURL
}

// OTLPEndpoint is where metrics are exported. Empty means the exporter's own
// defaults apply.
func (c *Config) OTLPEndpoint() string {
	return c.otlpEndpoint
}

// WaitTimeout bounds how long a coalesced caller waits for an in-flight
// upstream fetch.
func (c *Config) WaitTimeout() time.Duration {
	return c.waitTimeout
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf("Config{env: %s, port: %s, waitTimeout: %s, ...}", string(c.env), c.port, c.waitTimeout)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("COALESCE_ENVIRONMENT")
	if !ok {
		return missingKey("COALESCE_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: COALESCE_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	upstreamURL := os.Getenv("UPSTREAM_URL")
	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")

	waitTimeout := defaultWaitTimeout
	if rawTimeout := os.Getenv("COALESCE_WAIT_TIMEOUT"); rawTimeout != "" {
		parsed, err := time.ParseDuration(rawTimeout)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("%w: COALESCE_WAIT_TIMEOUT (%s)", ErrInvalidValue, rawTimeout)
		}
		waitTimeout = parsed
	}

	if env == production || env == staging {
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
		if upstreamURL == "" {
			return missingKey("UPSTREAM_URL")
		}
	}

	return Config{
		port:         port,
		sentryDSN:    sentryDSN,
		upstreamURL:  upstreamURL,
		otlpEndpoint: otlpEndpoint,
		waitTimeout:  waitTimeout,
		env:          env,
	}, nil
}
