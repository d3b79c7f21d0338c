// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Bucket sources accepted by BUCKET_SOURCE.
const (
	SourceMock = "mock"
	SourceS3   = "s3"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev" validate:"required"`
	Port   int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`

	// BucketSource selects where bucket names come from: the fixed mock list or S3.
	BucketSource    string   `env:"BUCKET_SOURCE" envDefault:"mock" validate:"oneof=mock s3"`
	MockBuckets     []string `env:"MOCK_BUCKETS" envSeparator:"," envDefault:"mock-bucket1,mock-bucket2,mock-bucket3"`
	MockBucketsFile string   `env:"MOCK_BUCKETS_FILE"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-west-2" validate:"required"`
	S3Endpoint     string `env:"S3_ENDPOINT" validate:"omitempty,url"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	// OTLPEndpoint is the local collector that forwards segments to the tracing backend.
	// It is a host:port without scheme. "none" disables export; spans are then dropped.
	OTLPEndpoint       string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"127.0.0.1:4317" validate:"omitempty,hostname_port|eq_ignore_case=none"`
	OTELServiceName    string  `env:"OTEL_SERVICE_NAME" envDefault:"bucket-trace-demo" validate:"required"`
	ServiceVersion     string  `env:"SERVICE_VERSION" envDefault:"1.2.3"`
	TraceSamplingRatio float64 `env:"TRACE_SAMPLING_RATIO" envDefault:"1.0" validate:"gte=0,lte=1"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"120" validate:"gte=0"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// Load parses environment variables into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in the struct tags.
func (c Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("op=config.Validate: %w", err)
	}
	return nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// UsesS3 reports whether bucket names are fetched from S3.
func (c Config) UsesS3() bool { return strings.ToLower(c.BucketSource) == SourceS3 }

// TracingEnabled reports whether spans are exported.
func (c Config) TracingEnabled() bool {
	ep := strings.TrimSpace(c.OTLPEndpoint)
	return ep != "" && !strings.EqualFold(ep, "none")
}
