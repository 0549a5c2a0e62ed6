package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"linequery/internal/search"
	"linequery/internal/types"

	"gopkg.in/yaml.v3"
)

// Options holds runtime settings that are not part of the key=value file.
type Options struct {
	Server  ServerOptions `yaml:"server"`
	TLS     TLSOptions    `yaml:"tls"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerOptions tunes the connection server and worker pool.
type ServerOptions struct {
	Host          string          `yaml:"host"`
	Algorithm     string          `yaml:"algorithm"`
	Buffer        string          `yaml:"buffer"`
	Workers       int             `yaml:"workers"`    // 0 means 2 x NumCPU
	QueueSize     int             `yaml:"queue_size"` // 0 means 4 x workers
	ShutdownGrace time.Duration   `yaml:"shutdown_grace"`
	IdleTimeout   time.Duration   `yaml:"idle_timeout"` // 0 disables
	LogQueries    bool            `yaml:"log_queries"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-connection token bucket.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// TLSOptions locates or generates the server certificate.
type TLSOptions struct {
	Dir          string `yaml:"dir"`
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	ValidityDays int    `yaml:"validity_days"`
	Generator    string `yaml:"generator"` // openssl or native
	Required     bool   `yaml:"required"`  // fail instead of serving plaintext
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string         `yaml:"level"`  // debug, info, warn, error
	Format   string         `yaml:"format"` // text, json
	Dir      string         `yaml:"dir"`
	Console  bool           `yaml:"console"`
	File     bool           `yaml:"file"`
	Rotation RotationConfig `yaml:"rotation"`
}

// RotationConfig holds log rotation settings
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`    // MB
	MaxBackups int  `yaml:"max_backups"` // number of files
	MaxAge     int  `yaml:"max_age"`     // days
	Compress   bool `yaml:"compress"`    // gzip old files
}

// DefaultOptions returns the production defaults.
func DefaultOptions() *Options {
	return &Options{
		Server: ServerOptions{
			Host:          "0.0.0.0",
			Algorithm:     search.DefaultStrategy,
			Buffer:        types.NoBuffer.String(),
			ShutdownGrace: 5 * time.Second,
			LogQueries:    true,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				Burst:             20,
			},
		},
		TLS: TLSOptions{
			Dir:          os.TempDir(),
			CertFile:     "cert.pem",
			KeyFile:      "key.pem",
			ValidityDays: 365,
			Generator:    "openssl",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Dir:     "logs",
			Console: true,
			File:    true,
			Rotation: RotationConfig{
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
			},
		},
	}
}

// LoadOptions reads the YAML options file at path over the defaults.
// An empty path or a missing file leaves the defaults in place.
func LoadOptions(path string) (*Options, error) {
	opts := DefaultOptions()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read options: %w", err)
		default:
			if err := yaml.Unmarshal(data, opts); err != nil {
				return nil, fmt.Errorf("parse options %s: %w", path, err)
			}
		}
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// ApplyDefaults fills zero values left by a partial options file.
func (o *Options) ApplyDefaults() {
	d := DefaultOptions()
	if o.Server.Host == "" {
		o.Server.Host = d.Server.Host
	}
	if o.Server.Algorithm == "" {
		o.Server.Algorithm = d.Server.Algorithm
	}
	if o.Server.Buffer == "" {
		o.Server.Buffer = d.Server.Buffer
	}
	if o.TLS.Dir == "" {
		o.TLS.Dir = d.TLS.Dir
	}
	if o.TLS.CertFile == "" {
		o.TLS.CertFile = d.TLS.CertFile
	}
	if o.TLS.KeyFile == "" {
		o.TLS.KeyFile = d.TLS.KeyFile
	}
	if o.TLS.ValidityDays == 0 {
		o.TLS.ValidityDays = d.TLS.ValidityDays
	}
	if o.TLS.Generator == "" {
		o.TLS.Generator = d.TLS.Generator
	}
	if o.Logging.Level == "" {
		o.Logging.Level = d.Logging.Level
	}
	if o.Logging.Format == "" {
		o.Logging.Format = d.Logging.Format
	}
	if o.Logging.Dir == "" {
		o.Logging.Dir = d.Logging.Dir
	}
	if o.Logging.Rotation.MaxSize == 0 {
		o.Logging.Rotation.MaxSize = d.Logging.Rotation.MaxSize
	}
	if o.Logging.Rotation.MaxBackups == 0 {
		o.Logging.Rotation.MaxBackups = d.Logging.Rotation.MaxBackups
	}
	if o.Logging.Rotation.MaxAge == 0 {
		o.Logging.Rotation.MaxAge = d.Logging.Rotation.MaxAge
	}
}

// Validate validates the options
func (o *Options) Validate() error {
	if _, err := search.Lookup(o.Server.Algorithm); err != nil {
		return err
	}
	if _, err := types.ParseBufferKind(o.Server.Buffer); err != nil {
		return err
	}
	if o.Server.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", o.Server.Workers)
	}
	if o.Server.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative: %d", o.Server.QueueSize)
	}
	if o.Server.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown_grace must not be negative: %s", o.Server.ShutdownGrace)
	}
	if o.Server.RateLimit.Enabled {
		if o.Server.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if o.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate_limit.burst must be positive")
		}
	}

	switch o.TLS.Generator {
	case "openssl", "native":
	default:
		return fmt.Errorf("invalid tls generator: %s (must be openssl or native)", o.TLS.Generator)
	}
	if o.TLS.ValidityDays < 0 {
		return fmt.Errorf("tls validity_days must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[o.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", o.Logging.Level)
	}
	if o.Logging.Format != "text" && o.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", o.Logging.Format)
	}
	return nil
}

// BufferKind returns the parsed buffer selection. Call after Validate.
func (o *Options) BufferKind() types.BufferKind {
	kind, _ := types.ParseBufferKind(o.Server.Buffer)
	return kind
}
