// Package config loads and validates application configuration: runtime
// settings from environment variables and the quality-gate configuration
// from a YAML file. All validation happens at load time; an unsupported
// storage kind or a malformed threshold is rejected before any I/O runs.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// StorageKind is the closed set of supported database storage backends.
type StorageKind string

const (
	// StorageLocal keeps the database as a plain file on disk.
	StorageLocal StorageKind = "local"
	// StorageS3 keeps the database as a blob in an S3-compatible bucket.
	StorageS3 StorageKind = "s3"
)

// ValidationError reports malformed configuration. It is raised at load
// time, never mid-run.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// S3Config holds the remote storage credentials and location.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Key       string
}

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	Kind      StorageKind
	LocalPath string
	S3        S3Config
}

// Config holds all runtime configuration.
type Config struct {
	LogLevel string
	Storage  StorageConfig
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		LogLevel: envStr("QUALGATE_LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Kind:      StorageKind(envStr("QUALGATE_STORAGE_KIND", string(StorageLocal))),
			LocalPath: envStr("QUALGATE_DB_PATH", "qualgate.db"),
			S3: S3Config{
				Endpoint:  envStr("QUALGATE_S3_ENDPOINT", ""),
				AccessKey: envStr("QUALGATE_S3_ACCESS_KEY", ""),
				SecretKey: envStr("QUALGATE_S3_SECRET_KEY", ""),
				UseSSL:    envBool("QUALGATE_S3_USE_SSL", true),
				Bucket:    envStr("QUALGATE_S3_BUCKET", ""),
				Key:       envStr("QUALGATE_S3_KEY", "qualgate.db"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and the storage kind
// is one of the supported variants.
func (c Config) Validate() error {
	switch c.Storage.Kind {
	case StorageLocal:
		if c.Storage.LocalPath == "" {
			return validationErrorf("QUALGATE_DB_PATH is required for local storage")
		}
	case StorageS3:
		if c.Storage.S3.Endpoint == "" {
			return validationErrorf("QUALGATE_S3_ENDPOINT is required for s3 storage")
		}
		if c.Storage.S3.Bucket == "" {
			return validationErrorf("QUALGATE_S3_BUCKET is required for s3 storage")
		}
		if c.Storage.S3.AccessKey == "" || c.Storage.S3.SecretKey == "" {
			return validationErrorf("QUALGATE_S3_ACCESS_KEY and QUALGATE_S3_SECRET_KEY are required for s3 storage")
		}
	default:
		return validationErrorf("unsupported storage kind %q (supported: local, s3)", c.Storage.Kind)
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
