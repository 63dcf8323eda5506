// qualgate records code-quality metrics for CI builds into a durable SQLite
// store and gates pull requests against a historical baseline.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/qualgate/qualgate/internal/config"
	"github.com/qualgate/qualgate/internal/storage"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Load .env file if present (non-fatal; CI won't have one).
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "qualgate",
		Short:         "Track code-quality metrics across CI builds and gate pull requests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRecordCmd(), newGateCmd(), newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "qualgate: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	if level == "debug" {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newAdapter resolves the storage backend once, from validated
// configuration. The kind is a closed set; config.Load already rejected
// anything else.
func newAdapter(cfg config.Config, logger *slog.Logger) (storage.Adapter, error) {
	switch cfg.Storage.Kind {
	case config.StorageLocal:
		return storage.NewLocalAdapter(cfg.Storage.LocalPath, logger), nil
	case config.StorageS3:
		return storage.NewS3Adapter(storage.S3Options{
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			UseSSL:    cfg.Storage.S3.UseSSL,
			Bucket:    cfg.Storage.S3.Bucket,
			Key:       cfg.Storage.S3.Key,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage kind %q", cfg.Storage.Kind)
	}
}
