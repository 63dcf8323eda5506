package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qualgate/qualgate/internal/ci"
	"github.com/qualgate/qualgate/internal/config"
	"github.com/qualgate/qualgate/internal/model"
)

// metricInput is one collected metric in the JSON file an external
// collector hands to `qualgate record`.
type metricInput struct {
	Name        string           `json:"name"`
	Type        model.MetricType `json:"type"`
	Unit        string           `json:"unit,omitempty"`
	Description string           `json:"description,omitempty"`
	Value       json.RawMessage  `json:"value"`
	DurationMS  *int64           `json:"duration_ms,omitempty"`
}

func newRecordCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the current build's metrics into the store",
		Long: `Record reads collected metrics from a JSON file, derives the build
context from the CI environment, writes everything to the metrics store in
one transaction, and persists the store back to durable storage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runRecord(ctx, inputPath)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "metrics.json", "path to the collected metrics JSON file")
	return cmd
}

func runRecord(ctx context.Context, inputPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	build, err := ci.BuildContextFromEnv()
	if err != nil {
		return err
	}
	metrics, err := readMetricsFile(inputPath)
	if err != nil {
		return err
	}

	adapter, err := newAdapter(cfg, logger)
	if err != nil {
		return err
	}
	defer adapter.Cleanup() //nolint:errcheck

	db, err := adapter.Initialize(ctx)
	if err != nil {
		return err
	}
	if err := db.Ensure(ctx); err != nil {
		return err
	}

	buildID, err := db.RecordBuild(ctx, build, metrics)
	if err != nil {
		return err
	}
	if err := adapter.Persist(ctx); err != nil {
		return err
	}

	logger.Info("build recorded",
		"build_id", buildID, "commit", build.CommitSHA, "branch", build.Branch, "metrics", len(metrics))
	return adapter.Cleanup()
}

func readMetricsFile(path string) ([]model.Metric, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics file %s: %w", path, err)
	}

	var inputs []metricInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("parse metrics file %s: %w", path, err)
	}

	now := time.Now().UTC()
	metrics := make([]model.Metric, 0, len(inputs))
	for _, in := range inputs {
		m := model.Metric{
			Definition: model.MetricDefinition{
				Name:        in.Name,
				Type:        in.Type,
				Unit:        in.Unit,
				Description: in.Description,
			},
			CollectedAt: now,
			DurationMS:  in.DurationMS,
		}
		switch in.Type {
		case model.MetricTypeNumeric:
			var v float64
			if err := json.Unmarshal(in.Value, &v); err != nil {
				return nil, fmt.Errorf("metric %q: numeric value: %w", in.Name, err)
			}
			m.ValueNumeric = &v
		case model.MetricTypeLabel:
			var s string
			if err := json.Unmarshal(in.Value, &s); err != nil {
				return nil, fmt.Errorf("metric %q: label value: %w", in.Name, err)
			}
			m.ValueLabel = &s
		default:
			return nil, fmt.Errorf("metric %q: unknown type %q", in.Name, in.Type)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
