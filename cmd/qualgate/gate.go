package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qualgate/qualgate/internal/ci"
	"github.com/qualgate/qualgate/internal/config"
	"github.com/qualgate/qualgate/internal/gate"
	"github.com/qualgate/qualgate/internal/model"
	"github.com/qualgate/qualgate/internal/storage"
)

func newGateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate the current pull request against the baseline",
		Long: `Gate compares the current build's metrics with the recent history of
the reference branch and classifies each configured threshold as pass, fail
or unknown. With mode "hard" a failing gate fails the command; with "soft"
the verdict is informational.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runGate(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "qualgate.yml", "path to the quality gate configuration")
	return cmd
}

func runGate(ctx context.Context, configPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	gateCfg, baseline, err := config.LoadGateConfig(configPath)
	if err != nil {
		return err
	}

	if gateCfg.Mode == gate.ModeOff {
		logger.Info("quality gate is off")
		return nil
	}

	build, err := ci.BuildContextFromEnv()
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

	samples, err := collectSamples(ctx, db, build, gateCfg, baseline)
	if err != nil {
		return err
	}

	result := gate.Evaluate(samples, gateCfg, baseline)
	printResult(result)

	if err := adapter.Cleanup(); err != nil {
		return err
	}
	if gateCfg.Mode == gate.ModeHard && result.Status == gate.StatusFail {
		return fmt.Errorf("quality gate failed: %d blocking metric(s)", len(result.FailingMetrics()))
	}
	return nil
}

// collectSamples fetches, per configured threshold, the baseline values and
// the pull request's own value. A build that was never recorded yields nil
// PR values; the evaluator degrades those to unknown.
func collectSamples(ctx context.Context, db *storage.DB, build model.BuildContext, gateCfg gate.Config, baseline gate.Baseline) ([]gate.Sample, error) {
	buildID, err := db.BuildIDByRun(ctx, build.CommitSHA, build.RunID)
	haveBuild := true
	if errors.Is(err, storage.ErrNotFound) {
		haveBuild = false
	} else if err != nil {
		return nil, err
	}

	samples := make([]gate.Sample, 0, len(gateCfg.Thresholds))
	for _, t := range gateCfg.Thresholds {
		s := gate.Sample{Name: t.Metric}

		values, err := db.BaselineMetricValues(ctx, t.Metric, baseline.ReferenceBranch, baseline.MaxBuilds, baseline.MaxAgeDays)
		if err != nil {
			return nil, err
		}
		s.BaselineValues = values

		if haveBuild {
			v, err := db.PullRequestMetricValue(ctx, t.Metric, buildID)
			if err != nil {
				return nil, err
			}
			s.PullRequestValue = v
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func printResult(result gate.Result) {
	icons := map[gate.Status]string{
		gate.StatusPass:    "✓",
		gate.StatusFail:    "✗",
		gate.StatusUnknown: "?",
	}
	for _, m := range result.Metrics {
		blocking := ""
		if m.Status == gate.StatusFail && !m.IsBlocking {
			blocking = " (warning only)"
		}
		fmt.Fprintf(os.Stdout, "%s %-24s %s%s\n", icons[m.Status], m.Name, m.Message, blocking)
	}
	fmt.Fprintf(os.Stdout, "\ngate: %s (passed %d, failed %d, unknown %d; baseline %s, %d builds, %d days)\n",
		result.Status, result.Summary.Passed, result.Summary.Failed, result.Summary.Unknown,
		result.Baseline.ReferenceBranch, result.Baseline.MaxBuilds, result.Baseline.MaxAgeDays)
}
