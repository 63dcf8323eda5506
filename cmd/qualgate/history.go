package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/qualgate/qualgate/internal/config"
	"github.com/qualgate/qualgate/internal/model"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [metric...]",
		Short: "Print the recorded time series for metrics",
		Long: `History prints every recorded observation of the named metrics joined
with build metadata, oldest first. Without arguments it prints all metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runHistory(ctx, args)
		},
	}
	return cmd
}

func runHistory(ctx context.Context, names []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

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

	if len(names) == 0 {
		defs, err := db.AllMetricDefinitions(ctx)
		if err != nil {
			return err
		}
		for _, d := range defs {
			names = append(names, d.Name)
		}
	}

	// The store tolerates concurrent readers, so fetch series in parallel.
	series := make(map[string][]model.TimeSeriesPoint, len(names))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			points, err := db.MetricTimeSeries(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			series[name] = points
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, name := range names {
		points := series[name]
		fmt.Fprintf(os.Stdout, "%s (%d observations)\n", name, len(points))
		for _, p := range points {
			value := "-"
			switch {
			case p.ValueNumeric != nil:
				value = fmt.Sprintf("%g", *p.ValueNumeric)
			case p.ValueLabel != nil:
				value = *p.ValueLabel
			}
			fmt.Fprintf(os.Stdout, "  %s  #%-5d %-20s %s\n",
				p.Timestamp.Format("2006-01-02 15:04"), p.RunNumber, shortSHA(p.CommitSHA), value)
		}
	}
	return adapter.Cleanup()
}

func shortSHA(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}
