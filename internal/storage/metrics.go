package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qualgate/qualgate/internal/model"
)

// Baseline defaults when the gate config leaves them unset.
const (
	DefaultBaselineMaxBuilds  = 20
	DefaultBaselineMaxAgeDays = 90
)

// BaselineMetricValues returns the recent numeric values of one metric on
// the reference branch: push builds only, no older than maxAgeDays, newest
// first, capped at maxBuilds. Label-only rows never appear.
func (db *DB) BaselineMetricValues(ctx context.Context, metricName, referenceBranch string, maxBuilds, maxAgeDays int) ([]float64, error) {
	if maxBuilds <= 0 {
		maxBuilds = DefaultBaselineMaxBuilds
	}
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultBaselineMaxAgeDays
	}
	cutoff := encodeTime(time.Now().AddDate(0, 0, -maxAgeDays))

	rows, err := db.sql.QueryContext(ctx, `
		SELECT mv.value_numeric
		FROM metric_values mv
		JOIN metric_definitions md ON md.id = mv.metric_id
		JOIN build_contexts bc ON bc.id = mv.build_id
		WHERE md.name = ?
		  AND bc.branch = ?
		  AND bc.event_name = 'push'
		  AND bc.timestamp >= ?
		  AND mv.value_numeric IS NOT NULL
		ORDER BY bc.timestamp DESC
		LIMIT ?`,
		metricName, referenceBranch, cutoff, maxBuilds)
	if err != nil {
		return nil, fmt.Errorf("storage: baseline values for %q: %w", metricName, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("storage: scan baseline value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// PullRequestMetricValue returns the numeric value a metric was collected
// with for one build. A missing metric, a missing collection and a
// label-typed value all return nil rather than an error: "not collected" is
// an expected state the gate degrades on, not a failure.
func (db *DB) PullRequestMetricValue(ctx context.Context, metricName string, buildID int64) (*float64, error) {
	var v sql.NullFloat64
	err := db.sql.QueryRowContext(ctx, `
		SELECT mv.value_numeric
		FROM metric_values mv
		JOIN metric_definitions md ON md.id = mv.metric_id
		WHERE md.name = ? AND mv.build_id = ?`,
		metricName, buildID,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: pull request value for %q: %w", metricName, err)
	}
	if !v.Valid {
		return nil, nil
	}
	return &v.Float64, nil
}

// MetricTimeSeries returns the full history of one metric joined with build
// metadata, oldest first, for charting.
func (db *DB) MetricTimeSeries(ctx context.Context, metricName string) ([]model.TimeSeriesPoint, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT bc.commit_sha, bc.branch, bc.run_number, bc.timestamp,
		       mv.value_numeric, mv.value_label
		FROM metric_values mv
		JOIN metric_definitions md ON md.id = mv.metric_id
		JOIN build_contexts bc ON bc.id = mv.build_id
		WHERE md.name = ?
		ORDER BY bc.timestamp ASC`,
		metricName)
	if err != nil {
		return nil, fmt.Errorf("storage: time series for %q: %w", metricName, err)
	}
	defer rows.Close()

	var points []model.TimeSeriesPoint
	for rows.Next() {
		var (
			p  model.TimeSeriesPoint
			ts string
		)
		if err := rows.Scan(&p.CommitSHA, &p.Branch, &p.RunNumber, &ts, &p.ValueNumeric, &p.ValueLabel); err != nil {
			return nil, fmt.Errorf("storage: scan time series point: %w", err)
		}
		if p.Timestamp, err = decodeTime(ts); err != nil {
			return nil, fmt.Errorf("storage: decode point timestamp: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// AllMetricDefinitions returns every known metric definition, by name.
func (db *DB) AllMetricDefinitions(ctx context.Context) ([]model.MetricDefinition, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT id, name, type, unit, description
		FROM metric_definitions
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list metric definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.MetricDefinition
	for rows.Next() {
		var (
			d     model.MetricDefinition
			mtype string
			unit  sql.NullString
			descr sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &mtype, &unit, &descr); err != nil {
			return nil, fmt.Errorf("storage: scan metric definition: %w", err)
		}
		d.Type = model.MetricType(mtype)
		d.Unit = unit.String
		d.Description = descr.String
		defs = append(defs, d)
	}
	return defs, rows.Err()
}
