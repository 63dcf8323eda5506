package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qualgate/qualgate/internal/model"
)

// timeLayout is a fixed-width UTC timestamp encoding. Fixed width keeps
// lexicographic ordering of the stored TEXT identical to time ordering,
// which the baseline query's range filter and ORDER BY rely on.
const timeLayout = "2006-01-02T15:04:05.000Z"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// RecordBuild inserts the build context and all supplied metrics in a single
// transaction: either the build row and every metric row become visible
// together, or nothing does. Recording the same (commit_sha, run_id) again
// updates the build row in place and re-upserts its metrics, so a retried CI
// run converges on last-write-wins.
func (db *DB) RecordBuild(ctx context.Context, build model.BuildContext, metrics []model.Metric) (int64, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: begin record build: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var buildID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO build_contexts
			(commit_sha, branch, run_id, run_number, actor, event_name, timestamp, pr_number, pr_base, pr_head)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (commit_sha, run_id) DO UPDATE SET
			branch = excluded.branch,
			run_number = excluded.run_number,
			actor = excluded.actor,
			event_name = excluded.event_name,
			timestamp = excluded.timestamp,
			pr_number = excluded.pr_number,
			pr_base = excluded.pr_base,
			pr_head = excluded.pr_head
		RETURNING id`,
		build.CommitSHA, build.Branch, build.RunID, build.RunNumber,
		nullStr(build.Actor), nullStr(build.EventName), encodeTime(build.Timestamp),
		build.PRNumber, build.PRBase, build.PRHead,
	).Scan(&buildID)
	if err != nil {
		return 0, fmt.Errorf("storage: insert build context: %w", err)
	}

	for _, m := range metrics {
		if err := m.Validate(); err != nil {
			return 0, err
		}
		metricID, err := upsertDefinition(ctx, tx, m.Definition)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO metric_values
				(metric_id, build_id, value_numeric, value_label, collected_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (metric_id, build_id) DO UPDATE SET
				value_numeric = excluded.value_numeric,
				value_label = excluded.value_label,
				collected_at = excluded.collected_at,
				duration_ms = excluded.duration_ms`,
			metricID, buildID, m.ValueNumeric, m.ValueLabel,
			encodeTime(m.CollectedAt), m.DurationMS,
		); err != nil {
			return 0, fmt.Errorf("storage: insert metric value %q: %w", m.Definition.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: commit record build: %w", err)
	}
	db.logger.Debug("recorded build", "build_id", buildID, "commit", build.CommitSHA, "metrics", len(metrics))
	return buildID, nil
}

// upsertDefinition creates the definition on first observation of a name.
// Name and type are immutable afterwards; only unit and description follow
// later observations.
func upsertDefinition(ctx context.Context, tx *sql.Tx, def model.MetricDefinition) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO metric_definitions (name, type, unit, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			unit = excluded.unit,
			description = excluded.description
		RETURNING id`,
		def.Name, string(def.Type), nullStr(def.Unit), nullStr(def.Description),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("storage: upsert metric definition %q: %w", def.Name, err)
	}
	return id, nil
}

// BuildIDByRun looks up the build row for one CI run. Returns ErrNotFound
// when the run has not been recorded.
func (db *DB) BuildIDByRun(ctx context.Context, commitSHA, runID string) (int64, error) {
	var id int64
	err := db.sql.QueryRowContext(ctx,
		`SELECT id FROM build_contexts WHERE commit_sha = ? AND run_id = ?`,
		commitSHA, runID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("storage: build by run: %w", err)
	}
	return id, nil
}

// AllBuildContexts returns every recorded build, newest first.
func (db *DB) AllBuildContexts(ctx context.Context) ([]model.BuildContext, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT id, commit_sha, branch, run_id, run_number, actor, event_name, timestamp,
		       pr_number, pr_base, pr_head
		FROM build_contexts
		ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list build contexts: %w", err)
	}
	defer rows.Close()

	var builds []model.BuildContext
	for rows.Next() {
		var (
			b     model.BuildContext
			actor sql.NullString
			event sql.NullString
			ts    string
		)
		if err := rows.Scan(&b.ID, &b.CommitSHA, &b.Branch, &b.RunID, &b.RunNumber,
			&actor, &event, &ts, &b.PRNumber, &b.PRBase, &b.PRHead); err != nil {
			return nil, fmt.Errorf("storage: scan build context: %w", err)
		}
		b.Actor = actor.String
		b.EventName = event.String
		if b.Timestamp, err = decodeTime(ts); err != nil {
			return nil, fmt.Errorf("storage: decode build timestamp: %w", err)
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
