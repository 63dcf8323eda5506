// Package model defines the domain types shared across storage, gating and the CLI.
package model

import (
	"fmt"
	"time"
)

// MetricType distinguishes numeric metrics (gateable) from label metrics
// (informational strings such as a tool version).
type MetricType string

const (
	MetricTypeNumeric MetricType = "numeric"
	MetricTypeLabel   MetricType = "label"
)

// MetricDefinition describes a metric. The name is the stable, unique key;
// later observations of the same name update unit and description only.
type MetricDefinition struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Type        MetricType `json:"type"`
	Unit        string     `json:"unit,omitempty"`
	Description string     `json:"description,omitempty"`
}

// MetricValue is one observation of a metric for one build. Exactly one of
// ValueNumeric and ValueLabel is set.
type MetricValue struct {
	ID           int64     `json:"id"`
	MetricID     int64     `json:"metric_id"`
	BuildID      int64     `json:"build_id"`
	ValueNumeric *float64  `json:"value_numeric,omitempty"`
	ValueLabel   *string   `json:"value_label,omitempty"`
	CollectedAt  time.Time `json:"collected_at"`
	DurationMS   *int64    `json:"duration_ms,omitempty"`
}

// Metric is a collected observation handed to the repository write path:
// the definition plus the value for the build being recorded.
type Metric struct {
	Definition   MetricDefinition
	ValueNumeric *float64
	ValueLabel   *string
	CollectedAt  time.Time
	DurationMS   *int64
}

// Validate checks the one-of-two value invariant and the definition key.
func (m Metric) Validate() error {
	if m.Definition.Name == "" {
		return fmt.Errorf("model: metric name is required")
	}
	switch m.Definition.Type {
	case MetricTypeNumeric, MetricTypeLabel:
	default:
		return fmt.Errorf("model: metric %q: unknown type %q", m.Definition.Name, m.Definition.Type)
	}
	hasNumeric := m.ValueNumeric != nil
	hasLabel := m.ValueLabel != nil
	if hasNumeric == hasLabel {
		return fmt.Errorf("model: metric %q: exactly one of numeric and label value must be set", m.Definition.Name)
	}
	if hasNumeric && m.Definition.Type != MetricTypeNumeric {
		return fmt.Errorf("model: metric %q: numeric value on %s metric", m.Definition.Name, m.Definition.Type)
	}
	if hasLabel && m.Definition.Type != MetricTypeLabel {
		return fmt.Errorf("model: metric %q: label value on %s metric", m.Definition.Name, m.Definition.Type)
	}
	return nil
}

// TimeSeriesPoint is one metric observation joined with its build metadata,
// used by reporting to chart history across builds.
type TimeSeriesPoint struct {
	CommitSHA    string    `json:"commit_sha"`
	Branch       string    `json:"branch"`
	RunNumber    int64     `json:"run_number"`
	Timestamp    time.Time `json:"timestamp"`
	ValueNumeric *float64  `json:"value_numeric,omitempty"`
	ValueLabel   *string   `json:"value_label,omitempty"`
}
