package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricValidate(t *testing.T) {
	num := 1.0
	lbl := "ok"

	tests := []struct {
		name    string
		metric  Metric
		wantErr bool
	}{
		{
			name: "numeric value on numeric metric",
			metric: Metric{
				Definition:   MetricDefinition{Name: "coverage", Type: MetricTypeNumeric},
				ValueNumeric: &num,
			},
		},
		{
			name: "label value on label metric",
			metric: Metric{
				Definition: MetricDefinition{Name: "go_version", Type: MetricTypeLabel},
				ValueLabel: &lbl,
			},
		},
		{
			name: "both values set",
			metric: Metric{
				Definition:   MetricDefinition{Name: "coverage", Type: MetricTypeNumeric},
				ValueNumeric: &num,
				ValueLabel:   &lbl,
			},
			wantErr: true,
		},
		{
			name: "neither value set",
			metric: Metric{
				Definition: MetricDefinition{Name: "coverage", Type: MetricTypeNumeric},
			},
			wantErr: true,
		},
		{
			name: "label value on numeric metric",
			metric: Metric{
				Definition: MetricDefinition{Name: "coverage", Type: MetricTypeNumeric},
				ValueLabel: &lbl,
			},
			wantErr: true,
		},
		{
			name: "missing name",
			metric: Metric{
				Definition:   MetricDefinition{Type: MetricTypeNumeric},
				ValueNumeric: &num,
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			metric: Metric{
				Definition:   MetricDefinition{Name: "coverage", Type: "gauge"},
				ValueNumeric: &num,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.metric.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildContextIsPullRequest(t *testing.T) {
	var b BuildContext
	assert.False(t, b.IsPullRequest())

	n := int64(12)
	b.PRNumber = &n
	assert.True(t, b.IsPullRequest())
}
