package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"even count averages middle pair", []float64{1, 2, 3, 4}, 2.5, true},
		{"single value", []float64{5}, 5, true},
		{"empty", nil, 0, false},
		{"unsorted input", []float64{9, 1, 5}, 5, true},
		{"two values", []float64{10, 20}, 15, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := median(tt.values)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, ok := median(values)
	require.True(t, ok)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestEvaluate_MinThreshold(t *testing.T) {
	cfg := Config{
		Mode:       ModeHard,
		Thresholds: []Threshold{{Metric: "coverage", Mode: ThresholdMin, Target: fptr(80)}},
	}

	history := []float64{78, 80, 82}

	t.Run("boundary value passes", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(80), BaselineValues: history}}, cfg, Baseline{})
		require.Len(t, res.Metrics, 1)
		assert.Equal(t, StatusPass, res.Metrics[0].Status)
		assert.Equal(t, StatusPass, res.Status)
	})

	t.Run("below target fails", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(79.9), BaselineValues: history}}, cfg, Baseline{})
		require.Len(t, res.Metrics, 1)
		assert.Equal(t, StatusFail, res.Metrics[0].Status)
		assert.True(t, res.Metrics[0].IsBlocking)
		assert.Equal(t, StatusFail, res.Status)
	})

	t.Run("no baseline history stays unknown even with a fixed target", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(40)}}, cfg, Baseline{})
		require.Len(t, res.Metrics, 1)
		assert.Equal(t, StatusUnknown, res.Metrics[0].Status)
		assert.Equal(t, "Baseline data not available", res.Metrics[0].Message)
	})
}

func TestEvaluate_MaxThreshold(t *testing.T) {
	cfg := Config{
		Mode:       ModeHard,
		Thresholds: []Threshold{{Metric: "lint_issues", Mode: ThresholdMax, Target: fptr(10)}},
	}

	history := []float64{8, 9, 10}

	res := Evaluate([]Sample{{Name: "lint_issues", PullRequestValue: fptr(10), BaselineValues: history}}, cfg, Baseline{})
	assert.Equal(t, StatusPass, res.Metrics[0].Status)

	res = Evaluate([]Sample{{Name: "lint_issues", PullRequestValue: fptr(10.5), BaselineValues: history}}, cfg, Baseline{})
	assert.Equal(t, StatusFail, res.Metrics[0].Status)
}

func TestEvaluate_DeltaMaxDrop(t *testing.T) {
	cfg := Config{
		Mode: ModeHard,
		Thresholds: []Threshold{
			{Metric: "coverage", Mode: ThresholdDeltaMaxDrop, MaxDropPercent: fptr(5)},
		},
	}
	baseline := []float64{80, 80, 80}

	t.Run("drop within allowance passes", func(t *testing.T) {
		// (80-77)/80*100 = 3.75%
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(77), BaselineValues: baseline}}, cfg, Baseline{})
		assert.Equal(t, StatusPass, res.Metrics[0].Status)
	})

	t.Run("drop beyond allowance fails", func(t *testing.T) {
		// (80-75)/80*100 = 6.25%
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(75), BaselineValues: baseline}}, cfg, Baseline{})
		assert.Equal(t, StatusFail, res.Metrics[0].Status)
	})

	t.Run("zero baseline median is unknown", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(75), BaselineValues: []float64{0, 0}}}, cfg, Baseline{})
		assert.Equal(t, StatusUnknown, res.Metrics[0].Status)
		assert.Contains(t, res.Metrics[0].Message, "zero")
	})
}

func TestEvaluate_NoRegression(t *testing.T) {
	cfg := Config{
		Mode:       ModeHard,
		Thresholds: []Threshold{{Metric: "coverage", Mode: ThresholdNoRegression}},
	}
	baseline := []float64{80}

	t.Run("within default tolerance passes", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(79.6), BaselineValues: baseline}}, cfg, Baseline{})
		assert.Equal(t, StatusPass, res.Metrics[0].Status)
	})

	t.Run("beyond default tolerance fails", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(79), BaselineValues: baseline}}, cfg, Baseline{})
		assert.Equal(t, StatusFail, res.Metrics[0].Status)
	})

	t.Run("explicit tolerance overrides default", func(t *testing.T) {
		wide := Config{
			Mode:       ModeHard,
			Thresholds: []Threshold{{Metric: "coverage", Mode: ThresholdNoRegression, Tolerance: fptr(2)}},
		}
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(79), BaselineValues: baseline}}, wide, Baseline{})
		assert.Equal(t, StatusPass, res.Metrics[0].Status)
	})
}

func TestEvaluate_ModeOff(t *testing.T) {
	cfg := Config{
		Mode:       ModeOff,
		Thresholds: []Threshold{{Metric: "coverage", Mode: ThresholdMin, Target: fptr(80)}},
	}
	samples := []Sample{
		{Name: "coverage", PullRequestValue: fptr(10)},
		{Name: "lint_issues", PullRequestValue: fptr(999)},
	}

	res := Evaluate(samples, cfg, Baseline{})
	assert.Equal(t, StatusUnknown, res.Status)
	assert.Empty(t, res.Metrics)
	assert.Equal(t, 2, res.Summary.Unknown)
	assert.Zero(t, res.Summary.Passed)
	assert.Zero(t, res.Summary.Failed)
}

func TestEvaluate_UnknownDegradation(t *testing.T) {
	cfg := Config{
		Mode: ModeHard,
		Thresholds: []Threshold{
			{Metric: "coverage", Mode: ThresholdNoRegression},
		},
	}

	t.Run("no threshold configured", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "stray", PullRequestValue: fptr(1)}}, cfg, Baseline{})
		mr := res.Metrics[0]
		assert.Equal(t, StatusUnknown, mr.Status)
		assert.False(t, mr.IsBlocking)
		assert.Equal(t, "No threshold configured", mr.Message)
	})

	t.Run("missing pull request value", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", BaselineValues: []float64{80}}}, cfg, Baseline{})
		mr := res.Metrics[0]
		assert.Equal(t, StatusUnknown, mr.Status)
		assert.Equal(t, "Metric value not available for pull request", mr.Message)
	})

	t.Run("missing baseline", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(80)}}, cfg, Baseline{})
		mr := res.Metrics[0]
		assert.Equal(t, StatusUnknown, mr.Status)
		assert.Equal(t, "Baseline data not available", mr.Message)
	})

	t.Run("all unknown keeps gate unknown", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage"}}, cfg, Baseline{})
		assert.Equal(t, StatusUnknown, res.Status)
	})
}

func TestEvaluate_Aggregation(t *testing.T) {
	t.Run("no thresholds configured at all", func(t *testing.T) {
		res := Evaluate([]Sample{{Name: "coverage", PullRequestValue: fptr(80)}}, Config{Mode: ModeHard}, Baseline{})
		assert.Equal(t, StatusUnknown, res.Status)
	})

	t.Run("warning failure does not block", func(t *testing.T) {
		cfg := Config{
			Mode: ModeHard,
			Thresholds: []Threshold{
				{Metric: "coverage", Mode: ThresholdMin, Target: fptr(80)},
				{Metric: "lint_issues", Mode: ThresholdMax, Target: fptr(0), Severity: SeverityWarning},
			},
		}
		samples := []Sample{
			{Name: "coverage", PullRequestValue: fptr(85), BaselineValues: []float64{84, 85}},
			{Name: "lint_issues", PullRequestValue: fptr(3), BaselineValues: []float64{0, 1}},
		}
		res := Evaluate(samples, cfg, Baseline{})
		assert.Equal(t, StatusPass, res.Status)
		assert.Equal(t, 1, res.Summary.Failed)
		assert.Empty(t, res.FailingMetrics())
	})

	t.Run("only a non-blocking failure is unknown overall", func(t *testing.T) {
		cfg := Config{
			Mode: ModeHard,
			Thresholds: []Threshold{
				{Metric: "lint_issues", Mode: ThresholdMax, Target: fptr(0), Severity: SeverityWarning},
			},
		}
		res := Evaluate([]Sample{{Name: "lint_issues", PullRequestValue: fptr(3), BaselineValues: []float64{0, 1}}}, cfg, Baseline{})
		assert.Equal(t, StatusUnknown, res.Status)
	})

	t.Run("blocking failure wins over passes", func(t *testing.T) {
		cfg := Config{
			Mode: ModeHard,
			Thresholds: []Threshold{
				{Metric: "coverage", Mode: ThresholdMin, Target: fptr(80)},
				{Metric: "duplication", Mode: ThresholdMax, Target: fptr(5), Severity: SeverityBlocker},
			},
		}
		samples := []Sample{
			{Name: "coverage", PullRequestValue: fptr(90), BaselineValues: []float64{88, 89}},
			{Name: "duplication", PullRequestValue: fptr(9), BaselineValues: []float64{4, 5}},
		}
		res := Evaluate(samples, cfg, Baseline{})
		assert.Equal(t, StatusFail, res.Status)
		require.Len(t, res.FailingMetrics(), 1)
		assert.Equal(t, "duplication", res.FailingMetrics()[0].Name)
	})
}

func TestEvaluate_BaselineEchoedInResult(t *testing.T) {
	b := Baseline{ReferenceBranch: "main", MaxBuilds: 20, MaxAgeDays: 90}
	res := Evaluate(nil, Config{Mode: ModeSoft}, b)
	assert.Equal(t, b, res.Baseline)
}
