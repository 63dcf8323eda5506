// Package gate implements the quality-gate decision engine: a pure function
// from baseline samples, a current pull-request value and threshold
// configuration to a classified result set. It never returns an error;
// every ambiguous input degrades to an unknown result with a message,
// because "no data yet" is an expected steady state, not a failure.
package gate

import "fmt"

// Mode controls whether the gate runs and how its verdict is enforced.
type Mode string

const (
	// ModeOff disables evaluation entirely; every metric is reported unknown.
	ModeOff Mode = "off"
	// ModeSoft evaluates and reports but never fails the surrounding build.
	ModeSoft Mode = "soft"
	// ModeHard evaluates and fails the surrounding build on a failing gate.
	ModeHard Mode = "hard"
)

// ThresholdMode selects the comparison applied to a metric.
type ThresholdMode string

const (
	// ThresholdMin passes when the PR value is at least the target.
	ThresholdMin ThresholdMode = "min"
	// ThresholdMax passes when the PR value is at most the target.
	ThresholdMax ThresholdMode = "max"
	// ThresholdNoRegression passes when the PR value has not fallen more
	// than the tolerance below the baseline median.
	ThresholdNoRegression ThresholdMode = "no-regression"
	// ThresholdDeltaMaxDrop passes when the relative drop versus the
	// baseline median stays within maxDropPercent.
	ThresholdDeltaMaxDrop ThresholdMode = "delta-max-drop"
)

// Severity controls whether a failing threshold blocks the gate.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityBlocker Severity = "blocker"
)

// DefaultTolerance is the no-regression tolerance when none is configured.
const DefaultTolerance = 0.5

// Threshold configures the acceptance rule for one metric.
type Threshold struct {
	Metric         string        `yaml:"metric" validate:"required"`
	Mode           ThresholdMode `yaml:"mode" validate:"required,oneof=min max no-regression delta-max-drop"`
	Target         *float64      `yaml:"target,omitempty" validate:"required_if=Mode min,required_if=Mode max"`
	Tolerance      *float64      `yaml:"tolerance,omitempty" validate:"omitempty,gte=0"`
	MaxDropPercent *float64      `yaml:"maxDropPercent,omitempty" validate:"required_if=Mode delta-max-drop,omitempty,gte=0"`
	Severity       Severity      `yaml:"severity,omitempty" validate:"omitempty,oneof=warning blocker"`
}

// Blocking reports whether a failure of this threshold should fail the gate.
// Any severity other than warning blocks, including the empty default.
func (t Threshold) Blocking() bool {
	return t.Severity != SeverityWarning
}

// Config is the evaluator's threshold configuration.
type Config struct {
	Mode       Mode
	Thresholds []Threshold
}

// Baseline describes where the baseline samples came from. It is echoed in
// the result so reports can state what the comparison point was.
type Baseline struct {
	ReferenceBranch string
	MaxBuilds       int
	MaxAgeDays      int
}

// Sample is the evaluator's per-metric input: the pull request's value (nil
// when the metric was not collected for the PR build) and the recent
// reference-branch values.
type Sample struct {
	Name             string
	PullRequestValue *float64
	BaselineValues   []float64
}

// Status classifies a metric result or the overall gate.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// MetricResult is the evaluator's verdict for one metric.
type MetricResult struct {
	Name             string     `json:"name"`
	Status           Status     `json:"status"`
	Message          string     `json:"message"`
	PullRequestValue *float64   `json:"pull_request_value,omitempty"`
	BaselineMedian   *float64   `json:"baseline_median,omitempty"`
	IsBlocking       bool       `json:"is_blocking"`
	Threshold        *Threshold `json:"threshold,omitempty"`
}

// Summary counts results per status.
type Summary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Unknown int `json:"unknown"`
}

// Result is the aggregate gate verdict.
type Result struct {
	Status   Status         `json:"status"`
	Metrics  []MetricResult `json:"metrics"`
	Summary  Summary        `json:"summary"`
	Baseline Baseline       `json:"baseline"`
}

// FailingMetrics returns the blocking failures, the ones that fail the gate.
func (r Result) FailingMetrics() []MetricResult {
	var failing []MetricResult
	for _, m := range r.Metrics {
		if m.Status == StatusFail && m.IsBlocking {
			failing = append(failing, m)
		}
	}
	return failing
}

// Evaluate classifies every sample against the configured thresholds and
// aggregates an overall gate status. With mode off, no metric is evaluated:
// the result carries no per-metric entries and every sample counts as unknown.
func Evaluate(samples []Sample, cfg Config, baseline Baseline) Result {
	res := Result{Status: StatusUnknown, Baseline: baseline}

	if cfg.Mode == ModeOff {
		res.Summary.Unknown = len(samples)
		return res
	}

	thresholds := make(map[string]Threshold, len(cfg.Thresholds))
	for _, t := range cfg.Thresholds {
		thresholds[t.Metric] = t
	}

	for _, s := range samples {
		mr := evaluateSample(s, thresholds)
		switch mr.Status {
		case StatusPass:
			res.Summary.Passed++
		case StatusFail:
			res.Summary.Failed++
		default:
			res.Summary.Unknown++
		}
		res.Metrics = append(res.Metrics, mr)
	}

	res.Status = aggregate(res, len(cfg.Thresholds))
	return res
}

func evaluateSample(s Sample, thresholds map[string]Threshold) MetricResult {
	mr := MetricResult{
		Name:             s.Name,
		Status:           StatusUnknown,
		PullRequestValue: s.PullRequestValue,
	}
	if med, ok := median(s.BaselineValues); ok {
		mr.BaselineMedian = &med
	}

	t, ok := thresholds[s.Name]
	if !ok {
		mr.Message = "No threshold configured"
		return mr
	}
	mr.Threshold = &t
	mr.IsBlocking = t.Blocking()

	if s.PullRequestValue == nil {
		mr.Message = "Metric value not available for pull request"
		return mr
	}
	pr := *s.PullRequestValue

	// A metric with no baseline history stays unknown under every mode,
	// including the fixed-target ones. First PRs against a fresh store and
	// metrics added mid-history land here.
	if mr.BaselineMedian == nil {
		mr.Message = "Baseline data not available"
		return mr
	}
	med := *mr.BaselineMedian

	switch t.Mode {
	case ThresholdMin:
		if t.Target == nil {
			mr.Message = "Threshold target not configured"
			return mr
		}
		return classify(mr, pr >= *t.Target,
			fmt.Sprintf("value %g meets minimum %g", pr, *t.Target),
			fmt.Sprintf("value %g below minimum %g", pr, *t.Target))
	case ThresholdMax:
		if t.Target == nil {
			mr.Message = "Threshold target not configured"
			return mr
		}
		return classify(mr, pr <= *t.Target,
			fmt.Sprintf("value %g within maximum %g", pr, *t.Target),
			fmt.Sprintf("value %g above maximum %g", pr, *t.Target))
	case ThresholdNoRegression:
		tolerance := DefaultTolerance
		if t.Tolerance != nil {
			tolerance = *t.Tolerance
		}
		floor := med - tolerance
		return classify(mr, pr >= floor,
			fmt.Sprintf("value %g within tolerance %g of baseline median %g", pr, tolerance, med),
			fmt.Sprintf("value %g regressed below baseline median %g by more than tolerance %g", pr, med, tolerance))
	case ThresholdDeltaMaxDrop:
		if med == 0 {
			mr.Message = "Baseline median is zero, drop percent undefined"
			return mr
		}
		if t.MaxDropPercent == nil {
			mr.Message = "Threshold maxDropPercent not configured"
			return mr
		}
		drop := (med - pr) / med * 100
		return classify(mr, drop <= *t.MaxDropPercent,
			fmt.Sprintf("drop %.2f%% within allowed %g%%", drop, *t.MaxDropPercent),
			fmt.Sprintf("drop %.2f%% exceeds allowed %g%%", drop, *t.MaxDropPercent))
	}

	mr.Message = "Unknown threshold mode"
	return mr
}

func classify(mr MetricResult, pass bool, passMsg, failMsg string) MetricResult {
	if pass {
		mr.Status = StatusPass
		mr.Message = passMsg
	} else {
		mr.Status = StatusFail
		mr.Message = failMsg
	}
	return mr
}

// aggregate derives the overall gate status. Precedence: any blocking
// failure fails the gate; a gate with nothing configured or nothing
// evaluated stays unknown; at least one pass with no blocking failure passes.
func aggregate(res Result, configured int) Status {
	if configured == 0 {
		return StatusUnknown
	}
	if len(res.FailingMetrics()) > 0 {
		return StatusFail
	}
	if res.Summary.Passed == 0 && res.Summary.Failed == 0 {
		return StatusUnknown
	}
	if res.Summary.Passed > 0 {
		return StatusPass
	}
	return StatusUnknown
}
