package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/qualgate/qualgate/internal/gate"
	"github.com/qualgate/qualgate/internal/storage"
)

// gateFile is the YAML schema of the quality-gate configuration.
type gateFile struct {
	Mode     string `yaml:"mode" validate:"omitempty,oneof=off soft hard"`
	Baseline struct {
		ReferenceBranch string `yaml:"referenceBranch"`
		MaxBuilds       int    `yaml:"maxBuilds" validate:"gte=0"`
		MaxAgeDays      int    `yaml:"maxAgeDays" validate:"gte=0"`
	} `yaml:"baseline"`
	Thresholds []gate.Threshold `yaml:"thresholds" validate:"dive"`
}

// LoadGateConfig reads and validates the quality-gate configuration file.
// Malformed thresholds are a ValidationError here, before any evaluation
// or storage I/O runs.
func LoadGateConfig(path string) (gate.Config, gate.Baseline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return gate.Config{}, gate.Baseline{}, fmt.Errorf("config: read gate config %s: %w", path, err)
	}
	return parseGateConfig(raw)
}

func parseGateConfig(raw []byte) (gate.Config, gate.Baseline, error) {
	var f gateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return gate.Config{}, gate.Baseline{}, validationErrorf("parse gate config: %v", err)
	}

	if f.Mode == "" {
		f.Mode = string(gate.ModeSoft)
	}
	if f.Baseline.ReferenceBranch == "" {
		f.Baseline.ReferenceBranch = "main"
	}
	if f.Baseline.MaxBuilds == 0 {
		f.Baseline.MaxBuilds = storage.DefaultBaselineMaxBuilds
	}
	if f.Baseline.MaxAgeDays == 0 {
		f.Baseline.MaxAgeDays = storage.DefaultBaselineMaxAgeDays
	}

	if err := validator.New().Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			v := verrs[0]
			return gate.Config{}, gate.Baseline{}, validationErrorf(
				"gate config: field %s failed rule %q", v.Namespace(), v.Tag())
		}
		return gate.Config{}, gate.Baseline{}, validationErrorf("gate config: %v", err)
	}

	cfg := gate.Config{
		Mode:       gate.Mode(f.Mode),
		Thresholds: f.Thresholds,
	}
	baseline := gate.Baseline{
		ReferenceBranch: f.Baseline.ReferenceBranch,
		MaxBuilds:       f.Baseline.MaxBuilds,
		MaxAgeDays:      f.Baseline.MaxAgeDays,
	}
	return cfg, baseline, nil
}
