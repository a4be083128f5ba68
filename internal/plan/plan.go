// Package plan reads week-plan files: one generation invocation captured
// as YAML so a planner can stage exclusions and targets ahead of time.
package plan

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plantops/pmsched/internal/pm"
)

// Plan bundles the inputs of one generation run. Week accepts any date and
// callers normalize it to the containing Monday.
type Plan struct {
	Week         string   `yaml:"week"`
	WeeklyTarget int      `yaml:"weekly_target,omitempty"`
	Exclusions   []string `yaml:"exclusions,omitempty"`
	DryRun       bool     `yaml:"dry_run,omitempty"`
}

// Read loads and validates a plan file.
func Read(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating plan %s: %w", path, err)
	}

	return &p, nil
}

// Write saves the plan as YAML.
func (p *Plan) Write(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// Validate checks the plan fields.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Week) == "" {
		return fmt.Errorf("week is required")
	}
	if _, err := pm.ParseDate(p.Week); err != nil {
		return err
	}
	if p.WeeklyTarget < 0 {
		return fmt.Errorf("weekly_target must not be negative")
	}
	for _, name := range p.Exclusions {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("exclusions must not contain empty names")
		}
	}
	return nil
}

// WeekStart returns the Monday of the plan's week.
func (p *Plan) WeekStart() (time.Time, error) {
	d, err := pm.ParseDate(p.Week)
	if err != nil {
		return time.Time{}, err
	}
	return pm.WeekStart(d), nil
}
