// Package experiment provides the domain model for solubility experiments: a
// sample material, the set of solvents it was tested against, and the Hansen
// sphere calculated from those observations.
package experiment

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/mixingcompass/internal/domain/hsp"
	"github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// ─────────────────────────────────────────────────────────────────────────────
// Value Objects
// ─────────────────────────────────────────────────────────────────────────────

// SolventTest is one tested solvent within an experiment.  The solvent is
// identified by name/CAS against the solvent database, or carries explicit
// Hansen coordinates for solvents not in the reference table.  Explicit
// coordinates take precedence when both are present.
type SolventTest struct {
	SolventName string `json:"solvent_name,omitempty"`

	DeltaD *float64 `json:"delta_d,omitempty"`
	DeltaP *float64 `json:"delta_p,omitempty"`
	DeltaH *float64 `json:"delta_h,omitempty"`

	Score float64 `json:"score"`
}

// HasCoordinates reports whether the test carries explicit coordinates.
func (t SolventTest) HasCoordinates() bool {
	return t.DeltaD != nil && t.DeltaP != nil && t.DeltaH != nil
}

// Validate checks a single test entry.
func (t SolventTest) Validate() error {
	if !t.HasCoordinates() && strings.TrimSpace(t.SolventName) == "" {
		return errors.New(errors.ErrCodeExperimentInvalidTest,
			"solvent test needs a solvent name or explicit coordinates")
	}
	if t.Score < 0 || t.Score > 1 {
		return errors.Newf(errors.ErrCodeExperimentInvalidTest,
			"solvent test score %g outside [0,1]", t.Score)
	}
	return nil
}

// Result is the immutable snapshot of a completed calculation.  It is
// re-created wholesale on every recalculation, never patched in place.
type Result struct {
	Mode     string         `json:"mode"` // hsptypes.ModeSphere | hsptypes.ModeRadiusOnly
	Loss     string         `json:"loss"`
	Fit      *hsp.FitResult `json:"fit"`
	FittedAt time.Time      `json:"fitted_at"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Experiment Aggregate Root
// ─────────────────────────────────────────────────────────────────────────────

// Experiment is the aggregate root for one solubility study of a sample.
type Experiment struct {
	common.BaseEntity

	SampleName  string   `json:"sample_name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	Tests []SolventTest `json:"tests"`

	// Result is nil until the first successful calculation.
	Result *Result `json:"result,omitempty"`
}

// NewExperiment constructs a validated experiment.
func NewExperiment(sampleName, description string, tags []string, tests []SolventTest) (*Experiment, error) {
	e := &Experiment{
		BaseEntity: common.BaseEntity{
			ID:        common.NewID(),
			CreatedAt: time.Now().UTC(),
		},
		SampleName:  strings.TrimSpace(sampleName),
		Description: strings.TrimSpace(description),
		Tags:        tags,
		Tests:       tests,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the aggregate's structural invariants.  The two-observation
// minimum for fitting is deliberately NOT enforced here: experiments are
// created incrementally and only need enough tests by calculation time.
func (e *Experiment) Validate() error {
	if e.SampleName == "" {
		return errors.InvalidParam("experiment sample name cannot be empty")
	}
	for i, t := range e.Tests {
		if err := t.Validate(); err != nil {
			return errors.Wrap(err, errors.ErrCodeExperimentInvalidTest,
				fmt.Sprintf("test %d invalid", i))
		}
	}
	return nil
}

// AddTest appends a tested solvent.
func (e *Experiment) AddTest(t SolventTest) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.Tests = append(e.Tests, t)
	e.Touch(time.Now().UTC())
	return nil
}

// SetResult records a completed calculation snapshot.
func (e *Experiment) SetResult(mode, loss string, fit *hsp.FitResult) {
	e.Result = &Result{
		Mode:     mode,
		Loss:     loss,
		Fit:      fit,
		FittedAt: time.Now().UTC(),
	}
	e.Touch(time.Now().UTC())
}

// Sphere returns the calculated sphere, or an ErrCodeExperimentNotFitted
// error when no calculation has been run yet.  Visualization and RED queries
// go through this accessor.
func (e *Experiment) Sphere() (hsp.HansenSphere, error) {
	if e.Result == nil || e.Result.Fit == nil {
		return hsp.HansenSphere{}, errors.New(errors.ErrCodeExperimentNotFitted,
			"experiment has no calculated sphere yet").
			WithDetail(fmt.Sprintf("experiment=%s", e.ID))
	}
	return e.Result.Fit.Sphere, nil
}

// ValidMode reports whether the string names a supported calculation mode.
func ValidMode(mode string) bool {
	return mode == "" || mode == hsptypes.ModeSphere || mode == hsptypes.ModeRadiusOnly
}
