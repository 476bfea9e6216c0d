package hsp

import (
	"fmt"

	"github.com/turtacn/mixingcompass/pkg/errors"
)

// SolventObservation pairs a solvent's known Hansen coordinates with the
// solubility score observed when testing it against the sample material.
// Score is continuous in [0,1]: 1.0 = fully soluble ("good"), 0.0 = insoluble
// ("poor"), intermediate values = graded or partial solubility.
type SolventObservation struct {
	Name  string   `json:"name,omitempty"`
	Point HSPPoint `json:"point"`
	Score float64  `json:"score"`
}

// IsGood reports whether the observation is a fully soluble data point.
func (o SolventObservation) IsGood() bool { return o.Score == 1.0 }

func (o SolventObservation) String() string {
	return fmt.Sprintf("Observation{%s %s score=%.2f}", o.Name, o.Point, o.Score)
}

// ValidateObservations checks a training set for structural fitness before any
// optimization begins: at least two observations, finite coordinates, and
// scores within [0,1].  It fails fast with a typed error so callers never pay
// for an optimizer run on malformed input.
func ValidateObservations(obs []SolventObservation) error {
	if len(obs) < 2 {
		return errors.Newf(errors.ErrCodeHSPInsufficientData,
			"sphere fitting requires at least 2 observations, got %d", len(obs))
	}
	for i, o := range obs {
		if !o.Point.IsFinite() {
			return errors.Newf(errors.ErrCodeHSPInvalidParameter,
				"observation %d (%s) has non-finite coordinates", i, o.Name)
		}
		if o.Score < 0 || o.Score > 1 {
			return errors.Newf(errors.ErrCodeHSPInvalidScore,
				"observation %d (%s) has score %g outside [0,1]", i, o.Name, o.Score)
		}
	}
	return nil
}

// SplitGoodPoor partitions observations into fully soluble (score == 1.0) and
// everything else.  RadiusOnlyOptimizer treats any score below 1.0 as "poor"
// for the covering-radius computation.
func SplitGoodPoor(obs []SolventObservation) (good, poor []SolventObservation) {
	for _, o := range obs {
		if o.IsGood() {
			good = append(good, o)
		} else {
			poor = append(poor, o)
		}
	}
	return good, poor
}
