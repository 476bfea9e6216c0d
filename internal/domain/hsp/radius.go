package hsp

import (
	"context"
	"math"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
)

// MinFittedRadius is the floor applied to radius-only results.  It keeps the
// radius > 0 invariant when the covering radius degenerates to zero, e.g. a
// dataset whose only good solvent sits exactly at the fitted center, and it
// is the documented default when no good observation exists at all.
const MinFittedRadius = 0.1

// Branch labels recorded in RadiusCalculation.
const (
	BranchCovering     = "covering"
	BranchAccuracyScan = "accuracy_scan"
	BranchNoGood       = "no_good"
)

// RadiusOnlyOptions configures a two-stage radius-only fit.
type RadiusOnlyOptions struct {
	// Seed fixes the center-fitting optimizer RNG when non-zero.
	Seed int64 `json:"seed,omitempty"`

	// Bounds overrides the center-fit search box when non-nil.
	Bounds *ParameterBounds `json:"bounds,omitempty"`

	// AccuracyScan enables the fallback when perfect separation is
	// infeasible (RaMin > RaMax): candidate radii in [RaMax, RaMin] are
	// scanned and the one maximizing accuracy wins, ties broken toward the
	// smaller radius.  Off by default — the cheaper covering radius,
	// tolerating residual false positives, suffices for most datasets.
	AccuracyScan bool `json:"accuracy_scan,omitempty"`

	// ScanSteps is the number of candidate radii evaluated by the fallback;
	// zero selects a sensible default.
	ScanSteps int `json:"scan_steps,omitempty"`
}

const defaultScanSteps = 100

// coverEpsilon is the relative inflation applied to covering radii.  The good
// solvent that defines the covering distance would otherwise sit at RED
// exactly 1.0 and the strict RED < 1 classification rule would call it
// outside; one relative epsilon keeps it inside without materially changing
// the radius.
const coverEpsilon = 1e-9

// RadiusOnlyOptimizer fits a sphere in two stages: the center is found with a
// full cross-entropy fit (the fitted radius is discarded), then a minimal
// covering radius is derived geometrically from the good/poor split.  The
// default policy minimizes false positives: the radius is exactly the largest
// good-solvent distance whenever that still excludes every poor solvent.
type RadiusOnlyOptimizer struct {
	estimator *Estimator
	logger    logging.Logger
}

// NewRadiusOnlyOptimizer constructs a RadiusOnlyOptimizer sharing the given
// estimator for its center-fitting stage.  Nil arguments fall back to fresh
// defaults.
func NewRadiusOnlyOptimizer(estimator *Estimator, logger logging.Logger) *RadiusOnlyOptimizer {
	if logger == nil {
		logger = logging.Default()
	}
	if estimator == nil {
		estimator = NewEstimator(logger)
	}
	return &RadiusOnlyOptimizer{
		estimator: estimator,
		logger:    logger.Named("hsp.radiusonly"),
	}
}

// Fit runs the two-stage procedure and returns a FitResult whose Details
// record RaMin, RaMax, feasibility and the branch taken.
//
// Feasibility uses RaMin ≤ RaMax: a dataset where the farthest good solvent
// and the nearest poor solvent are equidistant (including the degenerate
// contradictory-labels case where both distances are zero) counts as
// separable, and the covering radius wins.
func (r *RadiusOnlyOptimizer) Fit(ctx context.Context, obs []SolventObservation, opts RadiusOnlyOptions) (*FitResult, error) {
	if err := ValidateObservations(obs); err != nil {
		return nil, err
	}

	// Stage 1: fit the center with cross-entropy; keep only (δD, δP, δH).
	centerFit, err := r.estimator.Fit(ctx, obs, FitOptions{
		Loss:   LossConfig{Kind: LossCrossEntropy},
		Bounds: opts.Bounds,
		Seed:   opts.Seed,
	})
	if err != nil {
		return nil, err
	}
	center := centerFit.Sphere.Center

	// Stage 2: derive the radius from distances to the fixed center.
	good, poor := SplitGoodPoor(obs)

	raMin := 0.0
	for _, o := range good {
		if d := center.Distance(o.Point); d > raMin {
			raMin = d
		}
	}
	raMax := math.Inf(1)
	for _, o := range poor {
		if d := center.Distance(o.Point); d < raMax {
			raMax = d
		}
	}

	details := &RadiusCalculation{RaMin: raMin, RaMax: raMax, Feasible: raMin <= raMax}

	var radius float64
	switch {
	case len(good) == 0:
		// No covering constraint exists; fall back to the documented floor.
		radius = MinFittedRadius
		details.Branch = BranchNoGood

	case details.Feasible:
		radius = raMin * (1 + coverEpsilon)
		details.Branch = BranchCovering

	case opts.AccuracyScan:
		radius = r.scanForAccuracy(center, obs, raMax, raMin, opts.ScanSteps)
		details.Branch = BranchAccuracyScan

	default:
		// Infeasible without the fallback: keep covering every good solvent
		// and tolerate the resulting false positives.
		radius = raMin * (1 + coverEpsilon)
		details.Branch = BranchCovering
	}

	if radius < MinFittedRadius {
		radius = MinFittedRadius
	}

	sphere := HansenSphere{Center: center, Radius: radius}
	eval := Evaluate(sphere, obs)

	loss, _ := NewLossFunction(LossConfig{Kind: LossCrossEntropy})
	r.logger.Debug("radius-only fit complete",
		logging.Float64("ra_min", raMin),
		logging.Float64("ra_max", raMax),
		logging.Bool("feasible", details.Feasible),
		logging.String("branch", details.Branch),
		logging.Float64("radius", radius),
		logging.Float64("accuracy", eval.Accuracy))

	return &FitResult{
		Sphere:    sphere,
		LossValue: loss.Evaluate(sphere, obs),
		Accuracy:  eval.Accuracy,
		Converged: centerFit.Converged,
		PerSample: eval.PerSample,
		Details:   details,
	}, nil
}

// scanForAccuracy evaluates evenly spaced candidate radii in [lo, hi] and
// returns the one with the highest accuracy.  A strict > comparison while
// scanning upward from lo breaks ties toward the smaller radius (the
// "minimum sphere" principle).
func (r *RadiusOnlyOptimizer) scanForAccuracy(center HSPPoint, obs []SolventObservation, lo, hi float64, steps int) float64 {
	if steps < 2 {
		steps = defaultScanSteps
	}
	if lo < MinFittedRadius {
		lo = MinFittedRadius
	}
	if hi < lo {
		hi = lo
	}

	best := lo
	bestAcc := -1.0
	for i := 0; i < steps; i++ {
		candidate := lo + float64(i)*(hi-lo)/float64(steps-1)
		acc := Evaluate(HansenSphere{Center: center, Radius: candidate}, obs).Accuracy
		if acc > bestAcc {
			bestAcc = acc
			best = candidate
		}
	}
	return best
}
