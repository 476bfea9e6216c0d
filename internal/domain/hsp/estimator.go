package hsp

import (
	"context"
	"errors"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/mixingcompass/pkg/errors"
)

// ParameterBounds is the search box over the four sphere parameters
// (δD, δP, δH, R).  The radius lower bound must be strictly positive so the
// losses never see R = 0.
type ParameterBounds struct {
	DMin, DMax float64 `json:"d_min,omitempty"`
	PMin, PMax float64 `json:"p_min,omitempty"`
	HMin, HMax float64 `json:"h_min,omitempty"`
	RMin, RMax float64 `json:"r_min,omitempty"`
}

// DefaultParameterBounds covers the practical range of solvent Hansen
// parameters with a radius between 1 and 20 MPa^0.5.
func DefaultParameterBounds() ParameterBounds {
	return ParameterBounds{
		DMin: 5, DMax: 30,
		PMin: 0, PMax: 50,
		HMin: 0, HMax: 50,
		RMin: 1, RMax: 20,
	}
}

// Validate checks ordering and the strict positive radius floor.
func (b ParameterBounds) Validate() error {
	if b.RMin <= 0 {
		return appErrors.Newf(appErrors.ErrCodeHSPInvalidBounds,
			"radius lower bound must be > 0, got %g", b.RMin)
	}
	if b.DMin > b.DMax || b.PMin > b.PMax || b.HMin > b.HMax || b.RMin > b.RMax {
		return appErrors.New(appErrors.ErrCodeHSPInvalidBounds, "each lower bound must not exceed its upper bound")
	}
	return nil
}

func (b ParameterBounds) box() BoxBounds {
	return BoxBounds{
		Lower: []float64{b.DMin, b.PMin, b.HMin, b.RMin},
		Upper: []float64{b.DMax, b.PMax, b.HMax, b.RMax},
	}
}

// FitOptions configures a single sphere fit.  The zero value selects the
// default loss, default bounds and a non-deterministic optimizer run.
type FitOptions struct {
	// Loss selects the objective; LossConfig.Kind empty → continuous_l2.
	Loss LossConfig `json:"loss"`

	// Bounds overrides the default search box when non-nil.
	Bounds *ParameterBounds `json:"bounds,omitempty"`

	// Seed fixes the optimizer RNG when non-zero.
	Seed int64 `json:"seed,omitempty"`

	// MaxIterations, PopulationMultiplier and Tolerance are pass-through
	// convergence controls for the underlying optimizer; zero values keep
	// the optimizer defaults.
	MaxIterations        int     `json:"max_iterations,omitempty"`
	PopulationMultiplier int     `json:"population_multiplier,omitempty"`
	Tolerance            float64 `json:"tolerance,omitempty"`

	// Workers bounds concurrent objective evaluations inside the optimizer.
	// Zero or one keeps the serial default.
	Workers int `json:"workers,omitempty"`
}

// RadiusCalculation records the intermediate quantities of a radius-only fit.
// Nil on results produced by a full four-parameter fit.
type RadiusCalculation struct {
	RaMin    float64 `json:"ra_min"`
	RaMax    float64 `json:"ra_max"` // +Inf when there are no poor observations
	Feasible bool    `json:"feasible"`
	Branch   string  `json:"branch"` // "covering" | "accuracy_scan" | "no_good"
}

// FitResult is the immutable outcome of one optimization call.  Accuracy and
// PerSample are always recomputed from the result's own sphere and the
// training set, never carried over from a previous fit.
type FitResult struct {
	Sphere    HansenSphere       `json:"sphere"`
	LossValue float64            `json:"loss_value"`
	Accuracy  float64            `json:"accuracy"`
	Converged bool               `json:"converged"`
	PerSample []SampleDiagnostic `json:"per_sample"`

	// Details is populated only by RadiusOnlyOptimizer.
	Details *RadiusCalculation `json:"calculation_details,omitempty"`
}

// Estimator fits a full Hansen sphere (center and radius) to a training set
// by minimizing a selected loss with a global derivative-free optimizer.
// An Estimator holds no per-fit state: concurrent Fit calls are safe as long
// as each uses its own seed-derived RNG stream, which the default optimizer
// guarantees.
type Estimator struct {
	logger logging.Logger
}

// NewEstimator constructs an Estimator.  A nil logger falls back to the
// process default.
func NewEstimator(logger logging.Logger) *Estimator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Estimator{logger: logger.Named("hsp.estimator")}
}

// Fit searches (δD, δP, δH, R) minimizing the configured loss over the
// observations.  Structural input errors fail fast before any optimization;
// numerical non-convergence is not an error — the best-found sphere is
// returned with Converged set to false.
func (e *Estimator) Fit(ctx context.Context, obs []SolventObservation, opts FitOptions) (*FitResult, error) {
	if err := ValidateObservations(obs); err != nil {
		return nil, err
	}
	loss, err := NewLossFunction(opts.Loss)
	if err != nil {
		return nil, err
	}
	bounds := DefaultParameterBounds()
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	de := NewDifferentialEvolution()
	de.Seed = opts.Seed
	if opts.MaxIterations > 0 {
		de.MaxIterations = opts.MaxIterations
	}
	if opts.PopulationMultiplier > 0 {
		de.PopulationMultiplier = opts.PopulationMultiplier
	}
	if opts.Tolerance > 0 {
		de.Tolerance = opts.Tolerance
	}
	if opts.Workers > 0 {
		de.Workers = opts.Workers
	}

	objective := func(x []float64) float64 {
		sphere := HansenSphere{
			Center: HSPPoint{D: x[0], P: x[1], H: x[2]},
			Radius: x[3],
		}
		return loss.Evaluate(sphere, obs)
	}

	res, err := de.Minimize(ctx, objective, bounds.box())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeTimeout, "sphere fit cancelled")
		}
		return nil, appErrors.Wrap(err, appErrors.CodeUnknown, "sphere fit failed")
	}

	sphere := HansenSphere{
		Center: HSPPoint{D: res.X[0], P: res.X[1], H: res.X[2]},
		Radius: res.X[3],
	}
	eval := Evaluate(sphere, obs)

	if !res.Converged {
		e.logger.Warn("sphere fit stopped on iteration budget without converging",
			logging.String("loss", loss.Kind().String()),
			logging.Int("iterations", res.Iterations),
			logging.Float64("loss_value", res.F))
	} else {
		e.logger.Debug("sphere fit converged",
			logging.String("loss", loss.Kind().String()),
			logging.Int("iterations", res.Iterations),
			logging.Int("evaluations", res.Evaluations),
			logging.Float64("loss_value", res.F),
			logging.Float64("accuracy", eval.Accuracy))
	}

	return &FitResult{
		Sphere:    sphere,
		LossValue: res.F,
		Accuracy:  eval.Accuracy,
		Converged: res.Converged,
		PerSample: eval.PerSample,
	}, nil
}
