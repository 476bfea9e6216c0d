package hsp

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/mixingcompass/pkg/errors"
)

// LossKind selects the objective formulation minimized during sphere fitting.
type LossKind string

const (
	// LossBoundaryDistance is an L1 penalty for being on the wrong side of the
	// RED=1 boundary; partial samples are pulled onto the boundary itself.
	LossBoundaryDistance LossKind = "boundary_distance"

	// LossProportionalBoundary weights the inside/outside boundary penalties
	// by the continuous score, so it is smooth for any y ∈ [0,1].
	LossProportionalBoundary LossKind = "proportional_boundary"

	// LossLogBarrier is an interior-point style barrier that grows steeply as
	// samples approach the boundary from their correct side, with a heavy
	// linear penalty once the constraint is violated.
	LossLogBarrier LossKind = "log_barrier"

	// LossNormalizedDistance minimizes RED directly for good samples and
	// 1/RED for poor samples.
	LossNormalizedDistance LossKind = "normalized_distance"

	// LossCrossEntropy maps RED to a pseudo-probability p = 1/(1+RED²) and
	// applies standard cross-entropy against the continuous score.
	LossCrossEntropy LossKind = "cross_entropy"

	// LossContinuousL2 is the quadratic variant of boundary_distance using the
	// continuous score as a weight.  It is the platform default.
	LossContinuousL2 LossKind = "continuous_l2"
)

// DefaultLossKind is used when a fit request does not name a loss.
const DefaultLossKind = LossContinuousL2

// Numerical-stability guards.  These are not tunable parameters: they only
// prevent log(0) and division by zero.
const (
	barrierEpsilon      = 1e-6
	recipEpsilon        = 1e-6
	crossEntropyEpsilon = 1e-7

	// barrierViolationSlope is the linear penalty slope applied by the log
	// barrier once a sample crosses to the wrong side of the boundary.
	barrierViolationSlope = 10.0
)

// IsValid checks if the loss kind is one of the known variants.
func (k LossKind) IsValid() bool {
	switch k {
	case LossBoundaryDistance, LossProportionalBoundary, LossLogBarrier,
		LossNormalizedDistance, LossCrossEntropy, LossContinuousL2:
		return true
	default:
		return false
	}
}

// String returns the string representation of the loss kind.
func (k LossKind) String() string {
	return string(k)
}

// ParseLossKind parses a string into a LossKind.
func ParseLossKind(s string) (LossKind, error) {
	k := LossKind(s)
	if k.IsValid() {
		return k, nil
	}
	return "", errors.New(errors.ErrCodeHSPUnknownLoss, "unknown loss function: "+s)
}

// LossConfig carries the loss selection and its regularization settings by
// value into a fit call.
type LossConfig struct {
	// Kind names the objective; empty selects DefaultLossKind.
	Kind LossKind `json:"kind"`

	// SizeFactor ≥ 0 adds SizeFactor·R² to every loss to discourage
	// arbitrarily large spheres; 0 disables the penalty.
	SizeFactor float64 `json:"size_factor"`
}

// Validate checks the configuration before a fit begins.
func (c LossConfig) Validate() error {
	if c.Kind != "" && !c.Kind.IsValid() {
		return errors.New(errors.ErrCodeHSPUnknownLoss, "unknown loss function: "+string(c.Kind))
	}
	if c.SizeFactor < 0 {
		return errors.Newf(errors.ErrCodeHSPInvalidParameter,
			"size_factor must be ≥ 0, got %g", c.SizeFactor)
	}
	return nil
}

// LossFunction scores a candidate sphere against a training set; lower is
// better.  Implementations are pure: they hold only immutable configuration
// and may be shared across concurrent fits.
type LossFunction interface {
	// Evaluate returns the mean per-sample loss for the candidate sphere,
	// including the optional size penalty.  Total over finite radii > 0;
	// radius 0 is excluded upstream by the optimizer bounds.
	Evaluate(sphere HansenSphere, obs []SolventObservation) float64

	// Kind identifies the variant.
	Kind() LossKind
}

// NewLossFunction constructs the LossFunction for cfg.Kind.
func NewLossFunction(cfg LossConfig) (LossFunction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind := cfg.Kind
	if kind == "" {
		kind = DefaultLossKind
	}
	switch kind {
	case LossBoundaryDistance:
		return &boundaryDistanceLoss{sizeFactor: cfg.SizeFactor}, nil
	case LossProportionalBoundary:
		return &proportionalBoundaryLoss{sizeFactor: cfg.SizeFactor}, nil
	case LossLogBarrier:
		return &logBarrierLoss{sizeFactor: cfg.SizeFactor}, nil
	case LossNormalizedDistance:
		return &normalizedDistanceLoss{sizeFactor: cfg.SizeFactor}, nil
	case LossCrossEntropy:
		return &crossEntropyLoss{sizeFactor: cfg.SizeFactor}, nil
	case LossContinuousL2:
		return &continuousL2Loss{sizeFactor: cfg.SizeFactor}, nil
	default:
		return nil, errors.New(errors.ErrCodeHSPUnknownLoss, "unknown loss function: "+string(kind))
	}
}

// AllLossKinds returns every selectable loss variant, in a stable order.
func AllLossKinds() []LossKind {
	return []LossKind{
		LossBoundaryDistance,
		LossProportionalBoundary,
		LossLogBarrier,
		LossNormalizedDistance,
		LossCrossEntropy,
		LossContinuousL2,
	}
}

// meanWithSizePenalty averages the per-sample losses and applies the optional
// R² regularization.
func meanWithSizePenalty(perSample []float64, radius, sizeFactor float64) float64 {
	base := stat.Mean(perSample, nil)
	if sizeFactor > 0 {
		return base + sizeFactor*radius*radius
	}
	return base
}

// ─────────────────────────────────────────────────────────────────────────────
// boundary_distance
// ─────────────────────────────────────────────────────────────────────────────

type boundaryDistanceLoss struct {
	sizeFactor float64
}

// Evaluate computes the L1 distance from each sample's theoretically correct
// region: good samples pay max(0, RED−1), poor samples pay max(0, 1−RED), and
// partial samples pay |RED−1|.  Zero exactly when every good sample sits at
// RED ≤ 1 and every poor sample at RED ≥ 1.
func (l *boundaryDistanceLoss) Evaluate(sphere HansenSphere, obs []SolventObservation) float64 {
	perSample := make([]float64, len(obs))
	for i, o := range obs {
		red := sphere.RED(o.Point)
		switch o.Score {
		case 1.0:
			perSample[i] = math.Max(0, red-1)
		case 0.0:
			perSample[i] = math.Max(0, 1-red)
		default:
			perSample[i] = math.Abs(red - 1)
		}
	}
	return meanWithSizePenalty(perSample, sphere.Radius, l.sizeFactor)
}

func (l *boundaryDistanceLoss) Kind() LossKind { return LossBoundaryDistance }

// ─────────────────────────────────────────────────────────────────────────────
// proportional_boundary
// ─────────────────────────────────────────────────────────────────────────────

type proportionalBoundaryLoss struct {
	sizeFactor float64
}

// Evaluate uses the continuous score directly as a weight:
// y·max(0,RED−1) + (1−y)·max(0,1−RED).
func (l *proportionalBoundaryLoss) Evaluate(sphere HansenSphere, obs []SolventObservation) float64 {
	perSample := make([]float64, len(obs))
	for i, o := range obs {
		red := sphere.RED(o.Point)
		outside := math.Max(0, red-1)
		inside := math.Max(0, 1-red)
		perSample[i] = o.Score*outside + (1-o.Score)*inside
	}
	return meanWithSizePenalty(perSample, sphere.Radius, l.sizeFactor)
}

func (l *proportionalBoundaryLoss) Kind() LossKind { return LossProportionalBoundary }

// ─────────────────────────────────────────────────────────────────────────────
// log_barrier
// ─────────────────────────────────────────────────────────────────────────────

type logBarrierLoss struct {
	sizeFactor float64
}

// Evaluate applies an interior-point barrier: good samples pay −log(1−RED+ε)
// while RED < 1−ε and a heavy linear penalty beyond; poor samples mirror this
// around RED = 1; partial samples pay |RED−1|.
func (l *logBarrierLoss) Evaluate(sphere HansenSphere, obs []SolventObservation) float64 {
	perSample := make([]float64, len(obs))
	for i, o := range obs {
		red := sphere.RED(o.Point)
		switch o.Score {
		case 1.0:
			if red < 1-barrierEpsilon {
				perSample[i] = -math.Log(1 - red + barrierEpsilon)
			} else {
				perSample[i] = barrierViolationSlope * (red - 1 + barrierEpsilon)
			}
		case 0.0:
			if red > 1+barrierEpsilon {
				perSample[i] = -math.Log(red - 1 + barrierEpsilon)
			} else {
				perSample[i] = barrierViolationSlope * (1 + barrierEpsilon - red)
			}
		default:
			perSample[i] = math.Abs(red - 1)
		}
	}
	return meanWithSizePenalty(perSample, sphere.Radius, l.sizeFactor)
}

func (l *logBarrierLoss) Kind() LossKind { return LossLogBarrier }

// ─────────────────────────────────────────────────────────────────────────────
// normalized_distance
// ─────────────────────────────────────────────────────────────────────────────

type normalizedDistanceLoss struct {
	sizeFactor float64
}

// Evaluate minimizes RED directly for good samples, 1/(RED+ε) for poor
// samples, and |RED−1| for partial samples.
func (l *normalizedDistanceLoss) Evaluate(sphere HansenSphere, obs []SolventObservation) float64 {
	perSample := make([]float64, len(obs))
	for i, o := range obs {
		red := sphere.RED(o.Point)
		switch o.Score {
		case 1.0:
			perSample[i] = red
		case 0.0:
			perSample[i] = 1.0 / (red + recipEpsilon)
		default:
			perSample[i] = math.Abs(red - 1)
		}
	}
	return meanWithSizePenalty(perSample, sphere.Radius, l.sizeFactor)
}

func (l *normalizedDistanceLoss) Kind() LossKind { return LossNormalizedDistance }

// ─────────────────────────────────────────────────────────────────────────────
// cross_entropy
// ─────────────────────────────────────────────────────────────────────────────

type crossEntropyLoss struct {
	sizeFactor float64
}

// Evaluate maps RED to p(soluble) = 1/(1+RED²) — RED=0 → p=1, RED=1 → p=0.5,
// RED→∞ → p=0 — and applies cross-entropy against the continuous score.  At
// RED == 1 each sample contributes exactly ln(2) regardless of its label.
func (l *crossEntropyLoss) Evaluate(sphere HansenSphere, obs []SolventObservation) float64 {
	perSample := make([]float64, len(obs))
	for i, o := range obs {
		red := sphere.RED(o.Point)
		p := 1.0 / (1.0 + red*red)
		p = math.Min(math.Max(p, crossEntropyEpsilon), 1-crossEntropyEpsilon)
		perSample[i] = -(o.Score*math.Log(p) + (1-o.Score)*math.Log(1-p))
	}
	return meanWithSizePenalty(perSample, sphere.Radius, l.sizeFactor)
}

func (l *crossEntropyLoss) Kind() LossKind { return LossCrossEntropy }

// ─────────────────────────────────────────────────────────────────────────────
// continuous_l2 (default)
// ─────────────────────────────────────────────────────────────────────────────

type continuousL2Loss struct {
	sizeFactor float64
}

// Evaluate is the quadratic, score-weighted boundary penalty:
// y·max(0,RED−1)² + (1−y)·max(0,1−RED)².
func (l *continuousL2Loss) Evaluate(sphere HansenSphere, obs []SolventObservation) float64 {
	perSample := make([]float64, len(obs))
	for i, o := range obs {
		red := sphere.RED(o.Point)
		outside := math.Max(0, red-1)
		inside := math.Max(0, 1-red)
		perSample[i] = o.Score*outside*outside + (1-o.Score)*inside*inside
	}
	return meanWithSizePenalty(perSample, sphere.Radius, l.sizeFactor)
}

func (l *continuousL2Loss) Kind() LossKind { return LossContinuousL2 }
