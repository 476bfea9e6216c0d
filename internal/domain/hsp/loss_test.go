package hsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/mixingcompass/pkg/errors"
)

func TestParseLossKind(t *testing.T) {
	t.Parallel()

	for _, k := range AllLossKinds() {
		got, err := ParseLossKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
		assert.True(t, k.IsValid())
	}

	_, err := ParseLossKind("huber")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeHSPUnknownLoss))

	assert.False(t, LossKind("").IsValid())
	assert.Equal(t, LossContinuousL2, DefaultLossKind)
}

func TestNewLossFunction(t *testing.T) {
	t.Parallel()

	for _, k := range AllLossKinds() {
		fn, err := NewLossFunction(LossConfig{Kind: k})
		require.NoError(t, err)
		assert.Equal(t, k, fn.Kind())
	}

	// Zero-valued kind falls back to the default loss.
	fn, err := NewLossFunction(LossConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLossKind, fn.Kind())

	_, err = NewLossFunction(LossConfig{Kind: "huber"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeHSPUnknownLoss))

	_, err = NewLossFunction(LossConfig{Kind: DefaultLossKind, SizeFactor: -0.1})
	require.Error(t, err)
}

// Observations around a fixed sphere with hand-computable RED values.
func lossTestSphere() HansenSphere {
	return HansenSphere{Center: NewHSPPoint(15.0, 10.0, 10.0), Radius: 5.0}
}

func obsAtRED(red, score float64) SolventObservation {
	// Move along the unweighted δP axis so distance == red * radius.
	return SolventObservation{
		Name:  "sample",
		Point: NewHSPPoint(15.0, 10.0+red*5.0, 10.0),
		Score: score,
	}
}

func evalLoss(t *testing.T, kind LossKind, sizeFactor float64, obs ...SolventObservation) float64 {
	t.Helper()
	fn, err := NewLossFunction(LossConfig{Kind: kind, SizeFactor: sizeFactor})
	require.NoError(t, err)
	return fn.Evaluate(lossTestSphere(), obs)
}

func TestBoundaryDistanceLoss(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		obs  SolventObservation
		want float64
	}{
		{name: "good inside is free", obs: obsAtRED(0.4, 1.0), want: 0},
		{name: "good on boundary is free", obs: obsAtRED(1.0, 1.0), want: 0},
		{name: "good outside pays linearly", obs: obsAtRED(2.0, 1.0), want: 1.0},
		{name: "poor outside is free", obs: obsAtRED(2.0, 0.0), want: 0},
		{name: "poor on boundary is free", obs: obsAtRED(1.0, 0.0), want: 0},
		{name: "poor inside pays linearly", obs: obsAtRED(0.4, 0.0), want: 0.6},
		{name: "partial pays distance to boundary", obs: obsAtRED(0.4, 0.5), want: 0.6},
		{name: "partial on boundary is free", obs: obsAtRED(1.0, 0.5), want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, evalLoss(t, LossBoundaryDistance, 0, tt.obs), 1e-9)
		})
	}
}

func TestBoundaryDistanceLossZeroOnCorrectSides(t *testing.T) {
	t.Parallel()

	// Every good sample with RED ≤ 1 and every poor sample with RED ≥ 1
	// contributes nothing.
	obs := []SolventObservation{
		obsAtRED(0.0, 1.0),
		obsAtRED(0.5, 1.0),
		obsAtRED(1.0, 1.0),
		obsAtRED(1.0, 0.0),
		obsAtRED(1.5, 0.0),
		obsAtRED(3.0, 0.0),
	}
	assert.Zero(t, evalLoss(t, LossBoundaryDistance, 0, obs...))

	// One sample on the wrong side makes it strictly positive.
	obs = append(obs, obsAtRED(1.2, 1.0))
	assert.Greater(t, evalLoss(t, LossBoundaryDistance, 0, obs...), 0.0)
}

func TestProportionalBoundaryLoss(t *testing.T) {
	t.Parallel()

	// Continuous score weights the two penalties directly.
	assert.InDelta(t, 0.0, evalLoss(t, LossProportionalBoundary, 0, obsAtRED(0.4, 1.0)), 1e-9)
	assert.InDelta(t, 1.0, evalLoss(t, LossProportionalBoundary, 0, obsAtRED(2.0, 1.0)), 1e-9)
	assert.InDelta(t, 0.6, evalLoss(t, LossProportionalBoundary, 0, obsAtRED(0.4, 0.0)), 1e-9)
	// y=0.5 at RED 0.4: 0.5·0 + 0.5·0.6.
	assert.InDelta(t, 0.3, evalLoss(t, LossProportionalBoundary, 0, obsAtRED(0.4, 0.5)), 1e-9)
	// y=0.5 at RED 2.0: 0.5·1.0 + 0.5·0.
	assert.InDelta(t, 0.5, evalLoss(t, LossProportionalBoundary, 0, obsAtRED(2.0, 0.5)), 1e-9)
}

func TestLogBarrierLoss(t *testing.T) {
	t.Parallel()

	// Good solvent well inside: interior barrier −log(1−RED+ε).
	assert.InDelta(t, -math.Log(0.6+barrierEpsilon),
		evalLoss(t, LossLogBarrier, 0, obsAtRED(0.4, 1.0)), 1e-9)

	// Good solvent outside: linear violation penalty with slope 10.
	assert.InDelta(t, barrierViolationSlope*(2.0-1+barrierEpsilon),
		evalLoss(t, LossLogBarrier, 0, obsAtRED(2.0, 1.0)), 1e-9)

	// Poor solvent well outside: mirrored barrier −log(RED−1+ε).
	assert.InDelta(t, -math.Log(1.0+barrierEpsilon),
		evalLoss(t, LossLogBarrier, 0, obsAtRED(2.0, 0.0)), 1e-9)

	// Poor solvent inside: linear violation penalty.
	assert.InDelta(t, barrierViolationSlope*(1+barrierEpsilon-0.4),
		evalLoss(t, LossLogBarrier, 0, obsAtRED(0.4, 0.0)), 1e-9)

	// Partial: plain distance to the boundary.
	assert.InDelta(t, 0.6, evalLoss(t, LossLogBarrier, 0, obsAtRED(0.4, 0.5)), 1e-9)

	// The barrier steepens as a good solvent approaches the boundary.
	assert.Greater(t,
		evalLoss(t, LossLogBarrier, 0, obsAtRED(0.9, 1.0)),
		evalLoss(t, LossLogBarrier, 0, obsAtRED(0.5, 1.0)))
}

func TestNormalizedDistanceLoss(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.4, evalLoss(t, LossNormalizedDistance, 0, obsAtRED(0.4, 1.0)), 1e-9)
	assert.InDelta(t, 1.0/(2.0+recipEpsilon),
		evalLoss(t, LossNormalizedDistance, 0, obsAtRED(2.0, 0.0)), 1e-9)
	assert.InDelta(t, 0.6, evalLoss(t, LossNormalizedDistance, 0, obsAtRED(0.4, 0.5)), 1e-9)

	// A poor solvent at the center is finite thanks to the reciprocal guard.
	v := evalLoss(t, LossNormalizedDistance, 0, obsAtRED(0.0, 0.0))
	assert.False(t, math.IsInf(v, 1))
	assert.InDelta(t, 1.0/recipEpsilon, v, 1.0)
}

func TestCrossEntropyLoss(t *testing.T) {
	t.Parallel()

	// At RED == 1, p == 0.5 and the contribution is ln 2 for either label.
	assert.InDelta(t, math.Ln2, evalLoss(t, LossCrossEntropy, 0, obsAtRED(1.0, 1.0)), 1e-6)
	assert.InDelta(t, math.Ln2, evalLoss(t, LossCrossEntropy, 0, obsAtRED(1.0, 0.0)), 1e-6)
	assert.InDelta(t, math.Ln2, evalLoss(t, LossCrossEntropy, 0, obsAtRED(1.0, 0.5)), 1e-6)

	// A good solvent at the center is a perfect prediction.
	assert.InDelta(t, 0.0, evalLoss(t, LossCrossEntropy, 0, obsAtRED(0.0, 1.0)), 1e-6)

	// Clipping keeps extreme RED values finite.
	assert.False(t, math.IsInf(evalLoss(t, LossCrossEntropy, 0, obsAtRED(1e6, 1.0)), 1))
}

func TestContinuousL2Loss(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, evalLoss(t, LossContinuousL2, 0, obsAtRED(0.4, 1.0)), 1e-9)
	assert.InDelta(t, 1.0, evalLoss(t, LossContinuousL2, 0, obsAtRED(2.0, 1.0)), 1e-9)
	assert.InDelta(t, 0.36, evalLoss(t, LossContinuousL2, 0, obsAtRED(0.4, 0.0)), 1e-9)
	// y=0.5 at RED 0.4: 0.5·0 + 0.5·0.36.
	assert.InDelta(t, 0.18, evalLoss(t, LossContinuousL2, 0, obsAtRED(0.4, 0.5)), 1e-9)
}

func TestSizeFactorPenalty(t *testing.T) {
	t.Parallel()

	// size_factor adds exactly sizeFactor·R² on top of the mean loss.
	obs := []SolventObservation{obsAtRED(0.4, 1.0), obsAtRED(2.0, 0.0)}
	for _, k := range AllLossKinds() {
		base := evalLoss(t, k, 0, obs...)
		penalized := evalLoss(t, k, 0.01, obs...)
		assert.InDelta(t, base+0.01*25.0, penalized, 1e-9, "loss %s", k)
	}
}

func TestLossMeanOverSamples(t *testing.T) {
	t.Parallel()

	// Two wrong-side samples average their individual penalties.
	a := obsAtRED(2.0, 1.0) // penalty 1.0
	b := obsAtRED(0.5, 0.0) // penalty 0.5
	assert.InDelta(t, 0.75, evalLoss(t, LossBoundaryDistance, 0, a, b), 1e-9)
}
