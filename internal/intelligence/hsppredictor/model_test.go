package hsppredictor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mixingcompass/internal/testutil"
	apperrors "github.com/turtacn/mixingcompass/pkg/errors"
)

func TestDefaultWeightsValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultWeights().Validate())
}

func TestPredict(t *testing.T) {
	t.Parallel()

	p := NewPredictor(testutil.NewMockLogger())

	pred, err := p.Predict(context.Background(), "CCO")
	require.NoError(t, err)

	assert.Equal(t, "CCO", pred.SMILES)
	assert.Equal(t, "builtin-1", pred.ModelVersion)

	// Predictions stay inside the per-head clamp ranges.
	assert.GreaterOrEqual(t, pred.DeltaD, 12.0)
	assert.LessOrEqual(t, pred.DeltaD, 25.0)
	assert.GreaterOrEqual(t, pred.DeltaP, 0.0)
	assert.LessOrEqual(t, pred.DeltaP, 30.0)
	assert.GreaterOrEqual(t, pred.DeltaH, 0.0)
	assert.LessOrEqual(t, pred.DeltaH, 45.0)
}

func TestPredictPolarVersusApolar(t *testing.T) {
	t.Parallel()

	p := NewPredictor(testutil.NewMockLogger())

	ethanol, err := p.Predict(context.Background(), "CCO")
	require.NoError(t, err)
	hexane, err := p.Predict(context.Background(), "CCCCCC")
	require.NoError(t, err)

	// The baseline model must at least order hydrogen bonding correctly:
	// ethanol's hydroxyl dominates hexane's pure hydrocarbon chain.
	assert.Greater(t, ethanol.DeltaH, hexane.DeltaH)
	assert.Greater(t, ethanol.DeltaP, hexane.DeltaP)
}

func TestPredictInvalidSMILES(t *testing.T) {
	t.Parallel()

	p := NewPredictor(testutil.NewMockLogger())
	_, err := p.Predict(context.Background(), "not a smiles!")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePredictorInvalidSMILES))
}

func TestPredictCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPredictor(testutil.NewMockLogger())
	_, err := p.Predict(ctx, "CCO")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTimeout))
}

func TestLoadWeights(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	w.Version = "retrained-7"
	data, err := json.Marshal(w)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p := NewPredictor(testutil.NewMockLogger())
	require.NoError(t, p.LoadWeights(path))

	pred, err := p.Predict(context.Background(), "CCO")
	require.NoError(t, err)
	assert.Equal(t, "retrained-7", pred.ModelVersion)
}

func TestLoadWeightsErrors(t *testing.T) {
	t.Parallel()

	p := NewPredictor(testutil.NewMockLogger())

	err := p.LoadWeights(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePredictorModelNotLoaded))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	err = p.LoadWeights(bad)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePredictorModelNotLoaded))

	// Wrong coefficient dimension fails validation and keeps the old model.
	short := DefaultWeights()
	short.DeltaD.Coef = short.DeltaD.Coef[:3]
	data, err := json.Marshal(short)
	require.NoError(t, err)
	shortPath := filepath.Join(t.TempDir(), "short.json")
	require.NoError(t, os.WriteFile(shortPath, data, 0o644))
	err = p.LoadWeights(shortPath)
	require.Error(t, err)

	pred, err := p.Predict(context.Background(), "CCO")
	require.NoError(t, err)
	assert.Equal(t, "builtin-1", pred.ModelVersion)
}
