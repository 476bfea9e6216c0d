package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mixingcompass/internal/domain/hsp"
	apperrors "github.com/turtacn/mixingcompass/pkg/errors"
	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

func f64(v float64) *float64 { return &v }

func TestNewExperiment(t *testing.T) {
	t.Parallel()

	tests := []SolventTest{
		{SolventName: "acetone", Score: 1.0},
		{DeltaD: f64(14.9), DeltaP: f64(0), DeltaH: f64(0), Score: 0.0},
	}

	e, err := NewExperiment("  PLA pellets ", "solubility screen", []string{"polymer"}, tests)
	require.NoError(t, err)

	assert.Equal(t, "PLA pellets", e.SampleName)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.Len(t, e.Tests, 2)
	assert.Nil(t, e.Result)
}

func TestNewExperimentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sample   string
		tests    []SolventTest
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "empty sample name",
			sample:   "  ",
			wantCode: apperrors.CodeInvalidParam,
		},
		{
			name:     "test without identifier or coordinates",
			sample:   "PLA",
			tests:    []SolventTest{{Score: 1.0}},
			wantCode: apperrors.ErrCodeExperimentInvalidTest,
		},
		{
			name:     "score out of range",
			sample:   "PLA",
			tests:    []SolventTest{{SolventName: "acetone", Score: 1.3}},
			wantCode: apperrors.ErrCodeExperimentInvalidTest,
		},
		{
			name:     "partial coordinates without name",
			sample:   "PLA",
			tests:    []SolventTest{{DeltaD: f64(15), Score: 1.0}},
			wantCode: apperrors.ErrCodeExperimentInvalidTest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewExperiment(tt.sample, "", nil, tt.tests)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.wantCode),
				"expected %s, got %s", tt.wantCode, apperrors.GetCode(err))
		})
	}
}

func TestExperimentAddTest(t *testing.T) {
	t.Parallel()

	e, err := NewExperiment("PLA", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, e.AddTest(SolventTest{SolventName: "acetone", Score: 1.0}))
	assert.Len(t, e.Tests, 1)
	assert.False(t, e.UpdatedAt.IsZero())

	err = e.AddTest(SolventTest{SolventName: "acetone", Score: -1})
	require.Error(t, err)
	assert.Len(t, e.Tests, 1)
}

func TestExperimentSphereBeforeAndAfterCalculation(t *testing.T) {
	t.Parallel()

	e, err := NewExperiment("PLA", "", nil, []SolventTest{{SolventName: "acetone", Score: 1.0}})
	require.NoError(t, err)

	_, err = e.Sphere()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExperimentNotFitted))

	fit := &hsp.FitResult{
		Sphere:    hsp.HansenSphere{Center: hsp.NewHSPPoint(16, 9, 8), Radius: 5},
		Accuracy:  1.0,
		Converged: true,
	}
	e.SetResult(hsptypes.ModeSphere, "continuous_l2", fit)

	require.NotNil(t, e.Result)
	assert.Equal(t, hsptypes.ModeSphere, e.Result.Mode)
	assert.False(t, e.Result.FittedAt.IsZero())

	sphere, err := e.Sphere()
	require.NoError(t, err)
	assert.Equal(t, 5.0, sphere.Radius)
}

func TestValidMode(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidMode(""))
	assert.True(t, ValidMode(hsptypes.ModeSphere))
	assert.True(t, ValidMode(hsptypes.ModeRadiusOnly))
	assert.False(t, ValidMode("grid_search"))
}

func TestCalculatedEventType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "experiment.calculated", CalculatedEvent{}.EventType())
	assert.Equal(t, "experiment.deleted", DeletedEvent{}.EventType())
}
