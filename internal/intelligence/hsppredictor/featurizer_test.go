package hsppredictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/mixingcompass/pkg/errors"
)

func TestFeaturizeDimension(t *testing.T) {
	t.Parallel()

	for _, smiles := range []string{
		"CC(=O)C",         // acetone
		"CCO",             // ethanol
		"c1ccccc1",        // benzene
		"CCCCCC",          // hexane
		"ClC(Cl)Cl",       // chloroform
		"CC#N",            // acetonitrile
		"C1CCOC1",         // THF
		"[Na+].[Cl-]",     // ionic
		"CCOC(=O)C",       // ethyl acetate
	} {
		f, err := Featurize(smiles)
		require.NoError(t, err, "smiles %s", smiles)
		assert.Len(t, f, FeatureDim)
	}
}

func TestFeaturizeCounts(t *testing.T) {
	t.Parallel()

	// Hexane: six carbons, nothing else.
	f, err := Featurize("CCCCCC")
	require.NoError(t, err)
	assert.InDelta(t, 6.0/20, f[0], 1e-12) // heavy atoms
	assert.InDelta(t, 6.0/20, f[1], 1e-12) // carbons
	assert.Zero(t, f[3])                   // no oxygen
	assert.Zero(t, f[15])                  // no heteroatoms

	// Benzene: aromatic ring.
	f, err = Featurize("c1ccccc1")
	require.NoError(t, err)
	assert.InDelta(t, 6.0/12, f[6], 1e-12) // aromatic atoms
	assert.InDelta(t, 1.0/4, f[7], 1e-12)  // one ring closure

	// Chloroform: three halogens.
	f, err = Featurize("ClC(Cl)Cl")
	require.NoError(t, err)
	assert.InDelta(t, 3.0/5, f[5], 1e-12)
	assert.InDelta(t, 3.0/4, f[15], 1e-12) // 3 of 4 heavy atoms are hetero

	// Acetonitrile: one nitrile, one triple bond.
	f, err = Featurize("CC#N")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, f[9], 1e-12)
	assert.InDelta(t, 1.0/2, f[13], 1e-12)
}

func TestFeaturizeInvalidSMILES(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		smiles string
	}{
		{name: "empty", smiles: "   "},
		{name: "invalid characters", smiles: "CC{}O"},
		{name: "unclosed paren", smiles: "CC(=O"},
		{name: "mismatched brackets", smiles: "C[C)O]"},
		{name: "no heavy atoms", smiles: "[H+]"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Featurize(tt.smiles)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePredictorInvalidSMILES),
				"got %s", apperrors.GetCode(err))
		})
	}
}
