package hsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHSPPointDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    HSPPoint
		b    HSPPoint
		want float64
	}{
		{
			name: "identical points",
			a:    NewHSPPoint(15.0, 10.0, 10.0),
			b:    NewHSPPoint(15.0, 10.0, 10.0),
			want: 0,
		},
		{
			name: "dispersive axis is double weighted",
			a:    NewHSPPoint(15.0, 10.0, 10.0),
			b:    NewHSPPoint(16.0, 10.0, 10.0),
			want: 2.0, // sqrt(4*1)
		},
		{
			name: "polar axis unweighted",
			a:    NewHSPPoint(15.0, 10.0, 10.0),
			b:    NewHSPPoint(15.0, 13.0, 10.0),
			want: 3.0,
		},
		{
			name: "hydrogen bonding axis unweighted",
			a:    NewHSPPoint(15.0, 10.0, 10.0),
			b:    NewHSPPoint(15.0, 10.0, 14.0),
			want: 4.0,
		},
		{
			name: "mixed components",
			a:    NewHSPPoint(16.0, 8.0, 5.0),
			b:    NewHSPPoint(14.0, 11.0, 9.0),
			want: math.Sqrt(4*4 + 9 + 16),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.a.Distance(tt.b), 1e-12)
			assert.InDelta(t, tt.want, tt.b.Distance(tt.a), 1e-12, "distance must be symmetric")
			assert.InDelta(t, tt.want*tt.want, tt.a.DistanceSquared(tt.b), 1e-9)
		})
	}
}

func TestHSPPointDistanceSelfIsZero(t *testing.T) {
	t.Parallel()

	points := []HSPPoint{
		NewHSPPoint(0, 0, 0),
		NewHSPPoint(18.0, 1.4, 2.0),
		NewHSPPoint(15.5, 16.0, 42.3),
	}
	for _, p := range points {
		assert.Zero(t, p.Distance(p))
	}
}

func TestHSPPointIsFinite(t *testing.T) {
	t.Parallel()

	assert.True(t, NewHSPPoint(15, 10, 10).IsFinite())
	assert.False(t, NewHSPPoint(math.NaN(), 10, 10).IsFinite())
	assert.False(t, NewHSPPoint(15, math.Inf(1), 10).IsFinite())
	assert.False(t, NewHSPPoint(15, 10, math.Inf(-1)).IsFinite())
}

func TestHSPPointString(t *testing.T) {
	t.Parallel()

	s := NewHSPPoint(18.0, 1.4, 2.0).String()
	assert.Contains(t, s, "18.00")
	assert.Contains(t, s, "1.40")
	assert.Contains(t, s, "2.00")
}
