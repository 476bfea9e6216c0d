// Package hsp implements the Hansen Solubility Parameter domain model: the
// anisotropic Hansen metric, the solubility sphere, the loss-function family,
// and the sphere-fitting optimizers built on top of them.
package hsp

import (
	"fmt"
	"math"
)

// HSPPoint is an immutable point in Hansen space: dispersion (δD), polar (δP)
// and hydrogen-bonding (δH) components, all in MPa^0.5.
type HSPPoint struct {
	D float64 `json:"d"`
	P float64 `json:"p"`
	H float64 `json:"h"`
}

// NewHSPPoint constructs an HSPPoint from its three components.
func NewHSPPoint(d, p, h float64) HSPPoint {
	return HSPPoint{D: d, P: p, H: h}
}

// Distance returns the Hansen distance between a and b:
//
//	sqrt(4·(aD−bD)² + (aP−bP)² + (aH−bH)²)
//
// The 4× weight on the dispersion axis is Hansen's empirical anisotropy; it
// makes the metric non-Euclidean, which is why 3-D renderings of a sphere of
// radius R must use a semi-axis of R/2 along δD (see HansenSphere.SemiAxes).
// NaN or infinite inputs propagate into the result untouched.
func (a HSPPoint) Distance(b HSPPoint) float64 {
	return math.Sqrt(a.DistanceSquared(b))
}

// DistanceSquared returns the squared Hansen distance between a and b.
// Preferred over Distance in hot loops that only compare magnitudes.
func (a HSPPoint) DistanceSquared(b HSPPoint) float64 {
	dd := a.D - b.D
	dp := a.P - b.P
	dh := a.H - b.H
	return 4*dd*dd + dp*dp + dh*dh
}

// IsFinite reports whether all three components are finite numbers.
func (a HSPPoint) IsFinite() bool {
	return !math.IsNaN(a.D) && !math.IsInf(a.D, 0) &&
		!math.IsNaN(a.P) && !math.IsInf(a.P, 0) &&
		!math.IsNaN(a.H) && !math.IsInf(a.H, 0)
}

func (a HSPPoint) String() string {
	return fmt.Sprintf("HSP(δD=%.2f, δP=%.2f, δH=%.2f)", a.D, a.P, a.H)
}
