package hsp

import (
	"fmt"

	"github.com/turtacn/mixingcompass/pkg/errors"
)

// HansenSphere is the fitted solubility region: a center in Hansen space and
// an interaction radius.  It acts as a binary classifier — a solvent with
// RED < 1 relative to the sphere is predicted compatible.
type HansenSphere struct {
	Center HSPPoint `json:"center"`
	Radius float64  `json:"radius"`
}

// RED returns the Relative Energy Difference of p with respect to the sphere:
// Hansen distance from the center divided by the radius.  Always ≥ 0 for a
// positive radius.
func (s HansenSphere) RED(p HSPPoint) float64 {
	return s.Center.Distance(p) / s.Radius
}

// Contains reports whether p lies strictly inside the sphere (RED < 1).
func (s HansenSphere) Contains(p HSPPoint) bool {
	return s.RED(p) < 1.0
}

// SemiAxes returns the ellipsoid semi-axes (along δD, δP, δH) to use when
// rendering the sphere in true Euclidean space.  The 4× dispersion weight in
// the Hansen metric compresses the δD axis, so a geometrically faithful
// drawing uses Radius/2 along δD and Radius along δP and δH.
func (s HansenSphere) SemiAxes() (d, p, h float64) {
	return s.Radius / 2, s.Radius, s.Radius
}

// Validate checks the structural invariants of a fitted sphere.
func (s HansenSphere) Validate() error {
	if !s.Center.IsFinite() {
		return errors.New(errors.ErrCodeHSPInvalidParameter, "sphere center has non-finite coordinates")
	}
	if s.Radius <= 0 {
		return errors.Newf(errors.ErrCodeHSPInvalidParameter, "sphere radius must be > 0, got %g", s.Radius)
	}
	return nil
}

func (s HansenSphere) String() string {
	return fmt.Sprintf("Sphere{center=%s, R=%.2f}", s.Center, s.Radius)
}
