// Package hsp defines the Hansen-fitting Data Transfer Objects shared by the
// HTTP API, the CLI and the client SDK.  No domain logic lives here — only
// plain data types safe to import from any layer.
package hsp

// Fit modes accepted by calculation requests.
const (
	// ModeSphere fits all four parameters (δD, δP, δH, R) at once.
	ModeSphere = "sphere"
	// ModeRadiusOnly fits the center first, then derives the radius
	// geometrically from the good/poor split.
	ModeRadiusOnly = "radius_only"
)

// ─────────────────────────────────────────────────────────────────────────────
// Requests
// ─────────────────────────────────────────────────────────────────────────────

// SolventTestInput is one tested solvent in a calculation request.  Either
// SolventName/CAS (resolved against the solvent database) or explicit
// coordinates must be provided; explicit coordinates win when both are set.
type SolventTestInput struct {
	SolventName string `json:"solvent_name,omitempty"`

	DeltaD *float64 `json:"delta_d,omitempty"`
	DeltaP *float64 `json:"delta_p,omitempty"`
	DeltaH *float64 `json:"delta_h,omitempty"`

	// Score is the observed solubility: 1.0 good, 0.0 poor, intermediate
	// values for graded outcomes.
	Score float64 `json:"score"`
}

// HasCoordinates reports whether all three manual coordinates are set.
func (t SolventTestInput) HasCoordinates() bool {
	return t.DeltaD != nil && t.DeltaP != nil && t.DeltaH != nil
}

// CalculateRequest configures one sphere calculation.
type CalculateRequest struct {
	Tests []SolventTestInput `json:"tests"`

	// Loss selects the objective by name; empty picks the default
	// (continuous_l2).  Ignored by radius_only mode, which always uses
	// cross_entropy for its center fit.
	Loss string `json:"loss,omitempty"`

	// SizeFactor adds sizeFactor·R² to the loss; 0 disables the penalty.
	SizeFactor float64 `json:"size_factor,omitempty"`

	// Mode is ModeSphere (default) or ModeRadiusOnly.
	Mode string `json:"mode,omitempty"`

	// AccuracyScan enables the radius_only fallback scan when perfect
	// separation is infeasible.
	AccuracyScan bool `json:"accuracy_scan,omitempty"`

	// Seed makes the optimizer deterministic when non-zero.
	Seed int64 `json:"seed,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Responses
// ─────────────────────────────────────────────────────────────────────────────

// SphereDTO is the fitted Hansen sphere.
type SphereDTO struct {
	DeltaD float64 `json:"delta_d"`
	DeltaP float64 `json:"delta_p"`
	DeltaH float64 `json:"delta_h"`
	Radius float64 `json:"radius"`
}

// SampleResultDTO is the per-solvent classification diagnostic.
type SampleResultDTO struct {
	Name            string  `json:"name,omitempty"`
	RED             float64 `json:"red"`
	PredictedInside bool    `json:"predicted_inside"`
	Correct         bool    `json:"correct"`
}

// CalculationDetailsDTO carries the radius-only intermediate quantities.
// RaMax is nil when no poor observation bounds the radius (the +∞ case,
// which JSON cannot represent as a number).
type CalculationDetailsDTO struct {
	RaMin    float64  `json:"ra_min"`
	RaMax    *float64 `json:"ra_max,omitempty"`
	Feasible bool     `json:"feasible"`
	Branch   string   `json:"branch"`
}

// CalculateResponse is the outcome of one calculation.
type CalculateResponse struct {
	Sphere    SphereDTO              `json:"sphere"`
	Loss      string                 `json:"loss"`
	LossValue float64                `json:"loss_value"`
	Accuracy  float64                `json:"accuracy"`
	Converged bool                   `json:"converged"`
	PerSample []SampleResultDTO      `json:"per_sample"`
	Details   *CalculationDetailsDTO `json:"calculation_details,omitempty"`
}

// LossFunctionInfo describes one available loss variant for discovery
// endpoints.
type LossFunctionInfo struct {
	Name        string `json:"name"`
	Default     bool   `json:"default,omitempty"`
	Description string `json:"description"`
}
