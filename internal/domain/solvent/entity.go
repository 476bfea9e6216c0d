// Package solvent provides the domain model for the solvent reference
// database: known solvents with their Hansen parameters, identifiers and
// physical properties.  Solvents come from the built-in reference table
// shipped as CSV, or are registered by users alongside their experiments.
package solvent

import (
	"fmt"
	"strings"

	"github.com/turtacn/mixingcompass/internal/domain/hsp"
	"github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Value Objects
// ─────────────────────────────────────────────────────────────────────────────

// Source records where a solvent entry came from.
type Source string

const (
	// SourceBuiltin marks entries loaded from the shipped reference CSV.
	SourceBuiltin Source = "builtin"
	// SourceUser marks entries registered through the API or CLI.
	SourceUser Source = "user"
)

// IsValid reports whether the source is one of the known values.
func (s Source) IsValid() bool {
	return s == SourceBuiltin || s == SourceUser
}

// ─────────────────────────────────────────────────────────────────────────────
// Solvent Aggregate Root
// ─────────────────────────────────────────────────────────────────────────────

// Solvent is the aggregate root for one solvent reference entry.  The Hansen
// coordinates are stored denormalized (not as a nested struct) so the
// Postgres row maps one column per parameter; HSPPoint() assembles the value
// object on demand.
type Solvent struct {
	common.BaseEntity

	Name string `json:"name"`
	CAS  string `json:"cas,omitempty"`

	// SMILES is optional; when present it enables descriptor-based HSP
	// prediction for comparison against the tabulated values.
	SMILES string `json:"smiles,omitempty"`

	DeltaD float64 `json:"delta_d"`
	DeltaP float64 `json:"delta_p"`
	DeltaH float64 `json:"delta_h"`

	// BoilingPoint in °C, zero when unknown.
	BoilingPoint float64 `json:"boiling_point,omitempty"`

	Source Source `json:"source"`
}

// NewSolvent constructs a validated user-registered solvent entry.
func NewSolvent(name, cas, smiles string, deltaD, deltaP, deltaH, boilingPoint float64) (*Solvent, error) {
	s := &Solvent{
		BaseEntity: common.BaseEntity{
			ID: common.NewID(),
		},
		Name:         strings.TrimSpace(name),
		CAS:          strings.TrimSpace(cas),
		SMILES:       strings.TrimSpace(smiles),
		DeltaD:       deltaD,
		DeltaP:       deltaP,
		DeltaH:       deltaH,
		BoilingPoint: boilingPoint,
		Source:       SourceUser,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the entry's structural invariants.
func (s *Solvent) Validate() error {
	if s.Name == "" {
		return errors.InvalidParam("solvent name cannot be empty")
	}
	if !s.HSPPoint().IsFinite() {
		return errors.New(errors.ErrCodeSolventInvalidRecord,
			"solvent Hansen parameters must be finite").
			WithDetail(fmt.Sprintf("name=%s", s.Name))
	}
	if s.DeltaD < 0 || s.DeltaP < 0 || s.DeltaH < 0 {
		return errors.New(errors.ErrCodeSolventInvalidRecord,
			"solvent Hansen parameters must be non-negative").
			WithDetail(fmt.Sprintf("name=%s δD=%g δP=%g δH=%g", s.Name, s.DeltaD, s.DeltaP, s.DeltaH))
	}
	if s.Source != "" && !s.Source.IsValid() {
		return errors.New(errors.ErrCodeSolventInvalidRecord,
			"unknown solvent source").WithDetail(string(s.Source))
	}
	return nil
}

// HSPPoint assembles the solvent's Hansen coordinates as a value object.
func (s *Solvent) HSPPoint() hsp.HSPPoint {
	return hsp.NewHSPPoint(s.DeltaD, s.DeltaP, s.DeltaH)
}

// NormalizedName is the case-folded, trimmed name used for lookups and
// deduplication.
func (s *Solvent) NormalizedName() string {
	return NormalizeName(s.Name)
}

// NormalizeName case-folds and trims a solvent name for comparison.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
