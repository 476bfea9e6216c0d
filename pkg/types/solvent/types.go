// Package solvent defines the solvent-database Data Transfer Objects and
// request/response structures shared across the application, interface, and
// client layers.  No domain logic lives here — only plain data types that are
// safe to import from any layer without creating circular dependencies.
package solvent

import (
	"github.com/turtacn/mixingcompass/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// SolventDTO — cross-layer representation of one solvent entry
// ─────────────────────────────────────────────────────────────────────────────

// SolventDTO is the canonical solvent representation passed between layers.
type SolventDTO struct {
	common.BaseEntity

	// Name is the common solvent name, e.g. "acetone".
	Name string `json:"name"`

	// CAS is the CAS registry number, e.g. "67-64-1"; empty when unknown.
	CAS string `json:"cas,omitempty"`

	// SMILES is the structure string; empty when unknown.
	SMILES string `json:"smiles,omitempty"`

	// Hansen parameters in MPa^0.5.
	DeltaD float64 `json:"delta_d"`
	DeltaP float64 `json:"delta_p"`
	DeltaH float64 `json:"delta_h"`

	// BoilingPoint in °C; zero when unknown.
	BoilingPoint float64 `json:"boiling_point,omitempty"`

	// Source is "builtin" for the shipped reference table, "user" for
	// user-registered entries.
	Source string `json:"source"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Requests / Responses
// ─────────────────────────────────────────────────────────────────────────────

// RangeFilter bounds one Hansen coordinate in a search.  A nil bound leaves
// that side open.
type RangeFilter struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// SearchRequest filters the solvent table.  All filters are conjunctive;
// empty filters match everything.
type SearchRequest struct {
	// Query matches case-insensitively against name and CAS number.
	Query string `json:"query,omitempty"`

	// Hansen coordinate ranges.
	DeltaD *RangeFilter `json:"delta_d,omitempty"`
	DeltaP *RangeFilter `json:"delta_p,omitempty"`
	DeltaH *RangeFilter `json:"delta_h,omitempty"`

	// Source restricts to "builtin" or "user" entries when non-empty.
	Source string `json:"source,omitempty"`

	Pagination common.Pagination `json:"pagination"`
}

// SearchResponse is a page of matching solvents.
type SearchResponse struct {
	Items      []SolventDTO      `json:"items"`
	Pagination common.Pagination `json:"pagination"`
}

// CreateRequest registers a user solvent.
type CreateRequest struct {
	Name         string  `json:"name"`
	CAS          string  `json:"cas,omitempty"`
	SMILES       string  `json:"smiles,omitempty"`
	DeltaD       float64 `json:"delta_d"`
	DeltaP       float64 `json:"delta_p"`
	DeltaH       float64 `json:"delta_h"`
	BoilingPoint float64 `json:"boiling_point,omitempty"`
}

// ImportSummary reports the outcome of a CSV import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
