// Package experiment defines the experiment Data Transfer Objects shared by
// the HTTP API, the CLI and the client SDK.
package experiment

import (
	"time"

	hsptypes "github.com/turtacn/mixingcompass/pkg/types/hsp"
)

// CreateRequest opens a new experiment for a sample material.
type CreateRequest struct {
	SampleName  string   `json:"sample_name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Tests may be empty at creation and appended later; the calculation
	// endpoint enforces the two-observation minimum.
	Tests []hsptypes.SolventTestInput `json:"tests,omitempty"`
}

// CalculateOptions tunes a calculation run on an existing experiment.  The
// observations always come from the experiment's own tests.
type CalculateOptions struct {
	Mode         string  `json:"mode,omitempty"`
	Loss         string  `json:"loss,omitempty"`
	SizeFactor   float64 `json:"size_factor,omitempty"`
	AccuracyScan bool    `json:"accuracy_scan,omitempty"`
	Seed         int64   `json:"seed,omitempty"`
}

// SearchRequest filters experiment listings.
type SearchRequest struct {
	Query      string `json:"query,omitempty"`
	Tag        string `json:"tag,omitempty"`
	Calculated *bool  `json:"calculated,omitempty"`
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
}

// ResultDTO is the recorded outcome of the latest calculation.
type ResultDTO struct {
	Mode        string                      `json:"mode"`
	FittedAt    time.Time                   `json:"fitted_at"`
	Calculation *hsptypes.CalculateResponse `json:"calculation"`
}

// ExperimentDTO is the transport representation of one experiment.
type ExperimentDTO struct {
	ID          string                      `json:"id"`
	SampleName  string                      `json:"sample_name"`
	Description string                      `json:"description,omitempty"`
	Tags        []string                    `json:"tags,omitempty"`
	Tests       []hsptypes.SolventTestInput `json:"tests"`
	Result      *ResultDTO                  `json:"result,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// ListResponse is a paginated experiment listing.
type ListResponse struct {
	Experiments []*ExperimentDTO `json:"experiments"`
	Total       int64            `json:"total"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
	TotalPages  int              `json:"total_pages"`
}
