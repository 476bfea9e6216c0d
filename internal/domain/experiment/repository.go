// Package experiment defines the repository interface for experiment
// persistence.
package experiment

import (
	"context"

	"github.com/turtacn/mixingcompass/pkg/types/common"
)

// SearchFilter narrows experiment listings.  Zero values match everything.
type SearchFilter struct {
	// Query matches case-insensitively against sample name and description.
	Query string

	// Tag restricts to experiments carrying the tag.
	Tag string

	// Calculated filters on whether a result snapshot exists.
	Calculated *bool

	Pagination common.Pagination
}

// Repository defines the persistence contract for Experiment aggregates.
type Repository interface {
	// Save persists a new experiment or updates an existing one based on ID.
	Save(ctx context.Context, e *Experiment) error

	// FindByID retrieves an experiment by its unique identifier.
	// Returns errors.ErrCodeExperimentNotFound if none exists.
	FindByID(ctx context.Context, id common.ID) (*Experiment, error)

	// Search performs a paginated, filtered listing ordered by most recently
	// updated first.
	Search(ctx context.Context, filter SearchFilter) ([]*Experiment, int64, error)

	// Delete removes an experiment by ID.
	// Returns errors.ErrCodeExperimentNotFound if none exists.
	Delete(ctx context.Context, id common.ID) error

	// Count returns the total number of experiments.
	Count(ctx context.Context) (int64, error)
}
