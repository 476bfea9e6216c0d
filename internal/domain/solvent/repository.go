// Package solvent defines the repository interface for solvent persistence.
package solvent

import (
	"context"

	"github.com/turtacn/mixingcompass/pkg/types/common"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// Repository defines the persistence contract for Solvent aggregates.
// Lookups by name are case-insensitive against the normalized name.
type Repository interface {
	// Save persists a new solvent or updates an existing one based on ID.
	// Returns errors.ErrCodeSolventAlreadyExists when a different entry with
	// the same normalized name already exists.
	Save(ctx context.Context, s *Solvent) error

	// FindByID retrieves a solvent by its unique identifier.
	// Returns errors.ErrCodeSolventNotFound if none exists.
	FindByID(ctx context.Context, id common.ID) (*Solvent, error)

	// FindByName retrieves a solvent by its normalized name.
	// Returns errors.ErrCodeSolventNotFound if none exists.
	FindByName(ctx context.Context, name string) (*Solvent, error)

	// FindByCAS retrieves a solvent by its CAS registry number.
	// Returns errors.ErrCodeSolventNotFound if none exists.
	FindByCAS(ctx context.Context, cas string) (*Solvent, error)

	// Search performs a paginated, filtered scan over the table.
	Search(ctx context.Context, req stypes.SearchRequest) ([]*Solvent, int64, error)

	// Delete removes a solvent by ID.
	// Returns errors.ErrCodeSolventNotFound if none exists.
	Delete(ctx context.Context, id common.ID) error

	// BatchSave persists multiple solvents in a single transaction,
	// all-or-nothing.  Used by the CSV importer.
	BatchSave(ctx context.Context, solvents []*Solvent) error

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)
}
