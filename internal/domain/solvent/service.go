// Package solvent provides the domain service layer for solvent operations.
package solvent

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/mixingcompass/internal/domain/hsp"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// Service coordinates solvent lookups, registration and bulk import.  It is
// the single place experiment calculation goes through to turn solvent names
// into Hansen coordinates.
type Service struct {
	repo   Repository
	logger logging.Logger
}

// NewService constructs a new solvent domain service.
func NewService(repo Repository, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger.Named("solvent.service"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Registration
// ─────────────────────────────────────────────────────────────────────────────

// Register creates a user solvent entry.  Registration is idempotent on the
// normalized name: re-registering an existing name with identical coordinates
// returns the existing entry, while conflicting coordinates are rejected.
func (s *Service) Register(ctx context.Context, req stypes.CreateRequest) (*Solvent, error) {
	sol, err := NewSolvent(req.Name, req.CAS, req.SMILES, req.DeltaD, req.DeltaP, req.DeltaH, req.BoilingPoint)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByName(ctx, sol.NormalizedName())
	if err == nil {
		if existing.DeltaD == sol.DeltaD && existing.DeltaP == sol.DeltaP && existing.DeltaH == sol.DeltaH {
			return existing, nil
		}
		return nil, errors.New(errors.ErrCodeSolventAlreadyExists,
			"solvent already registered with different Hansen parameters").
			WithDetail(fmt.Sprintf("name=%s", sol.Name))
	}
	if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to check for existing solvent")
	}

	if err := s.repo.Save(ctx, sol); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to save solvent")
	}

	s.logger.Info("registered solvent",
		logging.String("id", string(sol.ID)),
		logging.String("name", sol.Name))
	return sol, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookup
// ─────────────────────────────────────────────────────────────────────────────

// Get retrieves a solvent by ID.
func (s *Service) Get(ctx context.Context, id common.ID) (*Solvent, error) {
	return s.repo.FindByID(ctx, id)
}

// Lookup resolves a solvent by name first, falling back to CAS number so
// callers can pass either identifier.
func (s *Service) Lookup(ctx context.Context, nameOrCAS string) (*Solvent, error) {
	nameOrCAS = strings.TrimSpace(nameOrCAS)
	if nameOrCAS == "" {
		return nil, errors.InvalidParam("solvent identifier cannot be empty")
	}

	sol, err := s.repo.FindByName(ctx, NormalizeName(nameOrCAS))
	if err == nil {
		return sol, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}
	return s.repo.FindByCAS(ctx, nameOrCAS)
}

// ResolvePoints maps solvent identifiers to Hansen coordinates, preserving
// order.  A single unknown identifier fails the whole resolution: experiment
// calculation must not silently drop observations.
func (s *Service) ResolvePoints(ctx context.Context, identifiers []string) ([]hsp.HSPPoint, error) {
	points := make([]hsp.HSPPoint, len(identifiers))
	var missing []string
	for i, ident := range identifiers {
		sol, err := s.Lookup(ctx, ident)
		if err != nil {
			if errors.IsNotFound(err) {
				missing = append(missing, ident)
				continue
			}
			return nil, err
		}
		points[i] = sol.HSPPoint()
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrCodeSolventNotFound,
			"unknown solvents: %s", strings.Join(missing, ", "))
	}
	return points, nil
}

// Search runs a paginated filtered query.
func (s *Service) Search(ctx context.Context, req stypes.SearchRequest) ([]*Solvent, int64, error) {
	if req.Pagination.Page < 1 {
		req.Pagination.Page = 1
	}
	if req.Pagination.PageSize < 1 || req.Pagination.PageSize > 500 {
		req.Pagination.PageSize = 50
	}
	return s.repo.Search(ctx, req)
}

// Delete removes a solvent entry.
func (s *Service) Delete(ctx context.Context, id common.ID) error {
	return s.repo.Delete(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Import
// ─────────────────────────────────────────────────────────────────────────────

// Import persists a batch of parsed solvent records, skipping entries that
// fail validation and reporting them in the summary.  The surviving batch is
// written all-or-nothing.
func (s *Service) Import(ctx context.Context, solvents []*Solvent) (*stypes.ImportSummary, error) {
	summary := &stypes.ImportSummary{}
	valid := make([]*Solvent, 0, len(solvents))
	for _, sol := range solvents {
		if err := sol.Validate(); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		valid = append(valid, sol)
	}

	if len(valid) > 0 {
		if err := s.repo.BatchSave(ctx, valid); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSolventImportFailed, "solvent batch import failed")
		}
	}
	summary.Imported = len(valid)

	s.logger.Info("imported solvents",
		logging.Int("imported", summary.Imported),
		logging.Int("skipped", summary.Skipped))
	return summary, nil
}

// ToDTO converts a domain solvent into its cross-layer representation.
func ToDTO(s *Solvent) stypes.SolventDTO {
	return stypes.SolventDTO{
		BaseEntity:   s.BaseEntity,
		Name:         s.Name,
		CAS:          s.CAS,
		SMILES:       s.SMILES,
		DeltaD:       s.DeltaD,
		DeltaP:       s.DeltaP,
		DeltaH:       s.DeltaH,
		BoilingPoint: s.BoilingPoint,
		Source:       string(s.Source),
	}
}
