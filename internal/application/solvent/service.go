// Package solvent provides the application-level service for the solvent
// reference database: registration, lookup, search and CSV import/export.
package solvent

import (
	"context"
	"io"
	"time"

	domainsol "github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/internal/infrastructure/storage/csvstore"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// Service defines the application operations over the solvent database.
type Service interface {
	Create(ctx context.Context, req *stypes.CreateRequest) (*stypes.SolventDTO, error)
	Get(ctx context.Context, id string) (*stypes.SolventDTO, error)
	Lookup(ctx context.Context, nameOrCAS string) (*stypes.SolventDTO, error)
	Search(ctx context.Context, req *stypes.SearchRequest) (*stypes.SearchResponse, error)
	Delete(ctx context.Context, id string) error

	// ImportCSV loads solvent rows from CSV input into the database.
	ImportCSV(ctx context.Context, r io.Reader, source domainsol.Source) (*stypes.ImportSummary, error)

	// ExportCSV writes the whole database to w in the CSV interchange
	// format.
	ExportCSV(ctx context.Context, w io.Writer) error
}

// ImportLocker serializes CSV imports across instances.  Acquire returns a
// release function, or an error when the lock is already held.
type ImportLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

type serviceImpl struct {
	domain *domainsol.Service
	locker ImportLocker
	logger logging.Logger
}

// Option configures optional service collaborators.
type Option func(*serviceImpl)

// WithImportLocker guards ImportCSV with a distributed lock so two
// instances cannot interleave batch upserts.
func WithImportLocker(locker ImportLocker) Option {
	return func(s *serviceImpl) { s.locker = locker }
}

// NewService creates the solvent application service.
func NewService(domain *domainsol.Service, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &serviceImpl{
		domain: domain,
		logger: logger.Named("solvent_app"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) Create(ctx context.Context, req *stypes.CreateRequest) (*stypes.SolventDTO, error) {
	sol, err := s.domain.Register(ctx, *req)
	if err != nil {
		return nil, err
	}
	dto := domainsol.ToDTO(sol)
	return &dto, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*stypes.SolventDTO, error) {
	sol, err := s.domain.Get(ctx, common.ID(id))
	if err != nil {
		return nil, err
	}
	dto := domainsol.ToDTO(sol)
	return &dto, nil
}

func (s *serviceImpl) Lookup(ctx context.Context, nameOrCAS string) (*stypes.SolventDTO, error) {
	sol, err := s.domain.Lookup(ctx, nameOrCAS)
	if err != nil {
		return nil, err
	}
	dto := domainsol.ToDTO(sol)
	return &dto, nil
}

func (s *serviceImpl) Search(ctx context.Context, req *stypes.SearchRequest) (*stypes.SearchResponse, error) {
	if req == nil {
		req = &stypes.SearchRequest{}
	}
	items, total, err := s.domain.Search(ctx, *req)
	if err != nil {
		return nil, err
	}

	dtos := make([]stypes.SolventDTO, len(items))
	for i, sol := range items {
		dtos[i] = domainsol.ToDTO(sol)
	}
	pagination := req.Pagination
	pagination.Total = total
	return &stypes.SearchResponse{Items: dtos, Pagination: pagination}, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.domain.Delete(ctx, common.ID(id))
}

func (s *serviceImpl) ImportCSV(ctx context.Context, r io.Reader, source domainsol.Source) (*stypes.ImportSummary, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "solvent-import", time.Minute)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	parsed, err := csvstore.Parse(r, source)
	if err != nil {
		return nil, err
	}

	summary, err := s.domain.Import(ctx, parsed.Solvents)
	if err != nil {
		return nil, err
	}
	summary.Skipped += parsed.Skipped

	s.logger.Info("solvent CSV import finished",
		logging.Int("imported", summary.Imported),
		logging.Int("skipped", summary.Skipped),
		logging.String("source", string(source)))
	return summary, nil
}

func (s *serviceImpl) ExportCSV(ctx context.Context, w io.Writer) error {
	// Page through the database; 500 is the repository's page-size cap.
	req := stypes.SearchRequest{Pagination: common.Pagination{Page: 1, PageSize: 500}}
	var all []*domainsol.Solvent
	for {
		items, total, err := s.domain.Search(ctx, req)
		if err != nil {
			return err
		}
		all = append(all, items...)
		if int64(len(all)) >= total || len(items) == 0 {
			break
		}
		req.Pagination.Page++
	}
	return csvstore.Write(w, all)
}
