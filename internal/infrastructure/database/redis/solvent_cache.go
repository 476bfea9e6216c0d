package redis

import (
	"context"
	"time"

	"github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

const solventKeyPrefix = "solvent:"

// CachedSolventRepository decorates a solvent.Repository with read-through
// caching for the single-entry lookups the fitting path hits hardest.
// Search stays uncached: listings change with every import and the window
// totals make stale pages confusing.  Any write invalidates the whole
// solvent key space rather than tracking individual entries.
type CachedSolventRepository struct {
	inner  solvent.Repository
	cache  Cache
	ttl    time.Duration
	logger logging.Logger
}

var _ solvent.Repository = (*CachedSolventRepository)(nil)

// NewCachedSolventRepository wraps inner with cache.  A zero ttl uses the
// cache's default.
func NewCachedSolventRepository(inner solvent.Repository, cache Cache, ttl time.Duration, log logging.Logger) *CachedSolventRepository {
	if log == nil {
		log = logging.Default()
	}
	return &CachedSolventRepository{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: log.Named("solvent_cache"),
	}
}

func (r *CachedSolventRepository) Save(ctx context.Context, s *solvent.Solvent) error {
	if err := r.inner.Save(ctx, s); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedSolventRepository) FindByID(ctx context.Context, id common.ID) (*solvent.Solvent, error) {
	return r.lookup(ctx, solventKeyPrefix+"id:"+string(id), func(ctx context.Context) (interface{}, error) {
		return r.inner.FindByID(ctx, id)
	})
}

func (r *CachedSolventRepository) FindByName(ctx context.Context, name string) (*solvent.Solvent, error) {
	key := solventKeyPrefix + "name:" + solvent.NormalizeName(name)
	return r.lookup(ctx, key, func(ctx context.Context) (interface{}, error) {
		return r.inner.FindByName(ctx, name)
	})
}

func (r *CachedSolventRepository) FindByCAS(ctx context.Context, cas string) (*solvent.Solvent, error) {
	return r.lookup(ctx, solventKeyPrefix+"cas:"+cas, func(ctx context.Context) (interface{}, error) {
		return r.inner.FindByCAS(ctx, cas)
	})
}

func (r *CachedSolventRepository) Search(ctx context.Context, req stypes.SearchRequest) ([]*solvent.Solvent, int64, error) {
	return r.inner.Search(ctx, req)
}

func (r *CachedSolventRepository) Delete(ctx context.Context, id common.ID) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedSolventRepository) BatchSave(ctx context.Context, solvents []*solvent.Solvent) error {
	if err := r.inner.BatchSave(ctx, solvents); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedSolventRepository) Count(ctx context.Context) (int64, error) {
	return r.inner.Count(ctx)
}

func (r *CachedSolventRepository) lookup(ctx context.Context, key string, loader func(ctx context.Context) (interface{}, error)) (*solvent.Solvent, error) {
	var s solvent.Solvent
	if err := r.cache.GetOrSet(ctx, key, &s, r.ttl, loader); err != nil {
		return nil, err
	}
	return &s, nil
}

// invalidate drops every cached solvent entry.  Cache failures are logged
// and swallowed: the database remains the source of truth and entries
// expire on their own.
func (r *CachedSolventRepository) invalidate(ctx context.Context) {
	if _, err := r.cache.DeleteByPrefix(ctx, solventKeyPrefix); err != nil {
		r.logger.Warn("solvent cache invalidation failed", logging.Err(err))
	}
}
