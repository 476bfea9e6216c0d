package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
	stypes "github.com/turtacn/mixingcompass/pkg/types/solvent"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

// ─────────────────────────────────────────────────────────────────────────────
// SolventRepository
// ─────────────────────────────────────────────────────────────────────────────

// SolventRepository is the PostgreSQL implementation of the solvent domain's
// Repository interface.
type SolventRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewSolventRepository constructs a ready-to-use SolventRepository.
func NewSolventRepository(pool *pgxpool.Pool, logger logging.Logger) *SolventRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &SolventRepository{pool: pool, logger: logger.Named("solvent_repo")}
}

var _ solvent.Repository = (*SolventRepository)(nil)

const solventColumns = `id, name, normalized_name, cas, smiles,
	delta_d, delta_p, delta_h, boiling_point, source,
	created_at, updated_at, version`

// Save inserts a new solvent or updates the row with the same ID.
func (r *SolventRepository) Save(ctx context.Context, s *solvent.Solvent) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO solvents (`+solventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			cas = EXCLUDED.cas,
			smiles = EXCLUDED.smiles,
			delta_d = EXCLUDED.delta_d,
			delta_p = EXCLUDED.delta_p,
			delta_h = EXCLUDED.delta_h,
			boiling_point = EXCLUDED.boiling_point,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at,
			version = solvents.version + 1`,
		s.ID, s.Name, s.NormalizedName(), s.CAS, s.SMILES,
		s.DeltaD, s.DeltaP, s.DeltaH, s.BoilingPoint, s.Source,
		s.CreatedAt, s.UpdatedAt, s.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrCodeSolventAlreadyExists,
				fmt.Sprintf("solvent %q already exists", s.Name))
		}
		r.logger.Error("failed to save solvent", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to save solvent")
	}
	return nil
}

// FindByID retrieves one solvent by its identifier.
func (r *SolventRepository) FindByID(ctx context.Context, id common.ID) (*solvent.Solvent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+solventColumns+` FROM solvents WHERE id = $1`, id)
	return scanSolvent(row)
}

// FindByName retrieves one solvent by its normalized name.
func (r *SolventRepository) FindByName(ctx context.Context, name string) (*solvent.Solvent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+solventColumns+` FROM solvents WHERE normalized_name = $1`,
		solvent.NormalizeName(name))
	return scanSolvent(row)
}

// FindByCAS retrieves one solvent by its CAS registry number.
func (r *SolventRepository) FindByCAS(ctx context.Context, cas string) (*solvent.Solvent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+solventColumns+` FROM solvents WHERE cas = $1 AND cas <> ''`, cas)
	return scanSolvent(row)
}

// Search performs a filtered, paginated scan ordered by name.
func (r *SolventRepository) Search(ctx context.Context, req stypes.SearchRequest) ([]*solvent.Solvent, int64, error) {
	var b condBuilder
	if req.Query != "" {
		p := likePattern(req.Query)
		b.add("(name ILIKE ? OR cas ILIKE ?)", p, p)
	}
	if req.Source != "" {
		b.add("source = ?", req.Source)
	}
	addRange(&b, "delta_d", req.DeltaD)
	addRange(&b, "delta_p", req.DeltaP)
	addRange(&b, "delta_h", req.DeltaH)

	limit, offset := pageLimits(req.Pagination)
	query := `SELECT ` + solventColumns + `, count(*) OVER() AS total
		FROM solvents` + b.where() + `
		ORDER BY normalized_name
		LIMIT ` + fmt.Sprint(limit) + ` OFFSET ` + fmt.Sprint(offset)

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		r.logger.Error("solvent search failed", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "solvent search failed")
	}
	defer rows.Close()

	var (
		out   []*solvent.Solvent
		total int64
	)
	for rows.Next() {
		s := &solvent.Solvent{}
		var norm string
		if err := rows.Scan(
			&s.ID, &s.Name, &norm, &s.CAS, &s.SMILES,
			&s.DeltaD, &s.DeltaP, &s.DeltaH, &s.BoilingPoint, &s.Source,
			&s.CreatedAt, &s.UpdatedAt, &s.Version, &total,
		); err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to scan solvent row")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "solvent search failed")
	}
	return out, total, nil
}

// Delete removes one solvent by ID.
func (r *SolventRepository) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM solvents WHERE id = $1`, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to delete solvent")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeSolventNotFound, "solvent not found")
	}
	return nil
}

// BatchSave upserts solvents by normalized name inside one transaction.  Used
// by the CSV importer, where re-importing the reference table must refresh
// rather than duplicate entries.
func (r *SolventRepository) BatchSave(ctx context.Context, solvents []*solvent.Solvent) error {
	if len(solvents) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, s := range solvents {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		batch.Queue(`
			INSERT INTO solvents (`+solventColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (normalized_name) DO UPDATE SET
				cas = EXCLUDED.cas,
				smiles = EXCLUDED.smiles,
				delta_d = EXCLUDED.delta_d,
				delta_p = EXCLUDED.delta_p,
				delta_h = EXCLUDED.delta_h,
				boiling_point = EXCLUDED.boiling_point,
				source = EXCLUDED.source,
				updated_at = EXCLUDED.updated_at,
				version = solvents.version + 1`,
			s.ID, s.Name, s.NormalizedName(), s.CAS, s.SMILES,
			s.DeltaD, s.DeltaP, s.DeltaH, s.BoilingPoint, s.Source,
			s.CreatedAt, s.UpdatedAt, s.Version,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "batch save failed")
	}
	if err := tx.Commit(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to commit batch save")
	}

	r.logger.Debug("batch saved solvents", logging.Int("count", len(solvents)))
	return nil
}

// Count returns the number of solvent entries.
func (r *SolventRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM solvents`).Scan(&n); err != nil {
		return 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to count solvents")
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanSolvent(row pgx.Row) (*solvent.Solvent, error) {
	s := &solvent.Solvent{}
	var norm string
	err := row.Scan(
		&s.ID, &s.Name, &norm, &s.CAS, &s.SMILES,
		&s.DeltaD, &s.DeltaP, &s.DeltaH, &s.BoilingPoint, &s.Source,
		&s.CreatedAt, &s.UpdatedAt, &s.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, appErrors.New(appErrors.ErrCodeSolventNotFound, "solvent not found")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to scan solvent row")
	}
	return s, nil
}

func addRange(b *condBuilder, column string, f *stypes.RangeFilter) {
	if f == nil {
		return
	}
	if f.Min != nil {
		b.add(column+" >= ?", *f.Min)
	}
	if f.Max != nil {
		b.add(column+" <= ?", *f.Max)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
