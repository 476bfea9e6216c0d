package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/mixingcompass/internal/domain/experiment"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/mixingcompass/pkg/errors"
	"github.com/turtacn/mixingcompass/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// ExperimentRepository
// ─────────────────────────────────────────────────────────────────────────────

// ExperimentRepository is the PostgreSQL implementation of the experiment
// domain's Repository interface.  Solvent tests and the result snapshot are
// stored as JSONB documents: they are written and read wholesale, never
// queried field-by-field.
type ExperimentRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewExperimentRepository constructs a ready-to-use ExperimentRepository.
func NewExperimentRepository(pool *pgxpool.Pool, logger logging.Logger) *ExperimentRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExperimentRepository{pool: pool, logger: logger.Named("experiment_repo")}
}

var _ experiment.Repository = (*ExperimentRepository)(nil)

// Save inserts a new experiment or updates the row with the same ID.
func (r *ExperimentRepository) Save(ctx context.Context, e *experiment.Experiment) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	testsJSON, err := json.Marshal(e.Tests)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to encode experiment tests")
	}
	var resultJSON []byte
	if e.Result != nil {
		if resultJSON, err = json.Marshal(e.Result); err != nil {
			return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to encode experiment result")
		}
	}

	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO experiments (
			id, sample_name, description, tags, tests, result,
			created_at, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			sample_name = EXCLUDED.sample_name,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			tests = EXCLUDED.tests,
			result = EXCLUDED.result,
			updated_at = EXCLUDED.updated_at,
			version = experiments.version + 1`,
		e.ID, e.SampleName, e.Description, tags, testsJSON, resultJSON,
		e.CreatedAt, e.UpdatedAt, e.Version,
	)
	if err != nil {
		r.logger.Error("failed to save experiment", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to save experiment")
	}
	return nil
}

// FindByID retrieves one experiment by its identifier.
func (r *ExperimentRepository) FindByID(ctx context.Context, id common.ID) (*experiment.Experiment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, sample_name, description, tags, tests, result,
		       created_at, updated_at, version
		FROM experiments WHERE id = $1`, id)
	return scanExperiment(row)
}

// Search performs a filtered, paginated listing ordered by most recently
// updated first.
func (r *ExperimentRepository) Search(ctx context.Context, filter experiment.SearchFilter) ([]*experiment.Experiment, int64, error) {
	var b condBuilder
	if filter.Query != "" {
		p := likePattern(filter.Query)
		b.add("(sample_name ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.Tag != "" {
		b.add("? = ANY(tags)", filter.Tag)
	}
	if filter.Calculated != nil {
		if *filter.Calculated {
			b.conds = append(b.conds, "result IS NOT NULL")
		} else {
			b.conds = append(b.conds, "result IS NULL")
		}
	}

	limit, offset := pageLimits(filter.Pagination)
	query := `
		SELECT id, sample_name, description, tags, tests, result,
		       created_at, updated_at, version, count(*) OVER() AS total
		FROM experiments` + b.where() + `
		ORDER BY updated_at DESC
		LIMIT ` + fmt.Sprint(limit) + ` OFFSET ` + fmt.Sprint(offset)

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		r.logger.Error("experiment search failed", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "experiment search failed")
	}
	defer rows.Close()

	var (
		out   []*experiment.Experiment
		total int64
	)
	for rows.Next() {
		e := &experiment.Experiment{}
		var testsJSON, resultJSON []byte
		if err := rows.Scan(
			&e.ID, &e.SampleName, &e.Description, &e.Tags, &testsJSON, &resultJSON,
			&e.CreatedAt, &e.UpdatedAt, &e.Version, &total,
		); err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to scan experiment row")
		}
		if err := decodeExperimentDocs(e, testsJSON, resultJSON); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "experiment search failed")
	}
	return out, total, nil
}

// Delete removes one experiment by ID.
func (r *ExperimentRepository) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM experiments WHERE id = $1`, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to delete experiment")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.New(appErrors.ErrCodeExperimentNotFound, "experiment not found")
	}
	return nil
}

// Count returns the number of experiments.
func (r *ExperimentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM experiments`).Scan(&n); err != nil {
		return 0, appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to count experiments")
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanExperiment(row pgx.Row) (*experiment.Experiment, error) {
	e := &experiment.Experiment{}
	var testsJSON, resultJSON []byte
	err := row.Scan(
		&e.ID, &e.SampleName, &e.Description, &e.Tags, &testsJSON, &resultJSON,
		&e.CreatedAt, &e.UpdatedAt, &e.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, appErrors.New(appErrors.ErrCodeExperimentNotFound, "experiment not found")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to scan experiment row")
	}
	if err := decodeExperimentDocs(e, testsJSON, resultJSON); err != nil {
		return nil, err
	}
	return e, nil
}

func decodeExperimentDocs(e *experiment.Experiment, testsJSON, resultJSON []byte) error {
	if len(testsJSON) > 0 {
		if err := json.Unmarshal(testsJSON, &e.Tests); err != nil {
			return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to decode experiment tests")
		}
	}
	if len(resultJSON) > 0 {
		e.Result = &experiment.Result{}
		if err := json.Unmarshal(resultJSON, e.Result); err != nil {
			return appErrors.Wrap(err, appErrors.CodeDatabaseError, "failed to decode experiment result")
		}
	}
	return nil
}
