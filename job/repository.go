package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpazar/apperr"
)

var (
	// ErrNotFound is returned when no job row exists for the identifier.
	ErrNotFound = apperr.New(apperr.KindNotFound, "job: not found", "İlan bulunamadı.")
	// ErrEmployerNotFound is returned when the referenced employer is missing.
	ErrEmployerNotFound = apperr.New(apperr.KindNotFound, "job: employer not found", "İşveren bulunamadı.")
)

// Repository is the persistence surface used by Service.
type Repository interface {
	Create(ctx context.Context, employerID string, fields Fields) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	ListOpen(ctx context.Context) ([]Job, error)
	ListByEmployer(ctx context.Context, employerID string) ([]Job, error)
	ListAll(ctx context.Context) ([]Job, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, fields Fields) (Job, error)
	Delete(ctx context.Context, id string) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const jobColumns = `id, employer_id, title, description, budget, category, duration, status, started_at, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, employerID string, fields Fields) (Job, error) {
	const query = `
        INSERT INTO jobs (employer_id, title, description, budget, category, duration, status)
        VALUES ($1, $2, $3, $4, $5, $6, 'OPEN')
        RETURNING ` + jobColumns

	j, err := scanJob(r.pool.QueryRow(ctx, query,
		employerID,
		fields.Title,
		fields.Description,
		fields.Budget,
		fields.Category,
		fields.Duration,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Job{}, ErrEmployerNotFound
		}
		return Job{}, fmt.Errorf("job: create: %w", err)
	}
	return j, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("job: get: %w", err)
	}
	return j, nil
}

func (r *PGRepository) ListOpen(ctx context.Context) ([]Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = 'OPEN' ORDER BY created_at DESC`)
}

func (r *PGRepository) ListByEmployer(ctx context.Context, employerID string) ([]Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE employer_id = $1 ORDER BY created_at DESC`, employerID)
}

func (r *PGRepository) ListAll(ctx context.Context) ([]Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`)
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("job: list: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0, 8)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("job: scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job: iterate: %w", err)
	}
	return jobs, nil
}

func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("job: count: %w", err)
	}
	return n, nil
}

// Update rewrites the editable fields. Status is owned by the lifecycle
// engine and never changes here.
func (r *PGRepository) Update(ctx context.Context, id string, fields Fields) (Job, error) {
	const query = `
        UPDATE jobs
        SET title = $2,
            description = $3,
            budget = $4,
            category = $5,
            duration = $6,
            updated_at = now()
        WHERE id = $1
        RETURNING ` + jobColumns

	j, err := scanJob(r.pool.QueryRow(ctx, query,
		id,
		fields.Title,
		fields.Description,
		fields.Budget,
		fields.Category,
		fields.Duration,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("job: update: %w", err)
	}
	return j, nil
}

// Delete removes the job; its proposals cascade.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("job: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForUpdate loads the job and takes an exclusive row lock for the rest of tx.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Job, error) {
	return r.getLocked(ctx, tx, id, "FOR UPDATE")
}

// GetForShare loads the job and blocks concurrent status changes until tx ends.
func (r *PGRepository) GetForShare(ctx context.Context, tx pgx.Tx, id string) (Job, error) {
	return r.getLocked(ctx, tx, id, "FOR SHARE")
}

func (r *PGRepository) getLocked(ctx context.Context, tx pgx.Tx, id, lock string) (Job, error) {
	j, err := scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 `+lock, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("job: load locked: %w", err)
	}
	return j, nil
}

// SetStatus moves the job to status. A non-nil startedAt stamps the start of work.
func (r *PGRepository) SetStatus(ctx context.Context, tx pgx.Tx, id string, status Status, startedAt *time.Time) (Job, error) {
	const query = `
        UPDATE jobs
        SET status = $2,
            started_at = COALESCE($3, started_at),
            updated_at = now()
        WHERE id = $1
        RETURNING ` + jobColumns

	j, err := scanJob(tx.QueryRow(ctx, query, id, status, startedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("job: set status: %w", err)
	}
	return j, nil
}

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID,
		&j.EmployerID,
		&j.Title,
		&j.Description,
		&j.Budget,
		&j.Category,
		&j.Duration,
		&j.Status,
		&j.StartedAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return Job{}, err
	}
	return j, nil
}
