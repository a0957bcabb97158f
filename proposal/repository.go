package proposal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpazar/apperr"
)

var (
	// ErrNotFound is returned when no proposal row matches.
	ErrNotFound = apperr.New(apperr.KindNotFound, "proposal: not found", "Teklif bulunamadı.")
	// ErrAlreadyAccepted is returned when the one-accepted-per-job index rejects a write.
	ErrAlreadyAccepted = apperr.New(apperr.KindInvalidState, "proposal: job already has an accepted proposal", "Bu ilan için zaten bir teklif kabul edildi.")
	// ErrReferenceMissing is returned when the job or freelancer vanished mid-write.
	ErrReferenceMissing = apperr.New(apperr.KindNotFound, "proposal: job or freelancer not found", "İlan veya freelancer bulunamadı.")
)

const acceptedIndex = "proposals_one_accepted_per_job"

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const proposalColumns = `id, job_id, freelancer_id, cover_letter, price, days_to_deliver,
       delivery_message, delivery_file_url, delivered_at, status, created_at, updated_at`

// Upsert creates a PENDING proposal or, when the freelancer already bid on
// the job, overwrites the bid in place and resets it to PENDING.
func (r *PGRepository) Upsert(ctx context.Context, tx pgx.Tx, params UpsertParams) (Proposal, error) {
	const query = `
INSERT INTO proposals (job_id, freelancer_id, cover_letter, price, days_to_deliver, status)
VALUES ($1, $2, $3, $4, $5, 'PENDING')
ON CONFLICT ON CONSTRAINT proposals_job_freelancer_key DO UPDATE
SET cover_letter = EXCLUDED.cover_letter,
    price = EXCLUDED.price,
    days_to_deliver = EXCLUDED.days_to_deliver,
    status = 'PENDING',
    updated_at = now()
RETURNING ` + proposalColumns

	p, err := scanProposal(tx.QueryRow(ctx, query,
		params.JobID,
		params.FreelancerID,
		params.CoverLetter,
		params.Price,
		params.DaysToDeliver,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Proposal{}, ErrReferenceMissing
		}
		return Proposal{}, fmt.Errorf("proposal: upsert: %w", err)
	}
	return p, nil
}

// Get loads a proposal inside tx without locking it.
func (r *PGRepository) Get(ctx context.Context, tx pgx.Tx, id string) (Proposal, error) {
	return getProposal(ctx, tx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
}

// GetForUpdate loads a proposal and locks it until tx ends.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Proposal, error) {
	return getProposal(ctx, tx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id)
}

// FindAccepted returns the job's ACCEPTED proposal or ErrNotFound.
func (r *PGRepository) FindAccepted(ctx context.Context, tx pgx.Tx, jobID string) (Proposal, error) {
	return getProposal(ctx, tx, `SELECT `+proposalColumns+` FROM proposals WHERE job_id = $1 AND status = 'ACCEPTED'`, jobID)
}

func getProposal(ctx context.Context, q pgx.Tx, query string, arg string) (Proposal, error) {
	p, err := scanProposal(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Proposal{}, ErrNotFound
		}
		return Proposal{}, fmt.Errorf("proposal: load: %w", err)
	}
	return p, nil
}

// SetStatus overwrites the proposal status.
func (r *PGRepository) SetStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Proposal, error) {
	const query = `
UPDATE proposals
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + proposalColumns

	p, err := scanProposal(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Proposal{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == acceptedIndex {
			return Proposal{}, ErrAlreadyAccepted
		}
		return Proposal{}, fmt.Errorf("proposal: set status: %w", err)
	}
	return p, nil
}

// RejectOthers marks every proposal on jobID except keepID as REJECTED.
func (r *PGRepository) RejectOthers(ctx context.Context, tx pgx.Tx, jobID, keepID string) (int64, error) {
	tag, err := tx.Exec(ctx, `
UPDATE proposals
SET status = 'REJECTED', updated_at = now()
WHERE job_id = $1 AND id <> $2 AND status <> 'REJECTED'
`, jobID, keepID)
	if err != nil {
		return 0, fmt.Errorf("proposal: reject others: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecordDelivery stores the hand-in payload on the proposal.
func (r *PGRepository) RecordDelivery(ctx context.Context, tx pgx.Tx, id string, d Delivery) (Proposal, error) {
	const query = `
UPDATE proposals
SET delivery_message = $2,
    delivery_file_url = $3,
    delivered_at = $4,
    updated_at = now()
WHERE id = $1
RETURNING ` + proposalColumns

	p, err := scanProposal(tx.QueryRow(ctx, query, id, d.Message, d.FileURL, d.DeliveredAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Proposal{}, ErrNotFound
		}
		return Proposal{}, fmt.Errorf("proposal: record delivery: %w", err)
	}
	return p, nil
}

// ListByJob returns the proposals on a job, oldest first.
func (r *PGRepository) ListByJob(ctx context.Context, jobID string) ([]Proposal, error) {
	return r.list(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
}

// ListByFreelancer returns the freelancer's proposals, newest first.
func (r *PGRepository) ListByFreelancer(ctx context.Context, freelancerID string) ([]Proposal, error) {
	return r.list(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE freelancer_id = $1 ORDER BY created_at DESC`, freelancerID)
}

// GetByJobAndFreelancer returns the single proposal for the pair or ErrNotFound.
func (r *PGRepository) GetByJobAndFreelancer(ctx context.Context, jobID, freelancerID string) (Proposal, error) {
	p, err := scanProposal(r.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE job_id = $1 AND freelancer_id = $2`, jobID, freelancerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Proposal{}, ErrNotFound
		}
		return Proposal{}, fmt.Errorf("proposal: get by job and freelancer: %w", err)
	}
	return p, nil
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Proposal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("proposal: list: %w", err)
	}
	defer rows.Close()

	proposals := make([]Proposal, 0, 8)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("proposal: scan: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("proposal: iterate: %w", err)
	}
	return proposals, nil
}

func scanProposal(row pgx.Row) (Proposal, error) {
	var p Proposal
	err := row.Scan(
		&p.ID,
		&p.JobID,
		&p.FreelancerID,
		&p.CoverLetter,
		&p.Price,
		&p.DaysToDeliver,
		&p.DeliveryMessage,
		&p.DeliveryFileURL,
		&p.DeliveredAt,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Proposal{}, err
	}
	return p, nil
}
