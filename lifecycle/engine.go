// Package lifecycle drives job and proposal state transitions. Every
// transition that touches more than one row runs in a single transaction
// together with the notifications it emits.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"jobpazar/apperr"
	"jobpazar/auth"
	"jobpazar/budget"
	"jobpazar/job"
	"jobpazar/notification"
	"jobpazar/proposal"
)

var (
	// ErrJobNotOpen is returned when a job no longer accepts bids or acceptances.
	ErrJobNotOpen = apperr.New(apperr.KindInvalidState, "lifecycle: job is not open", "Bu ilan artık teklif kabul etmiyor.")
	// ErrInvalidTransition is returned when the job is in the wrong state for the event.
	ErrInvalidTransition = apperr.New(apperr.KindInvalidState, "lifecycle: invalid job transition", "İş bu işlem için uygun durumda değil.")
	// ErrProposalNotAccepted is returned when work is delivered against a proposal that was not accepted.
	ErrProposalNotAccepted = apperr.New(apperr.KindInvalidState, "lifecycle: proposal is not accepted", "Yalnızca kabul edilen teklif için iş teslim edilebilir.")
	// ErrRejectAccepted is returned when rejecting the proposal a job is running on.
	ErrRejectAccepted = apperr.New(apperr.KindInvalidState, "lifecycle: cannot reject accepted proposal", "Kabul edilmiş bir teklif reddedilemez.")
	// ErrPriceOutsideBudget is returned when the bid does not fit the job's budget bucket.
	ErrPriceOutsideBudget = apperr.New(apperr.KindValidation, "lifecycle: price outside budget", "Teklifiniz, ilan sahibinin belirlediği bütçe aralığına uygun değil.")
	// ErrInvalidBid is returned for negative prices or delivery estimates.
	ErrInvalidBid = apperr.New(apperr.KindValidation, "lifecycle: invalid bid", "Fiyat ve teslim süresi negatif olamaz.")
	// ErrFreelancerNotFound is returned when the bidding user does not exist.
	ErrFreelancerNotFound = apperr.New(apperr.KindNotFound, "lifecycle: freelancer not found", "Freelancer bulunamadı.")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// JobStore is the job persistence the engine needs inside a transaction.
type JobStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (job.Job, error)
	GetForShare(ctx context.Context, tx pgx.Tx, id string) (job.Job, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id string, status job.Status, startedAt *time.Time) (job.Job, error)
}

// ProposalStore is the proposal persistence the engine needs inside a transaction.
type ProposalStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, params proposal.UpsertParams) (proposal.Proposal, error)
	Get(ctx context.Context, tx pgx.Tx, id string) (proposal.Proposal, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (proposal.Proposal, error)
	FindAccepted(ctx context.Context, tx pgx.Tx, jobID string) (proposal.Proposal, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id string, status proposal.Status) (proposal.Proposal, error)
	RejectOthers(ctx context.Context, tx pgx.Tx, jobID, keepID string) (int64, error)
	RecordDelivery(ctx context.Context, tx pgx.Tx, id string, d proposal.Delivery) (proposal.Proposal, error)
}

// UserReader resolves accounts for existence checks and message personalisation.
type UserReader interface {
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
}

// Notifier persists a notification inside the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, tx pgx.Tx, userID string, msg notification.Message) (notification.Notification, error)
}

// Engine owns the job/proposal state machine.
//
// Lock order is always job row first, then proposal rows. Submit takes a
// share lock on the job; Accept, Deliver, Approve and RequestRevision take
// an exclusive one, which serializes them per job.
type Engine struct {
	pool      TxBeginner
	jobs      JobStore
	proposals ProposalStore
	users     UserReader
	notifier  Notifier
	now       func() time.Time
	logger    *log.Logger
}

func NewEngine(pool TxBeginner, jobs JobStore, proposals ProposalStore, users UserReader, notifier Notifier) *Engine {
	return &Engine{
		pool:      pool,
		jobs:      jobs,
		proposals: proposals,
		users:     users,
		notifier:  notifier,
		now:       time.Now,
		logger:    log.Default(),
	}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) WithLogger(l *log.Logger) *Engine {
	e.logger = l
	return e
}

// SubmitParams is a freelancer's bid on a job.
type SubmitParams struct {
	JobID         string
	FreelancerID  string
	Price         *float64
	CoverLetter   string
	DaysToDeliver *int
}

// Submit creates a PENDING proposal, or overwrites the freelancer's existing
// proposal on the job and resets it to PENDING.
func (e *Engine) Submit(ctx context.Context, params SubmitParams) (proposal.Proposal, error) {
	if params.Price != nil && *params.Price < 0 {
		return proposal.Proposal{}, ErrInvalidBid
	}
	if params.DaysToDeliver != nil && *params.DaysToDeliver < 0 {
		return proposal.Proposal{}, ErrInvalidBid
	}

	if _, err := e.users.GetUserByID(ctx, params.FreelancerID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return proposal.Proposal{}, ErrFreelancerNotFound
		}
		return proposal.Proposal{}, err
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	j, err := e.jobs.GetForShare(ctx, tx, params.JobID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if j.Status != job.StatusOpen {
		return proposal.Proposal{}, ErrJobNotOpen
	}
	if !budget.WithinBudget(params.Price, j.Budget) {
		return proposal.Proposal{}, ErrPriceOutsideBudget
	}

	p, err := e.proposals.Upsert(ctx, tx, proposal.UpsertParams{
		JobID:         j.ID,
		FreelancerID:  params.FreelancerID,
		CoverLetter:   params.CoverLetter,
		Price:         params.Price,
		DaysToDeliver: params.DaysToDeliver,
	})
	if err != nil {
		return proposal.Proposal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: commit submit: %w", err)
	}
	return p, nil
}

// Accept accepts proposalID, moves its job to IN_PROGRESS, rejects every
// other proposal on the job and notifies the freelancer, all atomically.
// The job must still be OPEN.
func (e *Engine) Accept(ctx context.Context, proposalID string) (proposal.Proposal, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := e.proposals.Get(ctx, tx, proposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}

	j, err := e.jobs.GetForUpdate(ctx, tx, ref.JobID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if j.Status != job.StatusOpen {
		return proposal.Proposal{}, ErrJobNotOpen
	}
	if _, err := e.proposals.GetForUpdate(ctx, tx, proposalID); err != nil {
		return proposal.Proposal{}, err
	}

	accepted, err := e.proposals.SetStatus(ctx, tx, proposalID, proposal.StatusAccepted)
	if err != nil {
		return proposal.Proposal{}, err
	}

	startedAt := e.now().UTC()
	j, err = e.jobs.SetStatus(ctx, tx, j.ID, job.StatusInProgress, &startedAt)
	if err != nil {
		return proposal.Proposal{}, err
	}

	rejected, err := e.proposals.RejectOthers(ctx, tx, j.ID, proposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}

	freelancer, err := e.users.GetUserByID(ctx, accepted.FreelancerID)
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: load freelancer: %w", err)
	}
	if _, err := e.notifier.Notify(ctx, tx, accepted.FreelancerID, acceptedMessage(freelancer.Username, j)); err != nil {
		return proposal.Proposal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: commit accept: %w", err)
	}

	e.logger.Printf("[lifecycle] job %s: accepted proposal %s, rejected %d others", j.ID, accepted.ID, rejected)
	return accepted, nil
}

// Reject declines proposalID and notifies the freelancer. The job is untouched.
func (e *Engine) Reject(ctx context.Context, proposalID string) (proposal.Proposal, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := e.proposals.Get(ctx, tx, proposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	j, err := e.jobs.GetForShare(ctx, tx, ref.JobID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	current, err := e.proposals.GetForUpdate(ctx, tx, proposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if current.Status == proposal.StatusAccepted {
		return proposal.Proposal{}, ErrRejectAccepted
	}

	rejected, err := e.proposals.SetStatus(ctx, tx, proposalID, proposal.StatusRejected)
	if err != nil {
		return proposal.Proposal{}, err
	}

	freelancer, err := e.users.GetUserByID(ctx, rejected.FreelancerID)
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: load freelancer: %w", err)
	}
	if _, err := e.notifier.Notify(ctx, tx, rejected.FreelancerID, rejectedMessage(freelancer.Username, j)); err != nil {
		return proposal.Proposal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: commit reject: %w", err)
	}
	return rejected, nil
}

// DeliverParams is the freelancer's work hand-in.
type DeliverParams struct {
	ProposalID string
	Message    string
	FileURL    string
}

// Deliver stores the hand-in on the accepted proposal, moves the job to
// REVIEW and notifies the employer. The job must be IN_PROGRESS or REVIEW.
func (e *Engine) Deliver(ctx context.Context, params DeliverParams) (proposal.Proposal, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := e.proposals.Get(ctx, tx, params.ProposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	j, err := e.jobs.GetForUpdate(ctx, tx, ref.JobID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if j.Status != job.StatusInProgress && j.Status != job.StatusReview {
		return proposal.Proposal{}, ErrInvalidTransition
	}
	current, err := e.proposals.GetForUpdate(ctx, tx, params.ProposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if current.Status != proposal.StatusAccepted {
		return proposal.Proposal{}, ErrProposalNotAccepted
	}

	delivered, err := e.proposals.RecordDelivery(ctx, tx, params.ProposalID, proposal.Delivery{
		Message:     params.Message,
		FileURL:     params.FileURL,
		DeliveredAt: e.now().UTC(),
	})
	if err != nil {
		return proposal.Proposal{}, err
	}
	j, err = e.jobs.SetStatus(ctx, tx, j.ID, job.StatusReview, nil)
	if err != nil {
		return proposal.Proposal{}, err
	}

	if _, err := e.notifier.Notify(ctx, tx, j.EmployerID, deliveredMessage(j)); err != nil {
		return proposal.Proposal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return proposal.Proposal{}, fmt.Errorf("lifecycle: commit deliver: %w", err)
	}
	return delivered, nil
}

// Approve completes a job under review and notifies the accepted freelancer.
func (e *Engine) Approve(ctx context.Context, jobID string) (job.Job, error) {
	return e.resolveReview(ctx, jobID, job.StatusCompleted, approvedMessage)
}

// RequestRevision sends a job under review back to IN_PROGRESS and forwards
// feedback verbatim to the accepted freelancer.
func (e *Engine) RequestRevision(ctx context.Context, jobID, feedback string) (job.Job, error) {
	return e.resolveReview(ctx, jobID, job.StatusInProgress, func(j job.Job) notification.Message {
		return revisionMessage(j, feedback)
	})
}

// resolveReview moves a REVIEW job to next. When the job has no accepted
// proposal the transition still commits and nobody is notified.
func (e *Engine) resolveReview(ctx context.Context, jobID string, next job.Status, message func(job.Job) notification.Message) (job.Job, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return job.Job{}, fmt.Errorf("lifecycle: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	j, err := e.jobs.GetForUpdate(ctx, tx, jobID)
	if err != nil {
		return job.Job{}, err
	}
	if j.Status != job.StatusReview {
		return job.Job{}, ErrInvalidTransition
	}

	j, err = e.jobs.SetStatus(ctx, tx, j.ID, next, nil)
	if err != nil {
		return job.Job{}, err
	}

	accepted, err := e.proposals.FindAccepted(ctx, tx, j.ID)
	switch {
	case err == nil:
		if _, err := e.notifier.Notify(ctx, tx, accepted.FreelancerID, message(j)); err != nil {
			return job.Job{}, err
		}
	case errors.Is(err, proposal.ErrNotFound):
		e.logger.Printf("[lifecycle] job %s moved to %s without an accepted proposal; no notification sent", j.ID, next)
	default:
		return job.Job{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return job.Job{}, fmt.Errorf("lifecycle: commit %s: %w", next, err)
	}
	return j, nil
}
