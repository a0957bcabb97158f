package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"jobpazar/auth"
	"jobpazar/mail"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OutboxStore is the outbox surface drained by Dispatcher.
type OutboxStore interface {
	ClaimPending(ctx context.Context, tx pgx.Tx, topic string, limit int, retryDelay time.Duration) ([]OutboxMessage, error)
	MarkProcessed(ctx context.Context, tx pgx.Tx, id string) error
	MarkFailed(ctx context.Context, tx pgx.Tx, id, reason string, maxAttempts int, dead bool) error
}

// RecipientResolver maps a user id to the account holding the e-mail address.
type RecipientResolver interface {
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
}

// Dispatcher forwards queued notification mails to the mail collaborator.
// Delivery failures are logged and retried; they never surface to the
// transaction that queued the mail.
type Dispatcher struct {
	pool        TxBeginner
	store       OutboxStore
	users       RecipientResolver
	mailer      mail.Mailer
	batchSize   int
	maxAttempts int
	interval    time.Duration
	retryDelay  time.Duration
	logger      *log.Logger
}

func NewDispatcher(pool TxBeginner, store OutboxStore, users RecipientResolver, mailer mail.Mailer) *Dispatcher {
	return &Dispatcher{
		pool:        pool,
		store:       store,
		users:       users,
		mailer:      mailer,
		batchSize:   10,
		maxAttempts: 5,
		interval:    time.Second,
		retryDelay:  30 * time.Second,
		logger:      log.Default(),
	}
}

func (d *Dispatcher) WithBatchSize(n int) *Dispatcher {
	if n > 0 {
		d.batchSize = n
	}
	return d
}

func (d *Dispatcher) WithMaxAttempts(n int) *Dispatcher {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithRetryDelay sets how long a failed row waits per attempt already made
// before it is claimed again.
func (d *Dispatcher) WithRetryDelay(delay time.Duration) *Dispatcher {
	if delay > 0 {
		d.retryDelay = delay
	}
	return d
}

func (d *Dispatcher) WithLogger(l *log.Logger) *Dispatcher {
	d.logger = l
	return d
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		n, err := d.DispatchOnce(ctx)
		if err != nil && ctx.Err() == nil {
			d.logger.Printf("[outbox] dispatch: %v", err)
		}
		if err == nil && n == d.batchSize {
			// Full batch; more due rows are likely waiting. Rows that just
			// failed are not due again until their retry delay has passed.
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce handles up to one batch of due rows and returns how many it
// claimed. Every row is sent and marked in its own transaction, so a failing
// mark never undoes rows already handled in the same batch.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	n := 0
	for n < d.batchSize {
		claimed, err := d.dispatchNext(ctx)
		if err != nil {
			return n, err
		}
		if !claimed {
			break
		}
		n++
	}
	return n, nil
}

func (d *Dispatcher) dispatchNext(ctx context.Context) (bool, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("notification: begin dispatch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	msgs, err := d.store.ClaimPending(ctx, tx, TopicMail, 1, d.retryDelay)
	if err != nil {
		return false, err
	}
	if len(msgs) == 0 {
		return false, nil
	}
	m := msgs[0]

	if permanent, sendErr := d.deliver(ctx, m); sendErr != nil {
		d.logger.Printf("[outbox] message %s attempt %d failed: %v", m.ID, m.Attempts+1, sendErr)
		if err := d.store.MarkFailed(ctx, tx, m.ID, sendErr.Error(), d.maxAttempts, permanent); err != nil {
			return false, err
		}
	} else if err := d.store.MarkProcessed(ctx, tx, m.ID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("notification: commit dispatch tx: %w", err)
	}
	return true, nil
}

// deliver sends one message. The boolean reports whether a retry is pointless.
func (d *Dispatcher) deliver(ctx context.Context, m OutboxMessage) (bool, error) {
	var payload MailPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return true, fmt.Errorf("decode payload: %w", err)
	}

	user, err := d.users.GetUserByID(ctx, payload.UserID)
	if err != nil {
		return errors.Is(err, auth.ErrUserNotFound), fmt.Errorf("resolve recipient %s: %w", payload.UserID, err)
	}

	if err := d.mailer.Send(ctx, user.Email, payload.Subject, payload.Body); err != nil {
		return errors.Is(err, mail.ErrNoRecipient), err
	}
	return false, nil
}
