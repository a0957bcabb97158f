package actors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpazar/apperr"
	"jobpazar/lifecycle"
	"jobpazar/notification"
)

// Stats counts what the actors achieved; the stress test logs it.
type Stats struct {
	Submitted  atomic.Int64
	Accepted   atomic.Int64
	Rejected   atomic.Int64
	Delivered  atomic.Int64
	Approved   atomic.Int64
	Revised    atomic.Int64
	Refused    atomic.Int64
	Transient  atomic.Int64
	Dispatched atomic.Int64
}

func (s *Stats) String() string {
	return fmt.Sprintf("submitted=%d accepted=%d rejected=%d delivered=%d approved=%d revised=%d refused=%d transient=%d dispatched=%d",
		s.Submitted.Load(), s.Accepted.Load(), s.Rejected.Load(), s.Delivered.Load(),
		s.Approved.Load(), s.Revised.Load(), s.Refused.Load(), s.Transient.Load(), s.Dispatched.Load())
}

// settle classifies err. Domain refusals and connection loss caused by chaos
// are expected under contention; anything else stops the run.
func (s *Stats) settle(op string, err error, ok *atomic.Int64) error {
	switch {
	case err == nil:
		ok.Add(1)
		return nil
	case apperr.KindOf(err) != apperr.KindUnknown:
		s.Refused.Add(1)
		return nil
	case isTransient(err):
		s.Transient.Add(1)
		return nil
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "57P01", "40P01", "40001", "08006", "08003":
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "conn closed") || strings.Contains(msg, "closed pool") ||
		strings.Contains(msg, "terminating connection") || strings.Contains(msg, "unexpected EOF")
}

func done(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func pause(base, jitter int) {
	time.Sleep(time.Duration(base+rand.Intn(jitter)) * time.Millisecond)
}

// pick returns one random id matching query, or "" when none match.
func pick(ctx context.Context, pool *pgxpool.Pool, query string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, query).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// Submitter keeps bidding on random jobs with prices drawn across every
// budget bucket, so some bids are refused by the budget check.
func Submitter(ctx context.Context, engine *lifecycle.Engine, jobIDs, freelancerIDs []string, stats *Stats, stop <-chan struct{}) error {
	prices := []float64{500, 3000, 8000, 20000, 60000}
	for !done(ctx, stop) {
		price := prices[rand.Intn(len(prices))]
		days := 1 + rand.Intn(30)
		_, err := engine.Submit(ctx, lifecycle.SubmitParams{
			JobID:         jobIDs[rand.Intn(len(jobIDs))],
			FreelancerID:  freelancerIDs[rand.Intn(len(freelancerIDs))],
			Price:         &price,
			CoverLetter:   "stress bid",
			DaysToDeliver: &days,
		})
		if err := stats.settle("submit", err, &stats.Submitted); err != nil {
			return err
		}
		pause(5, 20)
	}
	return nil
}

// Acceptor races other acceptors to accept random pending proposals.
func Acceptor(ctx context.Context, pool *pgxpool.Pool, engine *lifecycle.Engine, stats *Stats, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		id, err := pick(ctx, pool, `SELECT id FROM proposals WHERE status <> 'ACCEPTED' ORDER BY random() LIMIT 1`)
		if err != nil {
			if err := stats.settle("pick proposal", err, &stats.Transient); err != nil {
				return err
			}
			continue
		}
		if id != "" {
			_, err = engine.Accept(ctx, id)
			if err := stats.settle("accept", err, &stats.Accepted); err != nil {
				return err
			}
		}
		pause(10, 30)
	}
	return nil
}

// Rejector rejects random proposals, including accepted ones which must be refused.
func Rejector(ctx context.Context, pool *pgxpool.Pool, engine *lifecycle.Engine, stats *Stats, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		id, err := pick(ctx, pool, `SELECT id FROM proposals ORDER BY random() LIMIT 1`)
		if err != nil {
			if err := stats.settle("pick proposal", err, &stats.Transient); err != nil {
				return err
			}
			continue
		}
		if id != "" {
			_, err = engine.Reject(ctx, id)
			if err := stats.settle("reject", err, &stats.Rejected); err != nil {
				return err
			}
		}
		pause(20, 40)
	}
	return nil
}

// Deliverer hands in work on random proposals; only accepted ones on
// running jobs may succeed.
func Deliverer(ctx context.Context, pool *pgxpool.Pool, engine *lifecycle.Engine, stats *Stats, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		id, err := pick(ctx, pool, `SELECT id FROM proposals ORDER BY (status = 'ACCEPTED') DESC, random() LIMIT 1`)
		if err != nil {
			if err := stats.settle("pick proposal", err, &stats.Transient); err != nil {
				return err
			}
			continue
		}
		if id != "" {
			_, err = engine.Deliver(ctx, lifecycle.DeliverParams{ProposalID: id, Message: "stress delivery"})
			if err := stats.settle("deliver", err, &stats.Delivered); err != nil {
				return err
			}
		}
		pause(15, 30)
	}
	return nil
}

// Reviewer approves or sends back random jobs.
func Reviewer(ctx context.Context, pool *pgxpool.Pool, engine *lifecycle.Engine, stats *Stats, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		id, err := pick(ctx, pool, `SELECT id FROM jobs ORDER BY (status = 'REVIEW') DESC, random() LIMIT 1`)
		if err != nil {
			if err := stats.settle("pick job", err, &stats.Transient); err != nil {
				return err
			}
			continue
		}
		if id != "" {
			if rand.Intn(3) == 0 {
				_, err = engine.Approve(ctx, id)
				err = stats.settle("approve", err, &stats.Approved)
			} else {
				_, err = engine.RequestRevision(ctx, id, "stress revision")
				err = stats.settle("revision", err, &stats.Revised)
			}
			if err != nil {
				return err
			}
		}
		pause(20, 40)
	}
	return nil
}

// OutboxWorker drains queued mails through dispatcher until stopped.
func OutboxWorker(ctx context.Context, dispatcher *notification.Dispatcher, stats *Stats, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		n, err := dispatcher.DispatchOnce(ctx)
		if err != nil && !isTransient(err) {
			return fmt.Errorf("dispatch: %w", err)
		}
		stats.Dispatched.Add(int64(n))
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}
