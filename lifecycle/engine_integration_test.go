package lifecycle

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"jobpazar/auth"
	"jobpazar/db"
	"jobpazar/job"
	"jobpazar/notification"
	"jobpazar/proposal"
)

type pgFixture struct {
	engine        *Engine
	users         *auth.PGRepository
	jobs          *job.PGRepository
	proposals     *proposal.PGRepository
	notifications *notification.PGRepository
}

func newPGFixture(t *testing.T) (*pgFixture, func()) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn, db.WithMaxConns(8), db.WithApplicationName("jobpazar-lifecycle-test"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}

	users := auth.NewRepository(pool)
	jobs := job.NewRepository(pool)
	proposals := proposal.NewRepository(pool)
	notes := notification.NewRepository(pool)
	engine := NewEngine(pool, jobs, proposals, users, notification.NewNotifier(notes)).
		WithLogger(log.New(io.Discard, "", 0))

	return &pgFixture{
		engine:        engine,
		users:         users,
		jobs:          jobs,
		proposals:     proposals,
		notifications: notes,
	}, pool.Close
}

func (f *pgFixture) user(t *testing.T, role auth.Role) auth.User {
	t.Helper()
	name := "it-" + uuid.NewString()
	u, err := f.users.CreateUser(context.Background(), auth.CreateUserParams{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { _ = f.users.DeleteUser(context.Background(), u.ID) })
	return u
}

func TestEngine_ConcurrentAcceptPostgres(t *testing.T) {
	f, closePool := newPGFixture(t)
	defer closePool()
	ctx := context.Background()

	employer := f.user(t, auth.RoleEmployer)
	j, err := f.jobs.Create(ctx, employer.ID, job.Fields{Title: "Yarış", Budget: "Orta"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	const bidders = 6
	ids := make([]string, 0, bidders)
	for i := 0; i < bidders; i++ {
		fl := f.user(t, auth.RoleFreelancer)
		p, err := f.engine.Submit(ctx, SubmitParams{JobID: j.ID, FreelancerID: fl.ID, Price: price(6000 + float64(i))})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, p.ID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		notOpen  int
		unexpect []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.engine.Accept(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrJobNotOpen), errors.Is(err, proposal.ErrAlreadyAccepted):
				notOpen++
			default:
				unexpect = append(unexpect, err)
			}
		}(id)
	}
	wg.Wait()

	if len(unexpect) > 0 {
		t.Fatalf("unexpected accept errors: %v", unexpect)
	}
	if winners != 1 || notOpen != bidders-1 {
		t.Fatalf("expected exactly one winner, got winners=%d losers=%d", winners, notOpen)
	}

	all, err := f.proposals.ListByJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("list proposals: %v", err)
	}
	accepted := 0
	var winner proposal.Proposal
	for _, p := range all {
		switch p.Status {
		case proposal.StatusAccepted:
			accepted++
			winner = p
		case proposal.StatusRejected:
		default:
			t.Fatalf("proposal %s left in %s", p.ID, p.Status)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected one ACCEPTED proposal, got %d", accepted)
	}

	got, err := f.jobs.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != job.StatusInProgress || got.StartedAt == nil {
		t.Fatalf("expected IN_PROGRESS with started_at, got %+v", got)
	}

	inbox, err := f.notifications.ListForUser(ctx, winner.FreelancerID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("winner expected one notification, got %d", len(inbox))
	}
}

func TestEngine_DeliverReviewCyclePostgres(t *testing.T) {
	f, closePool := newPGFixture(t)
	defer closePool()
	ctx := context.Background()

	employer := f.user(t, auth.RoleEmployer)
	freelancer := f.user(t, auth.RoleFreelancer)
	j, err := f.jobs.Create(ctx, employer.ID, job.Fields{Title: "Döngü", Budget: "Medium"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	p, err := f.engine.Submit(ctx, SubmitParams{JobID: j.ID, FreelancerID: freelancer.ID, Price: price(8000)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.engine.Accept(ctx, p.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.engine.Deliver(ctx, DeliverParams{ProposalID: p.ID, Message: "v1"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := f.engine.RequestRevision(ctx, j.ID, "add tests"); err != nil {
		t.Fatalf("revision: %v", err)
	}
	if _, err := f.engine.Deliver(ctx, DeliverParams{ProposalID: p.ID, Message: "v2", FileURL: "https://files.example.com/v2.zip"}); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	// The employer has not reviewed v2 yet; a fresh delivery replaces it.
	if _, err := f.engine.Deliver(ctx, DeliverParams{ProposalID: p.ID, Message: "v3"}); err != nil {
		t.Fatalf("deliver in review: %v", err)
	}
	inReview, err := f.jobs.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if inReview.Status != job.StatusReview {
		t.Fatalf("expected REVIEW after delivering in review, got %s", inReview.Status)
	}
	stored, err := f.proposals.GetByJobAndFreelancer(ctx, j.ID, freelancer.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if stored.DeliveryMessage == nil || *stored.DeliveryMessage != "v3" {
		t.Fatalf("expected delivery v3, got %+v", stored.DeliveryMessage)
	}

	done, err := f.engine.Approve(ctx, j.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if done.Status != job.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", done.Status)
	}

	inbox, err := f.notifications.ListForUser(ctx, freelancer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(inbox) != 3 {
		t.Fatalf("freelancer expected accept, revision and approve notifications, got %d", len(inbox))
	}
	if inbox[1].Message != "Revize Talebi: 'Döngü' işi için revize istendi. Not: add tests" {
		t.Fatalf("unexpected revision message %q", inbox[1].Message)
	}

	employerInbox, err := f.notifications.ListForUser(ctx, employer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(employerInbox) != 3 {
		t.Fatalf("employer expected one notification per delivery, got %d", len(employerInbox))
	}
}
