package job

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"jobpazar/apperr"
	"jobpazar/auth"
)

func TestService_Create(t *testing.T) {
	repo := newFakeRepo()
	users := fakeUsers{"emp-1": {ID: "emp-1", Role: auth.RoleEmployer}}
	svc := NewService(repo, users)

	j, err := svc.Create(context.Background(), "emp-1", Fields{Title: "  Logo tasarımı ", Budget: " Medium "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.Status != StatusOpen {
		t.Fatalf("expected OPEN, got %s", j.Status)
	}
	if j.Title != "Logo tasarımı" || j.Budget != "Medium" {
		t.Fatalf("expected trimmed fields, got %+v", j)
	}
	if j.EmployerID != "emp-1" {
		t.Fatalf("expected employer emp-1, got %s", j.EmployerID)
	}
}

func TestService_CreateMissingEmployer(t *testing.T) {
	svc := NewService(newFakeRepo(), fakeUsers{})

	_, err := svc.Create(context.Background(), "ghost", Fields{Title: "x"})
	if !errors.Is(err, ErrEmployerNotFound) {
		t.Fatalf("expected ErrEmployerNotFound, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found kind, got %s", apperr.KindOf(err))
	}
}

func TestService_CreateRequiresTitle(t *testing.T) {
	svc := NewService(newFakeRepo(), fakeUsers{"emp-1": {ID: "emp-1"}})

	if _, err := svc.Create(context.Background(), "emp-1", Fields{Title: "   "}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestService_UpdateKeepsStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakeUsers{"emp-1": {ID: "emp-1"}})

	j, err := svc.Create(context.Background(), "emp-1", Fields{Title: "Eski"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.jobs[j.ID] = withStatus(repo.jobs[j.ID], StatusReview)

	updated, err := svc.Update(context.Background(), j.ID, Fields{Title: "Yeni", Category: "Design"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Yeni" || updated.Category != "Design" {
		t.Fatalf("unexpected fields %+v", updated)
	}
	if updated.Status != StatusReview {
		t.Fatalf("update must not touch status, got %s", updated.Status)
	}

	if _, err := svc.Update(context.Background(), "missing", Fields{Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_DeleteAndList(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, fakeUsers{"emp-1": {ID: "emp-1"}, "emp-2": {ID: "emp-2"}})
	ctx := context.Background()

	a, _ := svc.Create(ctx, "emp-1", Fields{Title: "A"})
	b, _ := svc.Create(ctx, "emp-1", Fields{Title: "B"})
	if _, err := svc.Create(ctx, "emp-2", Fields{Title: "C"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.jobs[b.ID] = withStatus(repo.jobs[b.ID], StatusInProgress)

	open, err := svc.ListOpen(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open jobs, got %d", len(open))
	}

	mine, err := svc.ListByEmployer(ctx, "emp-1")
	if err != nil {
		t.Fatalf("list by employer: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 jobs for emp-1, got %d", len(mine))
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func withStatus(j Job, s Status) Job {
	j.Status = s
	return j
}

type fakeUsers map[string]auth.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (auth.User, error) {
	u, ok := f[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

type fakeRepo struct {
	jobs  map[string]Job
	order []string
	next  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[string]Job)}
}

func (f *fakeRepo) Create(_ context.Context, employerID string, fields Fields) (Job, error) {
	f.next++
	now := time.Now().UTC()
	j := Job{
		ID:          fmt.Sprintf("job-%d", f.next),
		EmployerID:  employerID,
		Title:       fields.Title,
		Description: fields.Description,
		Budget:      fields.Budget,
		Category:    fields.Category,
		Duration:    fields.Duration,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.jobs[j.ID] = j
	f.order = append(f.order, j.ID)
	return j, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}

func (f *fakeRepo) filter(keep func(Job) bool) []Job {
	out := make([]Job, 0, len(f.order))
	for _, id := range f.order {
		if j, ok := f.jobs[id]; ok && keep(j) {
			out = append(out, j)
		}
	}
	return out
}

func (f *fakeRepo) ListOpen(context.Context) ([]Job, error) {
	return f.filter(func(j Job) bool { return j.Status == StatusOpen }), nil
}

func (f *fakeRepo) ListByEmployer(_ context.Context, employerID string) ([]Job, error) {
	return f.filter(func(j Job) bool { return j.EmployerID == employerID }), nil
}

func (f *fakeRepo) ListAll(context.Context) ([]Job, error) {
	return f.filter(func(Job) bool { return true }), nil
}

func (f *fakeRepo) Count(context.Context) (int64, error) {
	return int64(len(f.jobs)), nil
}

func (f *fakeRepo) Update(_ context.Context, id string, fields Fields) (Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	j.Title = fields.Title
	j.Description = fields.Description
	j.Budget = fields.Budget
	j.Category = fields.Category
	j.Duration = fields.Duration
	f.jobs[id] = j
	return j, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}
