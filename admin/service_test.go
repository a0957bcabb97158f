package admin

import (
	"context"
	"errors"
	"testing"

	"jobpazar/auth"
	"jobpazar/job"
)

type fakeUsers struct {
	users    []auth.User
	countErr error
}

func (f *fakeUsers) ListUsers(context.Context) ([]auth.User, error) { return f.users, nil }

func (f *fakeUsers) CountUsers(context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.users)), nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id string) error {
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return auth.ErrUserNotFound
}

type fakeJobs []job.Job

func (f fakeJobs) ListAll(context.Context) ([]job.Job, error) { return f, nil }
func (f fakeJobs) Count(context.Context) (int64, error)       { return int64(len(f)), nil }

func (f *fakeJobs) Delete(_ context.Context, id string) error {
	for i, j := range *f {
		if j.ID == id {
			*f = append((*f)[:i], (*f)[i+1:]...)
			return nil
		}
	}
	return job.ErrNotFound
}

func TestService_Stats(t *testing.T) {
	users := &fakeUsers{users: []auth.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}}
	svc := NewService(users, &fakeJobs{{ID: "j1"}, {ID: "j2"}})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 3 || stats.TotalJobs != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestService_StatsPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeUsers{countErr: boom}, &fakeJobs{})

	if _, err := svc.Stats(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestService_DeleteUser(t *testing.T) {
	users := &fakeUsers{users: []auth.User{{ID: "u1"}, {ID: "u2"}}}
	svc := NewService(users, &fakeJobs{})
	ctx := context.Background()

	if err := svc.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, _ := svc.ListUsers(ctx)
	if len(remaining) != 1 || remaining[0].ID != "u2" {
		t.Fatalf("unexpected users %+v", remaining)
	}
	if err := svc.DeleteUser(ctx, "u1"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestService_DeleteJob(t *testing.T) {
	jobs := &fakeJobs{{ID: "j1", Status: job.StatusInProgress}, {ID: "j2"}}
	svc := NewService(&fakeUsers{}, jobs)
	ctx := context.Background()

	if err := svc.DeleteJob(ctx, "j1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, _ := svc.ListJobs(ctx)
	if len(remaining) != 1 || remaining[0].ID != "j2" {
		t.Fatalf("unexpected jobs %+v", remaining)
	}
	if err := svc.DeleteJob(ctx, "j1"); !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("expected job.ErrNotFound, got %v", err)
	}
}
