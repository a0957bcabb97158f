package proposal

import (
	"context"
	"errors"
	"testing"
)

func TestService_GetForJobAndFreelancer(t *testing.T) {
	repo := &fakeReader{
		byPair: map[[2]string]Proposal{
			{"job-1", "fl-1"}: {ID: "p1", JobID: "job-1", FreelancerID: "fl-1", Status: StatusPending},
		},
	}
	svc := NewService(repo)

	p, ok, err := svc.GetForJobAndFreelancer(context.Background(), "job-1", "fl-1")
	if err != nil || !ok {
		t.Fatalf("expected proposal, got ok=%v err=%v", ok, err)
	}
	if p.ID != "p1" {
		t.Fatalf("unexpected proposal %+v", p)
	}

	_, ok, err = svc.GetForJobAndFreelancer(context.Background(), "job-1", "fl-2")
	if err != nil {
		t.Fatalf("missing proposal should not be an error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing proposal")
	}
}

func TestService_GetForJobAndFreelancer_Error(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeReader{err: boom})

	if _, _, err := svc.GetForJobAndFreelancer(context.Background(), "j", "f"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestService_Lists(t *testing.T) {
	repo := &fakeReader{
		byJob:        map[string][]Proposal{"job-1": {{ID: "p1"}, {ID: "p2"}}},
		byFreelancer: map[string][]Proposal{"fl-1": {{ID: "p1"}}},
	}
	svc := NewService(repo)

	got, err := svc.ListForJob(context.Background(), "job-1")
	if err != nil || len(got) != 2 {
		t.Fatalf("list for job: %v %v", got, err)
	}
	got, err = svc.ListForFreelancer(context.Background(), "fl-1")
	if err != nil || len(got) != 1 {
		t.Fatalf("list for freelancer: %v %v", got, err)
	}
}

type fakeReader struct {
	byJob        map[string][]Proposal
	byFreelancer map[string][]Proposal
	byPair       map[[2]string]Proposal
	err          error
}

func (f *fakeReader) ListByJob(_ context.Context, jobID string) ([]Proposal, error) {
	return f.byJob[jobID], f.err
}

func (f *fakeReader) ListByFreelancer(_ context.Context, freelancerID string) ([]Proposal, error) {
	return f.byFreelancer[freelancerID], f.err
}

func (f *fakeReader) GetByJobAndFreelancer(_ context.Context, jobID, freelancerID string) (Proposal, error) {
	if f.err != nil {
		return Proposal{}, f.err
	}
	p, ok := f.byPair[[2]string{jobID, freelancerID}]
	if !ok {
		return Proposal{}, ErrNotFound
	}
	return p, nil
}
