package proposal

import (
	"context"
	"errors"
)

// Reader is the read-only query surface behind the proposal listings.
type Reader interface {
	ListByJob(ctx context.Context, jobID string) ([]Proposal, error)
	ListByFreelancer(ctx context.Context, freelancerID string) ([]Proposal, error)
	GetByJobAndFreelancer(ctx context.Context, jobID, freelancerID string) (Proposal, error)
}

// Service answers proposal queries. Writes go through the lifecycle engine.
type Service struct {
	repo Reader
}

func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListForJob(ctx context.Context, jobID string) ([]Proposal, error) {
	return s.repo.ListByJob(ctx, jobID)
}

func (s *Service) ListForFreelancer(ctx context.Context, freelancerID string) ([]Proposal, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

// GetForJobAndFreelancer reports the freelancer's own proposal on a job.
// The boolean is false when the freelancer has not bid yet.
func (s *Service) GetForJobAndFreelancer(ctx context.Context, jobID, freelancerID string) (Proposal, bool, error) {
	p, err := s.repo.GetByJobAndFreelancer(ctx, jobID, freelancerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Proposal{}, false, nil
		}
		return Proposal{}, false, err
	}
	return p, true, nil
}
