// Package admin exposes platform-wide read and moderation operations.
package admin

import (
	"context"
	"fmt"

	"jobpazar/auth"
	"jobpazar/job"
)

// UserStore abstracts account operations for the service.
type UserStore interface {
	ListUsers(ctx context.Context) ([]auth.User, error)
	CountUsers(ctx context.Context) (int64, error)
	DeleteUser(ctx context.Context, userID string) error
}

// JobStore abstracts job operations for the service.
type JobStore interface {
	ListAll(ctx context.Context) ([]job.Job, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// Service exposes business-level admin operations.
type Service struct {
	users UserStore
	jobs  JobStore
}

// NewService builds a Service using the provided repositories.
func NewService(users UserStore, jobs JobStore) *Service {
	return &Service{users: users, jobs: jobs}
}

// Stats counts users and jobs.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("admin: count users: %w", err)
	}
	jobs, err := s.jobs.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("admin: count jobs: %w", err)
	}
	return Stats{TotalUsers: users, TotalJobs: jobs}, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]auth.User, error) {
	return s.users.ListUsers(ctx)
}

// ListJobs returns every job regardless of status.
func (s *Service) ListJobs(ctx context.Context) ([]job.Job, error) {
	return s.jobs.ListAll(ctx)
}

// DeleteUser removes an account together with everything it owns.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.users.DeleteUser(ctx, userID)
}

// DeleteJob removes a job posting of any status with its proposals.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	return s.jobs.Delete(ctx, jobID)
}
