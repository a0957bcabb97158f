package job

import (
	"context"
	"errors"
	"strings"

	"jobpazar/apperr"
	"jobpazar/auth"
)

// ErrTitleRequired is returned when a job is saved without a title.
var ErrTitleRequired = apperr.New(apperr.KindValidation, "job: title required", "İlan başlığı zorunludur.")

// UserReader resolves accounts referenced by jobs.
type UserReader interface {
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
}

// Service exposes job posting CRUD. Status transitions live in the
// lifecycle engine.
type Service struct {
	repo  Repository
	users UserReader
}

func NewService(repo Repository, users UserReader) *Service {
	return &Service{repo: repo, users: users}
}

// Create posts a new OPEN job for employerID.
func (s *Service) Create(ctx context.Context, employerID string, fields Fields) (Job, error) {
	fields = normalize(fields)
	if fields.Title == "" {
		return Job{}, ErrTitleRequired
	}
	if s.users != nil {
		if _, err := s.users.GetUserByID(ctx, employerID); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				return Job{}, ErrEmployerNotFound
			}
			return Job{}, err
		}
	}
	return s.repo.Create(ctx, employerID, fields)
}

func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	return s.repo.Get(ctx, id)
}

// ListOpen returns every job still accepting proposals, newest first.
func (s *Service) ListOpen(ctx context.Context) ([]Job, error) {
	return s.repo.ListOpen(ctx)
}

func (s *Service) ListByEmployer(ctx context.Context, employerID string) ([]Job, error) {
	return s.repo.ListByEmployer(ctx, employerID)
}

func (s *Service) Update(ctx context.Context, id string, fields Fields) (Job, error) {
	fields = normalize(fields)
	if fields.Title == "" {
		return Job{}, ErrTitleRequired
	}
	return s.repo.Update(ctx, id, fields)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func normalize(f Fields) Fields {
	f.Title = strings.TrimSpace(f.Title)
	f.Budget = strings.TrimSpace(f.Budget)
	f.Category = strings.TrimSpace(f.Category)
	f.Duration = strings.TrimSpace(f.Duration)
	return f
}
