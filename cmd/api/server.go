package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"jobpazar/admin"
	"jobpazar/apperr"
	"jobpazar/auth"
	"jobpazar/job"
	"jobpazar/lifecycle"
	"jobpazar/notification"
	"jobpazar/proposal"
	"jobpazar/ratelimit"
)

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
	RequestRole(ctx context.Context, userID string, role auth.Role) (*auth.User, error)
}

type jobService interface {
	Create(ctx context.Context, employerID string, fields job.Fields) (job.Job, error)
	Get(ctx context.Context, id string) (job.Job, error)
	ListOpen(ctx context.Context) ([]job.Job, error)
	ListByEmployer(ctx context.Context, employerID string) ([]job.Job, error)
	Update(ctx context.Context, id string, fields job.Fields) (job.Job, error)
	Delete(ctx context.Context, id string) error
}

type proposalService interface {
	ListForJob(ctx context.Context, jobID string) ([]proposal.Proposal, error)
	ListForFreelancer(ctx context.Context, freelancerID string) ([]proposal.Proposal, error)
	GetForJobAndFreelancer(ctx context.Context, jobID, freelancerID string) (proposal.Proposal, bool, error)
}

type lifecycleEngine interface {
	Submit(ctx context.Context, params lifecycle.SubmitParams) (proposal.Proposal, error)
	Accept(ctx context.Context, proposalID string) (proposal.Proposal, error)
	Reject(ctx context.Context, proposalID string) (proposal.Proposal, error)
	Deliver(ctx context.Context, params lifecycle.DeliverParams) (proposal.Proposal, error)
	Approve(ctx context.Context, jobID string) (job.Job, error)
	RequestRevision(ctx context.Context, jobID, feedback string) (job.Job, error)
}

type notificationService interface {
	ListForUser(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id string) (notification.Notification, error)
}

type adminService interface {
	Stats(ctx context.Context) (admin.Stats, error)
	ListUsers(ctx context.Context) ([]auth.User, error)
	ListJobs(ctx context.Context) ([]job.Job, error)
	DeleteUser(ctx context.Context, userID string) error
	DeleteJob(ctx context.Context, jobID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the HTTP surface to the domain services.
type Server struct {
	authService         authService
	jobService          jobService
	proposalService     proposalService
	engine              lifecycleEngine
	notificationService notificationService
	adminService        adminService
	db                  pinger
	limiter             ratelimit.Limiter
	requestTimeout      time.Duration
	logger              *log.Logger
	mux                 *http.ServeMux
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.mux == nil {
		s.mux = http.NewServeMux()
		s.routes()
	}
	var h http.Handler = s.mux
	h = s.rateLimit(h)
	h = s.timeout(h)
	return s.logRequests(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /auth/user/{id}", s.handleGetUser)
	s.mux.HandleFunc("POST /users/{id}/request-role", s.handleRequestRole)

	s.mux.HandleFunc("POST /jobs", s.handleCreateJob)
	s.mux.HandleFunc("GET /jobs", s.handleListOpenJobs)
	s.mux.HandleFunc("GET /jobs/my-jobs", s.handleListMyJobs)
	s.mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("PUT /jobs/{id}", s.handleUpdateJob)
	s.mux.HandleFunc("DELETE /jobs/{id}", s.handleDeleteJob)
	s.mux.HandleFunc("POST /jobs/deliver/{proposalId}", s.handleDeliver)
	s.mux.HandleFunc("POST /jobs/approve/{jobId}", s.handleApprove)
	s.mux.HandleFunc("POST /jobs/revision/{jobId}", s.handleRevision)

	s.mux.HandleFunc("POST /proposals/{jobId}", s.handleSubmitProposal)
	s.mux.HandleFunc("GET /proposals/my-proposals", s.handleMyProposals)
	s.mux.HandleFunc("GET /proposals/my-proposal", s.handleMyProposal)
	s.mux.HandleFunc("GET /proposals/{jobId}", s.handleListProposals)
	s.mux.HandleFunc("PUT /proposals/{id}/accept", s.handleAcceptProposal)
	s.mux.HandleFunc("PUT /proposals/{id}/reject", s.handleRejectProposal)

	s.mux.HandleFunc("GET /notifications/{userId}", s.handleListNotifications)
	s.mux.HandleFunc("PUT /notifications/{id}/read", s.handleMarkRead)

	s.mux.HandleFunc("GET /admin/stats", s.handleAdminStats)
	s.mux.HandleFunc("GET /admin/users", s.handleAdminUsers)
	s.mux.HandleFunc("GET /admin/jobs", s.handleAdminJobs)
	s.mux.HandleFunc("DELETE /admin/users/{id}", s.handleAdminDeleteUser)
	s.mux.HandleFunc("DELETE /admin/jobs/{id}", s.handleAdminDeleteJob)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) timeout(next http.Handler) http.Handler {
	if s.requestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit throttles mutating requests per client address. Limiter outages
// let traffic through.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		ok, err := s.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			s.logger.Printf("[http] rate limiter unavailable: %v", err)
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, "Çok fazla istek. Lütfen daha sonra tekrar deneyin.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// pathID reads and validates a UUID path segment.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	return parseID(w, r.PathValue(name), name)
}

// queryID reads and validates a required UUID query parameter.
func queryID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	return parseID(w, r.URL.Query().Get(name), name)
}

func parseID(w http.ResponseWriter, raw, name string) (string, bool) {
	if raw == "" {
		writeError(w, http.StatusBadRequest, name+" is required")
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return id.String(), true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a service error onto a status code. Unclassified
// errors are logged and reported generically.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Kullanıcı adı veya şifre hatalı.")
		return
	}

	var status int
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidState, apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Printf("[http] %s %s timed out: %v", r.Method, r.URL.Path, err)
			writeError(w, http.StatusServiceUnavailable, "request timed out")
			return
		}
		s.logger.Printf("[http] %s %s failed: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeError(w, status, apperr.PublicMessage(err))
}
