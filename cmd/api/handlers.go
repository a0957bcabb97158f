package main

import (
	"net/http"

	"jobpazar/auth"
	"jobpazar/job"
	"jobpazar/lifecycle"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Printf("[http] health: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, User: toUserResponse(res.User)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := s.authService.GetUserByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleRequestRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := s.authService.RequestRole(r.Context(), id, auth.Role(r.URL.Query().Get("role")))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

type jobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Budget      string `json:"budget"`
	Category    string `json:"category"`
	Duration    string `json:"duration"`
}

func (req jobRequest) fields() job.Fields {
	return job.Fields{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Category:    req.Category,
		Duration:    req.Duration,
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	employerID, ok := queryID(w, r, "employerId")
	if !ok {
		return
	}
	var req jobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := s.jobService.Create(r.Context(), employerID, req.fields())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(created))
}

func (s *Server) handleListOpenJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobService.ListOpen(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponses(jobs))
}

func (s *Server) handleListMyJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(w, r, "userId")
	if !ok {
		return
	}
	jobs, err := s.jobService.ListByEmployer(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponses(jobs))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	j, err := s.jobService.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(j))
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req jobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.jobService.Update(r.Context(), id, req.fields())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(updated))
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.jobService.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type deliverRequest struct {
	Message string `json:"message"`
	FileURL string `json:"fileUrl"`
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := pathID(w, r, "proposalId")
	if !ok {
		return
	}
	var req deliverRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	delivered, err := s.engine.Deliver(r.Context(), lifecycle.DeliverParams{
		ProposalID: proposalID,
		Message:    req.Message,
		FileURL:    req.FileURL,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(delivered))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "jobId")
	if !ok {
		return
	}
	j, err := s.engine.Approve(r.Context(), jobID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(j))
}

type revisionRequest struct {
	Feedback string `json:"feedback"`
}

func (s *Server) handleRevision(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "jobId")
	if !ok {
		return
	}
	var req revisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	j, err := s.engine.RequestRevision(r.Context(), jobID, req.Feedback)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(j))
}

type proposalRequest struct {
	CoverLetter   string   `json:"coverLetter"`
	Price         *float64 `json:"price"`
	DaysToDeliver *int     `json:"daysToDeliver"`
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "jobId")
	if !ok {
		return
	}
	freelancerID, ok := queryID(w, r, "freelancerId")
	if !ok {
		return
	}
	var req proposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.engine.Submit(r.Context(), lifecycle.SubmitParams{
		JobID:         jobID,
		FreelancerID:  freelancerID,
		Price:         req.Price,
		CoverLetter:   req.CoverLetter,
		DaysToDeliver: req.DaysToDeliver,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(p))
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "jobId")
	if !ok {
		return
	}
	items, err := s.proposalService.ListForJob(r.Context(), jobID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponses(items))
}

func (s *Server) handleMyProposals(w http.ResponseWriter, r *http.Request) {
	freelancerID, ok := queryID(w, r, "freelancerId")
	if !ok {
		return
	}
	items, err := s.proposalService.ListForFreelancer(r.Context(), freelancerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponses(items))
}

func (s *Server) handleMyProposal(w http.ResponseWriter, r *http.Request) {
	jobID, ok := queryID(w, r, "jobId")
	if !ok {
		return
	}
	freelancerID, ok := queryID(w, r, "freelancerId")
	if !ok {
		return
	}
	p, found, err := s.proposalService.GetForJobAndFreelancer(r.Context(), jobID, freelancerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(p))
}

func (s *Server) handleAcceptProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.engine.Accept(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(p))
}

func (s *Server) handleRejectProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.engine.Reject(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalResponse(p))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	items, err := s.notificationService.ListForUser(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponses(items))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := s.notificationService.MarkRead(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.adminService.Stats(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{TotalUsers: stats.TotalUsers, TotalJobs: stats.TotalJobs})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.adminService.ListUsers(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.adminService.ListJobs(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponses(jobs))
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.adminService.DeleteUser(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAdminDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.adminService.DeleteJob(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
