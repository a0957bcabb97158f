package main

import (
	"time"

	"jobpazar/auth"
	"jobpazar/job"
	"jobpazar/notification"
	"jobpazar/proposal"
)

type userResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	RequestedRole string `json:"requestedRole,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type jobResponse struct {
	ID          string  `json:"id"`
	EmployerID  string  `json:"employerId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Budget      string  `json:"budget"`
	Category    string  `json:"category"`
	Duration    string  `json:"duration"`
	Status      string  `json:"status"`
	StartedAt   *string `json:"startedAt"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type proposalResponse struct {
	ID              string   `json:"id"`
	JobID           string   `json:"jobId"`
	FreelancerID    string   `json:"freelancerId"`
	CoverLetter     string   `json:"coverLetter"`
	Price           *float64 `json:"price"`
	DaysToDeliver   *int     `json:"daysToDeliver"`
	DeliveryMessage *string  `json:"deliveryMessage"`
	DeliveryFileURL *string  `json:"deliveryFileUrl"`
	DeliveredAt     *string  `json:"deliveredAt"`
	Status          string   `json:"status"`
	CreatedAt       string   `json:"createdAt"`
}

type notificationResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Message   string  `json:"message"`
	Read      bool    `json:"read"`
	ReadAt    *string `json:"readAt"`
	CreatedAt string  `json:"createdAt"`
}

type statsResponse struct {
	TotalUsers int64 `json:"totalUsers"`
	TotalJobs  int64 `json:"totalJobs"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toUserResponse(u auth.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: formatTime(u.CreatedAt),
	}
	if u.RequestedRole != nil {
		resp.RequestedRole = string(*u.RequestedRole)
	}
	return resp
}

func toJobResponse(j job.Job) jobResponse {
	return jobResponse{
		ID:          j.ID,
		EmployerID:  j.EmployerID,
		Title:       j.Title,
		Description: j.Description,
		Budget:      j.Budget,
		Category:    j.Category,
		Duration:    j.Duration,
		Status:      string(j.Status),
		StartedAt:   formatTimePtr(j.StartedAt),
		CreatedAt:   formatTime(j.CreatedAt),
		UpdatedAt:   formatTime(j.UpdatedAt),
	}
}

func toJobResponses(jobs []job.Job) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	return out
}

func toProposalResponse(p proposal.Proposal) proposalResponse {
	return proposalResponse{
		ID:              p.ID,
		JobID:           p.JobID,
		FreelancerID:    p.FreelancerID,
		CoverLetter:     p.CoverLetter,
		Price:           p.Price,
		DaysToDeliver:   p.DaysToDeliver,
		DeliveryMessage: p.DeliveryMessage,
		DeliveryFileURL: p.DeliveryFileURL,
		DeliveredAt:     formatTimePtr(p.DeliveredAt),
		Status:          string(p.Status),
		CreatedAt:       formatTime(p.CreatedAt),
	}
}

func toProposalResponses(items []proposal.Proposal) []proposalResponse {
	out := make([]proposalResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toProposalResponse(p))
	}
	return out
}

func toNotificationResponses(items []notification.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, toNotificationResponse(n))
	}
	return out
}

func toNotificationResponse(n notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    formatTimePtr(n.ReadAt),
		CreatedAt: formatTime(n.CreatedAt),
	}
}
