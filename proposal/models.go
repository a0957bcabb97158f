package proposal

import "time"

// Status is the decision state of a proposal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Proposal mirrors the proposals table. Delivery fields stay nil until the
// freelancer hands in work.
type Proposal struct {
	ID              string
	JobID           string
	FreelancerID    string
	CoverLetter     string
	Price           *float64
	DaysToDeliver   *int
	DeliveryMessage *string
	DeliveryFileURL *string
	DeliveredAt     *time.Time
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UpsertParams carries the freelancer-supplied bid. Resubmitting for the same
// (JobID, FreelancerID) overwrites the previous bid.
type UpsertParams struct {
	JobID         string
	FreelancerID  string
	CoverLetter   string
	Price         *float64
	DaysToDeliver *int
}

// Delivery is the work hand-in payload.
type Delivery struct {
	Message     string
	FileURL     string
	DeliveredAt time.Time
}
