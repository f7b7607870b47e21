package appointment

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a patient's ask for a visit. Approval books it as an initial
// visit.
type Request struct {
	ID           int64     `json:"id"`
	PatientID    string    `json:"patient_id"`
	PreferredAt  time.Time `json:"preferred_at"`
	Reason       string    `json:"reason"`
	Status       Status    `json:"status"`
	DecidedBy    string    `json:"decided_by,omitempty"`
	DecisionNote string    `json:"decision_note,omitempty"`
	VisitID      *int64    `json:"visit_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilter narrows List; empty fields match everything.
type ListFilter struct {
	Status    Status
	PatientID string
}
