package visit

import "time"

// Stage is fixed when the visit is created.
type Stage string

const (
	StageInitial         Stage = "initial"
	StageFollowUp        Stage = "follow_up"
	StageLabResultReview Stage = "lab_result_review"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Visit struct {
	ID                   int64                  `json:"id"`
	PatientID            string                 `json:"patient_id"`
	StaffID              string                 `json:"staff_id"`
	Stage                Stage                  `json:"stage"`
	Status               Status                 `json:"status"`
	ScheduledAt          time.Time              `json:"scheduled_at"`
	Purpose              string                 `json:"purpose,omitempty"`
	TransferRequired     bool                   `json:"transfer_required"`
	TransferReason       string                 `json:"transfer_reason,omitempty"`
	FollowUpOf           *int64                 `json:"follow_up_of,omitempty"`
	AppointmentRequestID *int64                 `json:"appointment_request_id,omitempty"`
	Vitals               map[string]interface{} `json:"vitals,omitempty"`
	Findings             string                 `json:"findings,omitempty"`
	Diagnosis            string                 `json:"diagnosis,omitempty"`
	Plan                 string                 `json:"plan,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// StatusHistory records one status change of a visit.
type StatusHistory struct {
	ID         int64     `json:"id"`
	VisitID    int64     `json:"visit_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
}

// ClinicalUpdate carries the fields a clinician may edit. Nil fields are
// left untouched.
type ClinicalUpdate struct {
	Vitals           map[string]interface{} `json:"vitals"`
	Findings         *string                `json:"findings"`
	Diagnosis        *string                `json:"diagnosis"`
	Plan             *string                `json:"plan"`
	TransferRequired *bool                  `json:"transfer_required"`
}
