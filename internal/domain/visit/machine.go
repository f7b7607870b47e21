package visit

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicportal/clinic/internal/platform/apperr"
)

var (
	ErrInvalidTransition          = apperr.State("invalid_transition", "visit status change not allowed")
	ErrIncompleteTransferDecision = apperr.State("incomplete_transfer_decision", "transfer is required but no transfer reason is recorded")
	ErrTransferNotAllowed         = apperr.State("transfer_not_allowed", "transfer can only be requested for scheduled or in-progress visits")
	ErrEmptyReason                = apperr.Validation("empty_reason", "transfer reason must not be blank")
	ErrOriginNotEligible          = apperr.State("origin_not_eligible", "cannot create a follow-up from a cancelled visit")
	ErrVisitCancelled             = apperr.State("visit_cancelled", "visit is cancelled")
	ErrVisitNotFound              = apperr.NotFound("visit_not_found", "visit not found")
	ErrClinicalLocked             = apperr.State("clinical_locked", "clinical details cannot change on a cancelled visit")
	ErrInvalidStage               = apperr.Validation("invalid_stage", "unsupported visit stage")
)

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Open reports whether the visit still accepts clinical and transfer changes.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// CanTransition reports whether from -> to is an edge of the status graph.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves v to target. Completing a visit that is flagged for
// transfer requires a recorded reason.
func Transition(v *Visit, target Status) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	if v.Status.Terminal() {
		return fmt.Errorf("%w: visit is %s", ErrInvalidTransition, v.Status)
	}
	if !CanTransition(v.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, v.Status, target)
	}
	if target == StatusCompleted && v.TransferRequired && strings.TrimSpace(v.TransferReason) == "" {
		return ErrIncompleteTransferDecision
	}
	v.Status = target
	return nil
}

// RequestTransfer flags v for transfer. Calling it again replaces the reason.
func RequestTransfer(v *Visit, reason string) error {
	if !v.Status.Open() {
		return fmt.Errorf("%w: visit is %s", ErrTransferNotAllowed, v.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	v.TransferRequired = true
	v.TransferReason = reason
	return nil
}

// NewFollowUp builds a scheduled visit chained to origin. The origin is not
// modified.
func NewFollowUp(origin *Visit, staffID string, scheduledAt time.Time, purpose string) (*Visit, error) {
	return newChained(origin, StageFollowUp, staffID, scheduledAt, purpose)
}

// NewLabResultReview builds a scheduled visit for going over lab results of
// origin.
func NewLabResultReview(origin *Visit, staffID string, scheduledAt time.Time, purpose string) (*Visit, error) {
	return newChained(origin, StageLabResultReview, staffID, scheduledAt, purpose)
}

func newChained(origin *Visit, stage Stage, staffID string, scheduledAt time.Time, purpose string) (*Visit, error) {
	if origin.Status == StatusCancelled {
		return nil, ErrOriginNotEligible
	}
	if staffID == "" {
		staffID = origin.StaffID
	}
	originID := origin.ID
	return &Visit{
		PatientID:   origin.PatientID,
		StaffID:     staffID,
		Stage:       stage,
		Status:      StatusScheduled,
		ScheduledAt: scheduledAt,
		Purpose:     purpose,
		FollowUpOf:  &originID,
	}, nil
}

// CheckLabOrderAllowed rejects lab orders on cancelled visits.
func CheckLabOrderAllowed(v *Visit) error {
	if v.Status == StatusCancelled {
		return fmt.Errorf("%w: visit %d", ErrVisitCancelled, v.ID)
	}
	return nil
}

// ApplyClinical copies the set fields of u onto v. The transfer flag can only
// be changed while the visit is open; setting it here records no reason.
func ApplyClinical(v *Visit, u ClinicalUpdate) error {
	if v.Status == StatusCancelled {
		return fmt.Errorf("%w: visit is %s", ErrClinicalLocked, v.Status)
	}
	if u.TransferRequired != nil {
		if !v.Status.Open() {
			return fmt.Errorf("%w: visit is %s", ErrTransferNotAllowed, v.Status)
		}
		v.TransferRequired = *u.TransferRequired
		if !v.TransferRequired {
			v.TransferReason = ""
		}
	}
	if u.Vitals != nil {
		v.Vitals = u.Vitals
	}
	if u.Findings != nil {
		v.Findings = *u.Findings
	}
	if u.Diagnosis != nil {
		v.Diagnosis = *u.Diagnosis
	}
	if u.Plan != nil {
		v.Plan = *u.Plan
	}
	return nil
}
