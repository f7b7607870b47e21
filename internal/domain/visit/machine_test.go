package visit

import (
	"errors"
	"testing"
	"time"

	"github.com/clinicportal/clinic/internal/platform/apperr"
)

func TestTransition_Graph(t *testing.T) {
	all := []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusScheduled, StatusInProgress}: true,
		{StatusScheduled, StatusCancelled}:  true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusInProgress, StatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			v := &Visit{Status: from}
			err := Transition(v, to)
			if allowed[[2]Status{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
				}
				if v.Status != to {
					t.Errorf("%s -> %s: status not updated", from, to)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
			if v.Status != from {
				t.Errorf("%s -> %s: status changed on rejected transition", from, to)
			}
		}
	}
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		for _, to := range []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled} {
			v := &Visit{Status: from}
			err := Transition(v, to)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
			if apperr.KindOf(err) != apperr.KindState {
				t.Errorf("expected state error kind, got %s", apperr.KindOf(err))
			}
		}
	}
}

func TestTransition_UnknownTargetKeepsStatusInEnum(t *testing.T) {
	v := &Visit{Status: StatusScheduled}
	if err := Transition(v, "archived"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if !v.Status.Valid() {
		t.Errorf("status left the enum: %s", v.Status)
	}
}

func TestTransition_IncompleteTransferDecision(t *testing.T) {
	v := &Visit{Status: StatusInProgress, TransferRequired: true}
	err := Transition(v, StatusCompleted)
	if !errors.Is(err, ErrIncompleteTransferDecision) {
		t.Fatalf("expected ErrIncompleteTransferDecision, got %v", err)
	}
	if v.Status != StatusInProgress {
		t.Errorf("expected status unchanged, got %s", v.Status)
	}

	v.TransferReason = "   "
	if err := Transition(v, StatusCompleted); !errors.Is(err, ErrIncompleteTransferDecision) {
		t.Errorf("blank reason should still block completion, got %v", err)
	}

	v.TransferReason = "needs cardiology"
	if err := Transition(v, StatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", v.Status)
	}
}

func TestTransition_CancelIgnoresTransferDecision(t *testing.T) {
	v := &Visit{Status: StatusInProgress, TransferRequired: true}
	if err := Transition(v, StatusCancelled); err != nil {
		t.Errorf("cancellation should not need a transfer reason: %v", err)
	}
}

func TestRequestTransfer(t *testing.T) {
	v := &Visit{Status: StatusScheduled}

	err := RequestTransfer(v, "  ")
	if !errors.Is(err, ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation kind, got %s", apperr.KindOf(err))
	}
	if v.TransferRequired {
		t.Error("flag must not be set on failure")
	}

	if err := RequestTransfer(v, "orthopedics"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.TransferRequired || v.TransferReason != "orthopedics" {
		t.Errorf("unexpected transfer state %v %q", v.TransferRequired, v.TransferReason)
	}

	if err := RequestTransfer(v, "neurology"); err != nil {
		t.Fatalf("second request should overwrite: %v", err)
	}
	if v.TransferReason != "neurology" {
		t.Errorf("expected reason overwritten, got %q", v.TransferReason)
	}
}

func TestRequestTransfer_ClosedVisit(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		v := &Visit{Status: s}
		if err := RequestTransfer(v, "reason"); !errors.Is(err, ErrTransferNotAllowed) {
			t.Errorf("%s: expected ErrTransferNotAllowed, got %v", s, err)
		}
	}
}

func TestTransferScenario(t *testing.T) {
	v := &Visit{ID: 1, Status: StatusScheduled}
	if err := Transition(v, StatusInProgress); err != nil {
		t.Fatalf("start visit: %v", err)
	}
	if err := RequestTransfer(v, ""); !errors.Is(err, ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
	if err := RequestTransfer(v, "Needs specialist"); err != nil {
		t.Fatalf("request transfer: %v", err)
	}
	if err := Transition(v, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if v.Status != StatusCompleted || !v.TransferRequired || v.TransferReason != "Needs specialist" {
		t.Errorf("unexpected final state %+v", v)
	}
}

func TestNewFollowUp(t *testing.T) {
	when := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cancelled := &Visit{ID: 1, PatientID: "p1", Status: StatusCancelled}
	if _, err := NewFollowUp(cancelled, "dr-2", when, "recheck"); !errors.Is(err, ErrOriginNotEligible) {
		t.Errorf("expected ErrOriginNotEligible, got %v", err)
	}

	origin := &Visit{ID: 2, PatientID: "p1", StaffID: "dr-1", Stage: StageInitial, Status: StatusCompleted}
	next, err := NewFollowUp(origin, "", when, "recheck")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Stage != StageFollowUp || next.Status != StatusScheduled {
		t.Errorf("unexpected follow-up %+v", next)
	}
	if next.FollowUpOf == nil || *next.FollowUpOf != 2 {
		t.Errorf("expected follow_up_of=2, got %v", next.FollowUpOf)
	}
	if next.PatientID != "p1" || next.StaffID != "dr-1" {
		t.Errorf("expected patient and staff carried over, got %s/%s", next.PatientID, next.StaffID)
	}
	if origin.Status != StatusCompleted || origin.Stage != StageInitial {
		t.Error("origin must not change")
	}
}

func TestNewLabResultReview(t *testing.T) {
	origin := &Visit{ID: 3, PatientID: "p1", Status: StatusInProgress}
	next, err := NewLabResultReview(origin, "dr-3", time.Now(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Stage != StageLabResultReview || next.StaffID != "dr-3" {
		t.Errorf("unexpected visit %+v", next)
	}
}

func TestCheckLabOrderAllowed(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusInProgress, StatusCompleted} {
		if err := CheckLabOrderAllowed(&Visit{Status: s}); err != nil {
			t.Errorf("%s: unexpected error %v", s, err)
		}
	}
	if err := CheckLabOrderAllowed(&Visit{Status: StatusCancelled}); !errors.Is(err, ErrVisitCancelled) {
		t.Errorf("expected ErrVisitCancelled, got %v", err)
	}
}

func TestApplyClinical(t *testing.T) {
	findings := "clear lungs"
	flag := true
	v := &Visit{Status: StatusInProgress}
	err := ApplyClinical(v, ClinicalUpdate{
		Vitals:           map[string]interface{}{"bp": "120/80"},
		Findings:         &findings,
		TransferRequired: &flag,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Findings != findings || v.Vitals["bp"] != "120/80" || !v.TransferRequired {
		t.Errorf("unexpected visit %+v", v)
	}
	if v.TransferReason != "" {
		t.Error("flag alone must not invent a reason")
	}

	off := false
	v.TransferReason = "x"
	ApplyClinical(v, ClinicalUpdate{TransferRequired: &off})
	if v.TransferRequired || v.TransferReason != "" {
		t.Error("clearing the flag should clear the reason")
	}
}

func TestApplyClinical_Restrictions(t *testing.T) {
	flag := true
	done := &Visit{Status: StatusCompleted}
	if err := ApplyClinical(done, ClinicalUpdate{TransferRequired: &flag}); !errors.Is(err, ErrTransferNotAllowed) {
		t.Errorf("expected ErrTransferNotAllowed, got %v", err)
	}
	plan := "rest"
	if err := ApplyClinical(done, ClinicalUpdate{Plan: &plan}); err != nil {
		t.Errorf("notes on a completed visit should be allowed: %v", err)
	}
	if err := ApplyClinical(&Visit{Status: StatusCancelled}, ClinicalUpdate{Plan: &plan}); !errors.Is(err, ErrClinicalLocked) {
		t.Errorf("expected ErrClinicalLocked, got %v", err)
	}
}
