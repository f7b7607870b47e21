package visit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/domain/lab"
	"github.com/clinicportal/clinic/internal/platform/apperr"
	"github.com/clinicportal/clinic/internal/platform/db"
	"github.com/clinicportal/clinic/internal/platform/events"
)

// LabOrders is the part of the lab service a visit needs.
type LabOrders interface {
	ResolveTests(ctx context.Context, ids []int64) ([]*lab.Test, error)
	PlaceOrder(ctx context.Context, req lab.PlaceOrderRequest) (*lab.Order, error)
}

var ErrMissingPatient = apperr.Validation("missing_patient", "patient_id is required")

type Service struct {
	visits  Repository
	history StatusHistoryRepository
	labs    LabOrders
	tx      db.Transactor
	bus     events.Publisher
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(visits Repository, history StatusHistoryRepository, labs LabOrders, tx db.Transactor, bus events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		visits:  visits,
		history: history,
		labs:    labs,
		tx:      tx,
		bus:     bus,
		logger:  logger.With().Str("component", "visit").Logger(),
		now:     time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Visit, error) {
	return s.visits.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Visit, int, error) {
	return s.visits.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) StatusHistory(ctx context.Context, id int64) ([]*StatusHistory, error) {
	if _, err := s.visits.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListByVisit(ctx, id)
}

// CreateInitial opens a first visit for a patient, optionally linked to the
// appointment request it was booked from.
func (s *Service) CreateInitial(ctx context.Context, patientID, staffID string, scheduledAt time.Time, purpose string, appointmentRequestID *int64) (*Visit, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, ErrMissingPatient
	}
	v := &Visit{
		PatientID:            patientID,
		StaffID:              staffID,
		Stage:                StageInitial,
		Status:               StatusScheduled,
		ScheduledAt:          scheduledAt,
		Purpose:              purpose,
		AppointmentRequestID: appointmentRequestID,
	}
	if err := s.visits.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Transition persists a status change together with its history row and
// then announces it. A failed announcement is logged and does not undo the
// change.
func (s *Service) Transition(ctx context.Context, id int64, target Status, actor string) (*Visit, error) {
	var (
		v    *Visit
		from Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.visits.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from = v.Status
		if err := Transition(v, target); err != nil {
			return err
		}
		if err := s.visits.Update(ctx, v); err != nil {
			return err
		}
		return s.history.Create(ctx, &StatusHistory{
			VisitID:    v.ID,
			FromStatus: from,
			ToStatus:   target,
			ChangedBy:  actor,
			ChangedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.VisitStatusChanged, events.VisitStatusChangedData{
		VisitID:   v.ID,
		PatientID: v.PatientID,
		StaffID:   v.StaffID,
		From:      string(from),
		To:        string(target),
		ChangedBy: actor,
	})
	return v, nil
}

func (s *Service) RequestTransfer(ctx context.Context, id int64, reason, actor string) (*Visit, error) {
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequestTransfer(v, reason); err != nil {
		return nil, err
	}
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, err
	}

	s.emit(ctx, events.TransferRequested, events.TransferRequestedData{
		VisitID:   v.ID,
		PatientID: v.PatientID,
		Reason:    v.TransferReason,
		By:        actor,
	})
	return v, nil
}

// CreateFollowUp chains a new scheduled visit to origin. stage may be empty
// (follow_up) or lab_result_review.
func (s *Service) CreateFollowUp(ctx context.Context, originID int64, stage Stage, staffID string, scheduledAt time.Time, purpose string) (*Visit, error) {
	origin, err := s.visits.GetByID(ctx, originID)
	if err != nil {
		return nil, err
	}

	var next *Visit
	switch stage {
	case "", StageFollowUp:
		next, err = NewFollowUp(origin, staffID, scheduledAt, purpose)
	case StageLabResultReview:
		next, err = NewLabResultReview(origin, staffID, scheduledAt, purpose)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStage, stage)
	}
	if err != nil {
		return nil, err
	}

	if err := s.visits.Create(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// AttachLabOrder checks the selection, then that every test exists, then the
// visit state, and finally places a pending order.
func (s *Service) AttachLabOrder(ctx context.Context, id int64, testIDs []int64, notes, actor string) (*lab.Order, error) {
	if err := lab.ValidateSelection(testIDs); err != nil {
		return nil, err
	}
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.labs.ResolveTests(ctx, testIDs); err != nil {
		return nil, err
	}
	if err := CheckLabOrderAllowed(v); err != nil {
		return nil, err
	}
	return s.labs.PlaceOrder(ctx, lab.PlaceOrderRequest{
		VisitID:   v.ID,
		PatientID: v.PatientID,
		TestIDs:   testIDs,
		Notes:     notes,
		OrderedBy: actor,
	})
}

func (s *Service) UpdateClinical(ctx context.Context, id int64, u ClinicalUpdate) (*Visit, error) {
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ApplyClinical(v, u); err != nil {
		return nil, err
	}
	if err := s.visits.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) emit(ctx context.Context, t events.Type, data interface{}) {
	e, err := events.New(t, data)
	if err == nil {
		err = s.bus.Publish(ctx, e)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("event", string(t)).Msg("visit event not published")
	}
}
