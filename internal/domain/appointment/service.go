package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/domain/visit"
	"github.com/clinicportal/clinic/internal/platform/apperr"
	"github.com/clinicportal/clinic/internal/platform/db"
	"github.com/clinicportal/clinic/internal/platform/events"
)

var (
	ErrRequestNotFound = apperr.NotFound("appointment_request_not_found", "appointment request not found")
	ErrAlreadyDecided  = apperr.State("appointment_request_decided", "appointment request has already been decided")
	ErrMissingReason   = apperr.Validation("missing_reason", "reason is required")
	ErrMissingTime     = apperr.Validation("missing_preferred_at", "preferred_at is required")
)

// VisitBooker creates the visit an approved request turns into.
type VisitBooker interface {
	CreateInitial(ctx context.Context, patientID, staffID string, scheduledAt time.Time, purpose string, appointmentRequestID *int64) (*visit.Visit, error)
}

type Service struct {
	requests Repository
	visits   VisitBooker
	tx       db.Transactor
	bus      events.Publisher
	logger   zerolog.Logger
}

func NewService(requests Repository, visits VisitBooker, tx db.Transactor, bus events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		requests: requests,
		visits:   visits,
		tx:       tx,
		bus:      bus,
		logger:   logger.With().Str("component", "appointment").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, patientID string, preferredAt time.Time, reason string) (*Request, error) {
	reason = strings.TrimSpace(reason)
	if strings.TrimSpace(patientID) == "" {
		return nil, visit.ErrMissingPatient
	}
	if reason == "" {
		return nil, ErrMissingReason
	}
	if preferredAt.IsZero() {
		return nil, ErrMissingTime
	}

	req := &Request{
		PatientID:   patientID,
		PreferredAt: preferredAt,
		Reason:      reason,
		Status:      StatusPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.emit(ctx, events.AppointmentRequested, events.AppointmentRequestedData{
		RequestID: req.ID,
		PatientID: req.PatientID,
		Preferred: req.PreferredAt,
		Reason:    req.Reason,
	})
	return req, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Request, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Request, int, error) {
	return s.requests.List(ctx, f, limit, offset)
}

// Approve books the request as an initial visit with staffID attending. A
// zero scheduledAt keeps the patient's preferred time.
func (s *Service) Approve(ctx context.Context, id int64, staffID string, scheduledAt time.Time, note string) (*Request, *visit.Visit, error) {
	var (
		req *Request
		v   *visit.Visit
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: request %d is %s", ErrAlreadyDecided, id, req.Status)
		}
		if scheduledAt.IsZero() {
			scheduledAt = req.PreferredAt
		}
		reqID := req.ID
		v, err = s.visits.CreateInitial(ctx, req.PatientID, staffID, scheduledAt, req.Reason, &reqID)
		if err != nil {
			return err
		}
		req.Status = StatusApproved
		req.DecidedBy = staffID
		req.DecisionNote = note
		req.VisitID = &v.ID
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, nil, err
	}

	s.emit(ctx, events.AppointmentApproved, events.AppointmentApprovedData{
		RequestID: req.ID,
		VisitID:   v.ID,
		PatientID: req.PatientID,
	})
	return req, v, nil
}

func (s *Service) Reject(ctx context.Context, id int64, staffID, note string) (*Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("%w: request %d is %s", ErrAlreadyDecided, id, req.Status)
	}
	req.Status = StatusRejected
	req.DecidedBy = staffID
	req.DecisionNote = note
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("request_id", id).Str("by", staffID).Msg("appointment request rejected")
	return req, nil
}

func (s *Service) emit(ctx context.Context, t events.Type, data interface{}) {
	e, err := events.New(t, data)
	if err == nil {
		err = s.bus.Publish(ctx, e)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("event", string(t)).Msg("appointment event not published")
	}
}
