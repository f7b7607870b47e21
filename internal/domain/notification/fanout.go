package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/platform/auth"
	"github.com/clinicportal/clinic/internal/platform/events"
)

// Fanout turns domain events into notifications for the roles that need to
// act on them.
type Fanout struct {
	svc    *Service
	sub    events.Subscriber
	logger zerolog.Logger
}

func NewFanout(svc *Service, sub events.Subscriber, logger zerolog.Logger) *Fanout {
	return &Fanout{svc: svc, sub: sub, logger: logger.With().Str("component", "fanout").Logger()}
}

// Start subscribes to the bus. Delivery stops when ctx is cancelled.
func (f *Fanout) Start(ctx context.Context) error {
	if err := f.sub.Subscribe(ctx, f.Handle); err != nil {
		return fmt.Errorf("start notification fanout: %w", err)
	}
	f.logger.Info().Msg("notification fanout started")
	return nil
}

// Handle writes the notifications for one event. Failures are logged; the
// event is not retried.
func (f *Fanout) Handle(ctx context.Context, e events.Event) {
	notes, err := Build(e)
	if err != nil {
		f.logger.Error().Err(err).Str("event_id", e.ID).Str("type", string(e.Type)).Msg("cannot build notifications")
		return
	}
	for _, n := range notes {
		if err := f.svc.Notify(ctx, n); err != nil {
			f.logger.Error().Err(err).Str("event_id", e.ID).Str("role", string(n.RecipientRole)).Msg("notification not stored")
		}
	}
}

// Build maps an event to its notifications. Unknown event types yield none.
func Build(e events.Event) ([]*Notification, error) {
	switch e.Type {
	case events.VisitStatusChanged:
		var d events.VisitStatusChangedData
		if err := e.Decode(&d); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Visit #%d is now %s", d.VisitID, d.To)
		data := mustJSON(map[string]int64{"visit_id": d.VisitID})
		return []*Notification{
			forUser(auth.RolePatient, d.PatientID, TypeVisitStatusChanged, "Visit updated", msg, d.VisitID, data),
			forRole(auth.RoleNurse, TypeVisitStatusChanged, "Visit updated", msg, d.VisitID, data),
		}, nil

	case events.TransferRequested:
		var d events.TransferRequestedData
		if err := e.Decode(&d); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Transfer requested for visit #%d: %s", d.VisitID, d.Reason)
		data := mustJSON(map[string]int64{"visit_id": d.VisitID})
		return []*Notification{
			forRole(auth.RoleAdmin, TypeTransfer, "Transfer requested", msg, d.VisitID, data),
			forRole(auth.RoleDoctor, TypeTransfer, "Transfer requested", msg, d.VisitID, data),
		}, nil

	case events.AppointmentRequested:
		var d events.AppointmentRequestedData
		if err := e.Decode(&d); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("New appointment request for %s", d.Preferred.Format("2006-01-02 15:04"))
		data := mustJSON(map[string]int64{"appointment_id": d.RequestID})
		var out []*Notification
		for _, r := range []auth.Role{auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse} {
			out = append(out, forRole(r, TypeAppointmentRequest, "Appointment request", msg, d.RequestID, data))
		}
		return out, nil

	case events.AppointmentApproved:
		var d events.AppointmentApprovedData
		if err := e.Decode(&d); err != nil {
			return nil, err
		}
		data := mustJSON(map[string]int64{"appointment_id": d.RequestID, "visit_id": d.VisitID})
		return []*Notification{
			forUser(auth.RolePatient, d.PatientID, TypeAppointmentApproved, "Appointment approved",
				"Your appointment request was approved", d.RequestID, data),
		}, nil

	case events.LabOrderCreated:
		var d events.LabOrderCreatedData
		if err := e.Decode(&d); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Lab order #%d placed for visit #%d", d.LabOrderID, d.VisitID)
		data := mustJSON(map[string]int64{"lab_order_id": d.LabOrderID, "visit_id": d.VisitID})
		return []*Notification{
			forRole(auth.RoleNurse, TypeLabOrderCreated, "Lab order", msg, d.LabOrderID, data),
			forUser(auth.RolePatient, d.PatientID, TypeLabOrderCreated, "Lab order", msg, d.LabOrderID, data),
		}, nil

	case events.BillIssued:
		var d events.BillIssuedData
		if err := e.Decode(&d); err != nil {
			return nil, err
		}
		data := mustJSON(map[string]int64{"bill_id": d.BillID})
		return []*Notification{
			forUser(auth.RolePatient, d.PatientID, TypeBilling, "New bill", "A new bill is available", d.BillID, data),
			forRole(auth.RoleAdmin, TypeBilling, "Bill issued", fmt.Sprintf("Bill #%d issued", d.BillID), d.BillID, data),
		}, nil
	}
	return nil, nil
}

func forRole(role auth.Role, t Type, title, msg string, related int64, data json.RawMessage) *Notification {
	rel := strconv.FormatInt(related, 10)
	return &Notification{
		RecipientRole:  role,
		Type:           t,
		Title:          title,
		Message:        msg,
		RelatedID:      &rel,
		StructuredData: data,
	}
}

func forUser(role auth.Role, userID string, t Type, title, msg string, related int64, data json.RawMessage) *Notification {
	n := forRole(role, t, title, msg, related, data)
	uid := userID
	n.RecipientID = &uid
	return n
}

func mustJSON(v map[string]int64) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
