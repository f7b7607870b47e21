// Package events carries domain events between the request path and
// asynchronous consumers such as the notification fan-out.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	VisitStatusChanged   Type = "visit_status_changed"
	TransferRequested    Type = "transfer_requested"
	AppointmentRequested Type = "appointment_requested"
	AppointmentApproved  Type = "appointment_approved"
	LabOrderCreated      Type = "lab_order_created"
	BillIssued           Type = "bill_issued"
)

type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// New builds an event with a fresh id and data encoded as JSON.
func New(t Type, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", t, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// Decode unmarshals the event data into v.
func (e Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s event %s: %w", e.Type, e.ID, err)
	}
	return nil
}

type Handler func(ctx context.Context, e Event)

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber delivers every event to h until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, h Handler) error
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// VisitStatusChangedData is the payload of VisitStatusChanged.
type VisitStatusChangedData struct {
	VisitID   int64  `json:"visit_id"`
	PatientID string `json:"patient_id"`
	StaffID   string `json:"staff_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by"`
}

type TransferRequestedData struct {
	VisitID   int64  `json:"visit_id"`
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason"`
	By        string `json:"by"`
}

type AppointmentRequestedData struct {
	RequestID int64     `json:"request_id"`
	PatientID string    `json:"patient_id"`
	Preferred time.Time `json:"preferred_at"`
	Reason    string    `json:"reason"`
}

type AppointmentApprovedData struct {
	RequestID int64  `json:"request_id"`
	VisitID   int64  `json:"visit_id"`
	PatientID string `json:"patient_id"`
}

type LabOrderCreatedData struct {
	LabOrderID int64  `json:"lab_order_id"`
	VisitID    int64  `json:"visit_id"`
	PatientID  string `json:"patient_id"`
	Total      int64  `json:"total"`
}

// BillIssuedData is published by the billing system, which lives outside
// this service.
type BillIssuedData struct {
	BillID    int64  `json:"bill_id"`
	PatientID string `json:"patient_id"`
	Amount    int64  `json:"amount"`
}
