package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/platform/auth"
	"github.com/clinicportal/clinic/internal/platform/events"
)

func mustEvent(t *testing.T, typ events.Type, data interface{}) events.Event {
	t.Helper()
	e, err := events.New(typ, data)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return e
}

func recipients(notes []*Notification) map[auth.Role]*Notification {
	out := make(map[auth.Role]*Notification)
	for _, n := range notes {
		out[n.RecipientRole] = n
	}
	return out
}

func TestBuild_VisitStatusChanged(t *testing.T) {
	e := mustEvent(t, events.VisitStatusChanged, events.VisitStatusChangedData{
		VisitID: 7, PatientID: "p-1", From: "scheduled", To: "in_progress",
	})
	notes, err := Build(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := recipients(notes)
	p, ok := got[auth.RolePatient]
	if !ok || p.RecipientID == nil || *p.RecipientID != "p-1" {
		t.Fatalf("expected patient notification for p-1, got %+v", p)
	}
	n, ok := got[auth.RoleNurse]
	if !ok || n.RecipientID != nil {
		t.Fatalf("expected role-wide nurse notification, got %+v", n)
	}
	if *n.RelatedID != "7" {
		t.Errorf("expected related id 7, got %s", *n.RelatedID)
	}
	var data map[string]int64
	json.Unmarshal(n.StructuredData, &data)
	if data["visit_id"] != 7 {
		t.Errorf("expected visit_id 7 in payload, got %v", data)
	}
}

func TestBuild_Transfer(t *testing.T) {
	notes, _ := Build(mustEvent(t, events.TransferRequested, events.TransferRequestedData{VisitID: 3, Reason: "cardiology"}))
	got := recipients(notes)
	if len(notes) != 2 || got[auth.RoleAdmin] == nil || got[auth.RoleDoctor] == nil {
		t.Fatalf("expected admin and doctor notifications, got %d", len(notes))
	}
	if got[auth.RoleDoctor].Type != TypeTransfer {
		t.Errorf("expected transfer type, got %s", got[auth.RoleDoctor].Type)
	}
}

func TestBuild_AppointmentRequested(t *testing.T) {
	notes, _ := Build(mustEvent(t, events.AppointmentRequested, events.AppointmentRequestedData{
		RequestID: 12, PatientID: "p-1", Preferred: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}))
	if len(notes) != 3 {
		t.Fatalf("expected three staff notifications, got %d", len(notes))
	}
	for _, n := range notes {
		if !n.RecipientRole.Staff() && n.RecipientRole != auth.RoleAdmin {
			t.Errorf("unexpected recipient %s", n.RecipientRole)
		}
		var data map[string]int64
		json.Unmarshal(n.StructuredData, &data)
		if data["appointment_id"] != 12 {
			t.Errorf("expected appointment_id 12, got %v", data)
		}
	}
}

func TestBuild_BillIssued(t *testing.T) {
	notes, _ := Build(mustEvent(t, events.BillIssued, events.BillIssuedData{BillID: 44, PatientID: "p-9"}))
	got := recipients(notes)
	if got[auth.RolePatient] == nil || *got[auth.RolePatient].RecipientID != "p-9" {
		t.Fatal("expected patient billing notification")
	}
	if got[auth.RoleAdmin] == nil || got[auth.RoleAdmin].Type != TypeBilling {
		t.Fatal("expected admin billing notification")
	}
}

func TestBuild_UnknownEvent(t *testing.T) {
	notes, err := Build(events.Event{Type: "something_else"})
	if err != nil || len(notes) != 0 {
		t.Errorf("expected no notifications, got %v, %v", notes, err)
	}
}

func TestBuild_BadPayload(t *testing.T) {
	_, err := Build(events.Event{Type: events.LabOrderCreated, Data: json.RawMessage(`"nope"`)})
	if err == nil {
		t.Error("expected decode error")
	}
}

func TestFanout_StoresNotificationsFromBus(t *testing.T) {
	svc, repo := newTestService()
	bus := events.NewMemoryBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := NewFanout(svc, bus, zerolog.Nop()).Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	bus.Publish(ctx, mustEvent(t, events.LabOrderCreated, events.LabOrderCreatedData{LabOrderID: 5, VisitID: 2, PatientID: "p-1"}))
	bus.Flush()

	rows := repo.all()
	if len(rows) != 2 {
		t.Fatalf("expected 2 stored notifications, got %d", len(rows))
	}
	got := recipients(rows)
	if got[auth.RoleNurse] == nil || got[auth.RolePatient] == nil {
		t.Errorf("expected nurse and patient notifications, got %+v", rows)
	}
}
