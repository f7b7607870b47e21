package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicportal/clinic/internal/platform/apperr"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/notifications/feed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"notifications":[{"id":1,"type":"billing","related_id":"5","read":false,"created_at":"2026-05-01T12:00:00Z"}],"unread_count":1,"timestamp":"2026-05-01T12:00:01Z"}`))
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL+"/", "tok").Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Notifications) != 1 || snap.UnreadCount != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if p, ok := Decode(snap.Notifications[0]).(BillingPayload); !ok || p.BillID != 5 {
		t.Errorf("expected bill 5, got %#v", Decode(snap.Notifications[0]))
	}
}

func TestClient_FetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Fetch(context.Background())
	if !errors.Is(err, ErrTransport) || apperr.KindOf(err) != apperr.KindTransport {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestClient_Confirm(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("X-Dev-Role") != "nurse" {
			t.Errorf("expected dev role header")
		}
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.DevRole = "nurse"
	if err := c.ConfirmRead(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.ConfirmAllRead(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/api/v1/notifications/7/read" || paths[1] != "/api/v1/notifications/read-all" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestClient_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/appointment-requests/1":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/appointment-requests/2":
			w.WriteHeader(http.StatusNotFound)
		case "/api/v1/appointment-requests/4":
			if r.URL.Query().Get("status") == "pending" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":4,"status":"approved"}`))
		case "/api/v1/appointment-requests/5":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":5,"status":"rejected"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))

	c := NewClient(srv.URL, "")
	ctx := context.Background()
	if got := c.ProbeAppointment(ctx, 1); got != ProbeFound {
		t.Errorf("expected found, got %s", got)
	}
	if got := c.ProbeAppointment(ctx, 2); got != ProbeNotFound {
		t.Errorf("expected not_found, got %s", got)
	}
	if got := c.ProbeAppointment(ctx, 4); got != ProbeNotFound {
		t.Errorf("expected approved request to be not_found, got %s", got)
	}
	if got := c.ProbeAppointment(ctx, 5); got != ProbeNotFound {
		t.Errorf("expected decided status in body to be not_found, got %s", got)
	}
	if got := c.ProbeAppointment(ctx, 3); got != ProbeTransportError {
		t.Errorf("expected transport_error, got %s", got)
	}

	srv.Close()
	if got := c.ProbeAppointment(ctx, 1); got != ProbeTransportError {
		t.Errorf("expected transport_error for closed server, got %s", got)
	}
}
