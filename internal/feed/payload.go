// Package feed keeps a recipient's notification feed in step with the
// server: a local store with optimistic read marks, a polling reconciler,
// and a resolver that turns entries into portal links.
package feed

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Entry is one notification as served by the feed endpoint. RelatedID and
// StructuredData are untrusted and only read through Decode.
type Entry struct {
	ID             int64           `json:"id"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	RelatedID      json.RawMessage `json:"related_id,omitempty"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	Read           bool            `json:"read"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Snapshot is the authoritative feed returned by one fetch.
type Snapshot struct {
	Notifications []Entry   `json:"notifications"`
	UnreadCount   int       `json:"unread_count"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	TypeAppointmentRequest  = "appointment_request"
	TypeAppointmentApproved = "appointment_approved"
	TypeBilling             = "billing"
	TypeTransfer            = "transfer"
	TypeVisitStatusChanged  = "visit_status_changed"
	TypeLabOrderCreated     = "lab_order_created"
)

// Payload is the typed view of an entry's link data. Exactly one of the
// variants below is returned by Decode.
type Payload interface {
	payload()
}

type AppointmentPayload struct{ AppointmentID int64 }
type BillingPayload struct{ BillID int64 }
type VisitPayload struct{ VisitID int64 }
type LabOrderPayload struct{ LabOrderID int64 }

// Absent is returned for unknown types and for entries whose id is missing
// or malformed.
type Absent struct{}

func (AppointmentPayload) payload() {}
func (BillingPayload) payload()     {}
func (VisitPayload) payload()       {}
func (LabOrderPayload) payload()    {}
func (Absent) payload()             {}

// idKeys names the structured_data field holding each type's id.
var idKeys = map[string]string{
	TypeAppointmentRequest:  "appointment_id",
	TypeAppointmentApproved: "appointment_id",
	TypeBilling:             "bill_id",
	TypeTransfer:            "visit_id",
	TypeVisitStatusChanged:  "visit_id",
	TypeLabOrderCreated:     "lab_order_id",
}

// Decode extracts the entry's id, preferring structured_data over
// related_id.
func Decode(e Entry) Payload {
	key, ok := idKeys[e.Type]
	if !ok {
		return Absent{}
	}
	id, ok := structuredID(e.StructuredData, key)
	if !ok {
		id, ok = parseID(e.RelatedID)
	}
	if !ok {
		return Absent{}
	}
	switch e.Type {
	case TypeAppointmentRequest, TypeAppointmentApproved:
		return AppointmentPayload{AppointmentID: id}
	case TypeBilling:
		return BillingPayload{BillID: id}
	case TypeTransfer, TypeVisitStatusChanged:
		return VisitPayload{VisitID: id}
	case TypeLabOrderCreated:
		return LabOrderPayload{LabOrderID: id}
	}
	return Absent{}
}

func structuredID(raw json.RawMessage, key string) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return 0, false
	}
	return parseID(fields[key])
}

// parseID accepts a positive JSON integer or a string holding one. Empty
// strings and the "undefined" and "null" sentinels are absent.
func parseID(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(str)
	}
	switch strings.ToLower(s) {
	case "", "undefined", "null", "nan":
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
