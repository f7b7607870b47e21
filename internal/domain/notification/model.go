package notification

import (
	"encoding/json"
	"time"

	"github.com/clinicportal/clinic/internal/platform/auth"
)

type Type string

const (
	TypeAppointmentRequest  Type = "appointment_request"
	TypeAppointmentApproved Type = "appointment_approved"
	TypeBilling             Type = "billing"
	TypeTransfer            Type = "transfer"
	TypeVisitStatusChanged  Type = "visit_status_changed"
	TypeLabOrderCreated     Type = "lab_order_created"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAppointmentRequest, TypeAppointmentApproved, TypeBilling,
		TypeTransfer, TypeVisitStatusChanged, TypeLabOrderCreated:
		return true
	}
	return false
}

// Notification is addressed to a role, and to one user of that role when
// RecipientID is set. Rows without a recipient are shared by everyone
// holding the role.
type Notification struct {
	ID             int64           `json:"id"`
	RecipientRole  auth.Role       `json:"recipient_role"`
	RecipientID    *string         `json:"recipient_id,omitempty"`
	Type           Type            `json:"type"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	RelatedID      *string         `json:"related_id,omitempty"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	Read           bool            `json:"read"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Audience identifies whose feed is being read.
type Audience struct {
	Role   auth.Role
	UserID string
}

// Sees reports whether n belongs in a's feed.
func (a Audience) Sees(n *Notification) bool {
	if n.RecipientRole != a.Role {
		return false
	}
	return n.RecipientID == nil || *n.RecipientID == a.UserID
}

// Feed is the response body of the feed endpoint.
type Feed struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	Timestamp     time.Time       `json:"timestamp"`
}
