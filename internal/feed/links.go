package feed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/platform/auth"
)

// ProbeResult is the outcome of an existence check.
type ProbeResult int

const (
	ProbeFound ProbeResult = iota
	ProbeNotFound
	ProbeTransportError
)

func (p ProbeResult) String() string {
	switch p {
	case ProbeFound:
		return "found"
	case ProbeNotFound:
		return "not_found"
	}
	return "transport_error"
}

// Prober checks that an appointment request still exists.
type Prober interface {
	ProbeAppointment(ctx context.Context, id int64) ProbeResult
}

// Target is a portal path. Fallback marks a role index page used in place
// of a deep link.
type Target struct {
	Path     string
	Fallback bool
}

var fallbacks = map[auth.Role]string{
	auth.RoleAdmin:   "/admin/notifications",
	auth.RoleDoctor:  "/doctor/dashboard",
	auth.RoleNurse:   "/nurse/dashboard",
	auth.RolePatient: "/patient/dashboard",
}

// FallbackFor returns the index page for role.
func FallbackFor(role auth.Role) Target {
	if p, ok := fallbacks[role]; ok {
		return Target{Path: p, Fallback: true}
	}
	return Target{Path: "/", Fallback: true}
}

type Resolver struct {
	prober Prober
	logger zerolog.Logger
}

func NewResolver(prober Prober, logger zerolog.Logger) *Resolver {
	return &Resolver{prober: prober, logger: logger}
}

// Resolve maps e to a link for role. The bool is false when the result is
// the role's fallback page. Only staff appointment requests do I/O.
func (r *Resolver) Resolve(ctx context.Context, e Entry, role auth.Role) (Target, bool) {
	if !role.Valid() {
		return FallbackFor(role), false
	}
	switch p := Decode(e).(type) {
	case AppointmentPayload:
		if e.Type == TypeAppointmentRequest {
			return r.appointmentRequest(ctx, p.AppointmentID, role)
		}
		return deep("/%s/appointments/%d", role, p.AppointmentID)
	case BillingPayload:
		if role == auth.RolePatient || role == auth.RoleAdmin {
			return deep("/%s/billing/%d", role, p.BillID)
		}
	case VisitPayload:
		if e.Type == TypeTransfer && !role.Staff() {
			break
		}
		return deep("/%s/visits/%d", role, p.VisitID)
	case LabOrderPayload:
		return deep("/%s/lab-orders/%d", role, p.LabOrderID)
	}
	return FallbackFor(role), false
}

func (r *Resolver) appointmentRequest(ctx context.Context, id int64, role auth.Role) (Target, bool) {
	if !role.Staff() {
		return Target{Path: "/patient/appointments"}, true
	}
	if r.prober == nil {
		return FallbackFor(role), false
	}
	res := r.prober.ProbeAppointment(ctx, id)
	if res != ProbeFound {
		r.logger.Debug().Int64("appointment_id", id).Str("probe", res.String()).Msg("appointment link degraded to fallback")
		return FallbackFor(role), false
	}
	return deep("/%s/appointments/%d", role, id)
}

func deep(format string, role auth.Role, id int64) (Target, bool) {
	return Target{Path: fmt.Sprintf(format, role, id)}, true
}
