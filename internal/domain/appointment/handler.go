package appointment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicportal/clinic/internal/domain/visit"
	"github.com/clinicportal/clinic/internal/platform/apperr"
	"github.com/clinicportal/clinic/internal/platform/auth"
	"github.com/clinicportal/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointment-requests", h.Create, auth.RequireRole(auth.RolePatient))
	api.GET("/appointment-requests", h.List)
	// Also the existence probe used when resolving notification links;
	// ?status=pending answers 404 once the request has been decided.
	api.GET("/appointment-requests/:id", h.Get)

	staff := api.Group("", auth.RequireStaff())
	staff.POST("/appointment-requests/:id/approve", h.Approve)
	staff.POST("/appointment-requests/:id/reject", h.Reject)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type createRequest struct {
	PatientID   string    `json:"patient_id"`
	PreferredAt time.Time `json:"preferred_at"`
	Reason      string    `json:"reason"`
}

func (h *Handler) Create(c echo.Context) error {
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	// Patients always book for themselves; admins may book on behalf.
	if auth.RoleFromContext(ctx) == auth.RolePatient || body.PatientID == "" {
		body.PatientID = auth.UserIDFromContext(ctx)
	}
	req, err := h.svc.Create(ctx, body.PatientID, body.PreferredAt, body.Reason)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	f := ListFilter{Status: Status(c.QueryParam("status")), PatientID: c.QueryParam("patient_id")}
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		f.PatientID = auth.UserIDFromContext(ctx)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	req, err := h.svc.Get(ctx, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient && req.PatientID != auth.UserIDFromContext(ctx) {
		return apperr.ToHTTP(ErrRequestNotFound)
	}
	if want := c.QueryParam("status"); want != "" && req.Status != Status(want) {
		return apperr.ToHTTP(ErrRequestNotFound)
	}
	return c.JSON(http.StatusOK, req)
}

type decisionRequest struct {
	StaffID     string    `json:"staff_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Note        string    `json:"note"`
}

type approveResponse struct {
	Request *Request     `json:"request"`
	Visit   *visit.Visit `json:"visit"`
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body decisionRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if body.StaffID == "" {
		body.StaffID = auth.UserIDFromContext(ctx)
	}
	req, v, err := h.svc.Approve(ctx, id, body.StaffID, body.ScheduledAt, body.Note)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, approveResponse{Request: req, Visit: v})
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body decisionRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	req, err := h.svc.Reject(ctx, id, auth.UserIDFromContext(ctx), body.Note)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, req)
}
