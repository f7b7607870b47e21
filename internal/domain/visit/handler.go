package visit

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

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
	// Patients may read their own visits.
	api.GET("/visits", h.List)
	api.GET("/visits/:id", h.Get)
	api.GET("/visits/:id/status-history", h.StatusHistory)

	staff := api.Group("", auth.RequireStaff())
	staff.POST("/visits", h.Create)
	staff.POST("/visits/:id/transition", h.Transition)
	staff.POST("/visits/:id/transfer", h.RequestTransfer)
	staff.POST("/visits/:id/follow-ups", h.CreateFollowUp)
	staff.POST("/visits/:id/lab-orders", h.AttachLabOrder)
	staff.PATCH("/visits/:id/clinical", h.UpdateClinical)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// visible hides other patients' visits from a patient caller.
func visible(c echo.Context, v *Visit) bool {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return true
	}
	return v.PatientID == auth.UserIDFromContext(ctx)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := c.QueryParam("patient_id")
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		patientID = auth.UserIDFromContext(ctx)
	}
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Visit{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks("/api/v1/visits?patient_id="+url.QueryEscape(patientID)))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if !visible(c, v) {
		return apperr.ToHTTP(ErrVisitNotFound)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) StatusHistory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if !visible(c, v) {
		return apperr.ToHTTP(ErrVisitNotFound)
	}
	items, err := h.svc.StatusHistory(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*StatusHistory{}
	}
	return c.JSON(http.StatusOK, items)
}

type createRequest struct {
	PatientID   string    `json:"patient_id"`
	StaffID     string    `json:"staff_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Purpose     string    `json:"purpose"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if req.StaffID == "" {
		req.StaffID = auth.UserIDFromContext(ctx)
	}
	v, err := h.svc.CreateInitial(ctx, req.PatientID, req.StaffID, req.ScheduledAt, req.Purpose, nil)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

type transitionRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) Transition(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	v, err := h.svc.Transition(ctx, id, req.Status, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}

type transferRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RequestTransfer(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	v, err := h.svc.RequestTransfer(ctx, id, req.Reason, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}

type followUpRequest struct {
	Stage       Stage     `json:"stage"`
	StaffID     string    `json:"staff_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Purpose     string    `json:"purpose"`
}

func (h *Handler) CreateFollowUp(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req followUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.CreateFollowUp(c.Request().Context(), id, req.Stage, req.StaffID, req.ScheduledAt, req.Purpose)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

type labOrderRequest struct {
	TestIDs []int64 `json:"test_ids"`
	Notes   string  `json:"notes"`
}

func (h *Handler) AttachLabOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req labOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	o, err := h.svc.AttachLabOrder(ctx, id, req.TestIDs, req.Notes, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) UpdateClinical(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req ClinicalUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.UpdateClinical(c.Request().Context(), id, req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}
