package lab

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicportal/clinic/internal/platform/apperr"
	"github.com/clinicportal/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/lab-tests", h.ListTests)

	staff := api.Group("", auth.RequireStaff())
	staff.GET("/lab-orders/:id", h.GetOrder)
	staff.GET("/visits/:id/lab-orders", h.ListByVisit)
	staff.PATCH("/lab-orders/:id/status", h.UpdateStatus)
}

func (h *Handler) ListTests(c echo.Context) error {
	tests, err := h.svc.ListTests(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if tests == nil {
		tests = []*Test{}
	}
	return c.JSON(http.StatusOK, tests)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListByVisit(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	orders, err := h.svc.ListOrdersByVisit(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if orders == nil {
		orders = []*Order{}
	}
	return c.JSON(http.StatusOK, orders)
}

type statusRequest struct {
	Status OrderStatus `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}
