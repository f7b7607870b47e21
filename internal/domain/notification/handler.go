package notification

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicportal/clinic/internal/platform/apperr"
	"github.com/clinicportal/clinic/internal/platform/auth"
)

type Handler struct {
	svc   *Service
	limit int
}

// NewHandler serves feeds of at most limit entries.
func NewHandler(svc *Service, limit int) *Handler {
	return &Handler{svc: svc, limit: limit}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications/feed", h.Feed)
	api.POST("/notifications/read-all", h.MarkAllRead)
	api.POST("/notifications/:id/read", h.MarkRead)
}

func audience(c echo.Context) (Audience, error) {
	ctx := c.Request().Context()
	a := Audience{Role: auth.RoleFromContext(ctx), UserID: auth.UserIDFromContext(ctx)}
	if !a.Role.Valid() {
		return a, echo.NewHTTPError(http.StatusForbidden, ErrUnknownRole.Error())
	}
	return a, nil
}

func (h *Handler) Feed(c echo.Context) error {
	a, err := audience(c)
	if err != nil {
		return err
	}
	limit := h.limit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v < limit {
		limit = v
	}
	feed, err := h.svc.Feed(c.Request().Context(), a, limit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, feed)
}

func (h *Handler) MarkRead(c echo.Context) error {
	a, err := audience(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.MarkRead(c.Request().Context(), a, id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	a, err := audience(c)
	if err != nil {
		return err
	}
	n, err := h.svc.MarkAllRead(c.Request().Context(), a)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}
