package lab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func TestHandler_ListTests(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListTests(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tests []Test
	if err := json.Unmarshal(rec.Body.Bytes(), &tests); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tests) != 2 {
		t.Errorf("expected 2 tests, got %d", len(tests))
	}
}

func TestHandler_GetOrder(t *testing.T) {
	h, e := newTestHandler()
	o, _ := h.svc.PlaceOrder(context.Background(), PlaceOrderRequest{VisitID: 5, TestIDs: []int64{1, 2}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(o.ID, 10))

	if err := h.GetOrder(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":800`) {
		t.Errorf("expected derived total in body, got %s", rec.Body.String())
	}
}

func TestHandler_GetOrder_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("77")

	err := h.GetOrder(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetOrder_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := h.GetOrder(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_UpdateStatus_Conflict(t *testing.T) {
	h, e := newTestHandler()
	o, _ := h.svc.PlaceOrder(context.Background(), PlaceOrderRequest{VisitID: 5, TestIDs: []int64{1}})

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"completed"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(o.ID, 10))

	err := h.UpdateStatus(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}
