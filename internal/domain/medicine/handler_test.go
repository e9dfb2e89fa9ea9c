package medicine

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func requestAs(actor auth.Actor, method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req.WithContext(auth.WithActor(req.Context(), actor))
}

func TestHandler_CreateMedicine(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"name":"Ibuprofen","type":"tablet","dosages":["200mg"],"price":"12000.50","stock":40}`
	rec := httptest.NewRecorder()
	c := e.NewContext(requestAs(admin, http.MethodPost, "/api/v1/medicines", strings.NewReader(body)), rec)

	if err := h.CreateMedicine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got Medicine
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Name != "Ibuprofen" || got.Price.StringFixed(2) != "12000.50" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CreateMedicine_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(requestAs(admin, http.MethodPost, "/api/v1/medicines", strings.NewReader(`{"name":"X","dosages":[]}`)), rec)

	err := h.CreateMedicine(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ListMedicines_BadPrice(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(requestAs(pharmacist, http.MethodGet, "/api/v1/medicines?price_from=abc", nil), httptest.NewRecorder())

	err := h.ListMedicines(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_DeleteMedicine(t *testing.T) {
	h, svc, e := newTestHandler()
	m, _ := svc.Create(requestAs(admin, http.MethodGet, "/", nil).Context(), admin, validInput())

	rec := httptest.NewRecorder()
	c := e.NewContext(requestAs(admin, http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.DeleteMedicine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(requestAs(doctor, http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.GetMedicine(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted medicine %d, got %v", m.ID, err)
	}
}

func TestHandler_SearchMedicines(t *testing.T) {
	h, svc, e := newTestHandler()
	svc.Create(requestAs(admin, http.MethodGet, "/", nil).Context(), admin, validInput())

	rec := httptest.NewRecorder()
	c := e.NewContext(requestAs(doctor, http.MethodGet, "/api/v1/medicines/search?q=para", nil), rec)
	if err := h.SearchMedicines(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []SearchResult
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || !got[0].IsAvailable {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
