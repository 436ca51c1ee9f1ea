package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestIsKind(t *testing.T) {
	err := Conflict("slot already booked")
	if !IsKind(err, KindConflict) {
		t.Error("expected KindConflict")
	}
	if IsKind(err, KindNotFound) {
		t.Error("did not expect KindNotFound")
	}
	wrapped := fmt.Errorf("creating appointment: %w", err)
	if !IsKind(wrapped, KindConflict) {
		t.Error("expected KindConflict through wrapping")
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := Internal(inner)
	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
}

func doRequest(t *testing.T, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	e.HTTPErrorHandler(err, c)

	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestHTTPErrorHandler_Validation(t *testing.T) {
	rec, body := doRequest(t, Validation("quantity must be at least 1"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if body.Success {
		t.Error("expected success=false")
	}
	if body.Message != "quantity must be at least 1" {
		t.Errorf("unexpected message: %s", body.Message)
	}
}

func TestHTTPErrorHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{NotFound("patient not found"), http.StatusNotFound},
		{Conflict("duplicate email"), http.StatusConflict},
		{Unauthorized("invalid credentials"), http.StatusUnauthorized},
		{Forbidden("role not permitted"), http.StatusForbidden},
	}
	for _, c := range cases {
		rec, _ := doRequest(t, c.err)
		if rec.Code != c.code {
			t.Errorf("%v: expected %d, got %d", c.err, c.code, rec.Code)
		}
	}
}

func TestHTTPErrorHandler_InternalHidesDetail(t *testing.T) {
	rec, body := doRequest(t, Internal(errors.New("pq: connection reset")))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body.Message != "internal server error" {
		t.Errorf("internal detail leaked: %s", body.Message)
	}
}

func TestHTTPErrorHandler_EchoHTTPError(t *testing.T) {
	rec, body := doRequest(t, echo.NewHTTPError(http.StatusBadRequest, "invalid id"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if body.Message != "invalid id" {
		t.Errorf("unexpected message: %s", body.Message)
	}
}
