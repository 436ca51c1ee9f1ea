package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

func run(mw echo.MiddlewareFunc, method string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, "/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := mw(handler)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequestID_Generated(t *testing.T) {
	rec := run(RequestID(), http.MethodGet, ok)
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id header")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := RequestID()(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected client id to be echoed, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := run(SecurityHeaders(), http.MethodGet, ok)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected frame options header")
	}
}

func TestRecovery(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := run(Recovery(logger), http.MethodGet, func(c echo.Context) error {
		panic("boom")
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	mw := rl.Middleware()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, run(mw, http.MethodGet, ok).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %v", codes)
	}
}

type mockRecorder struct {
	entries []Entry
}

func (m *mockRecorder) Record(_ context.Context, e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestAudit_RecordsMutations(t *testing.T) {
	recorder := &mockRecorder{}
	mw := Audit(recorder, zerolog.Nop())

	run(mw, http.MethodPost, func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})
	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 recorded entry, got %d", len(recorder.entries))
	}
	e := recorder.entries[0]
	if e.Method != http.MethodPost || e.Path != "/patients" || e.Status != http.StatusCreated {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.ErrorMessage != "" {
		t.Errorf("expected no error message on success, got %q", e.ErrorMessage)
	}
}

func TestAudit_RecordsRejections(t *testing.T) {
	recorder := &mockRecorder{}
	mw := Audit(recorder, zerolog.Nop())

	run(mw, http.MethodPost, func(c echo.Context) error {
		return apperr.Conflict("bed is already occupied")
	})
	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 recorded entry, got %d", len(recorder.entries))
	}
	e := recorder.entries[0]
	if e.Status != http.StatusConflict {
		t.Errorf("expected status 409, got %d", e.Status)
	}
	if e.ErrorMessage == "" {
		t.Error("expected the rejection reason to be recorded")
	}
}

func TestAudit_SkipsReads(t *testing.T) {
	recorder := &mockRecorder{}
	mw := Audit(recorder, zerolog.Nop())

	run(mw, http.MethodGet, ok)
	if len(recorder.entries) != 0 {
		t.Errorf("expected no recorded entries, got %d", len(recorder.entries))
	}
}
