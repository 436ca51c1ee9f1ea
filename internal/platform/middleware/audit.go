package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
)

// Entry is one mutating request as observed by the audit middleware.
type Entry struct {
	ActorID      string
	Method       string
	Path         string
	Status       int
	IPAddress    string
	UserAgent    string
	ErrorMessage string
}

// AuditRecorder persists a trail entry for a completed mutating request.
type AuditRecorder interface {
	Record(ctx context.Context, e Entry) error
}

// Audit records every mutating request against the trail, rejected ones
// included. Failures to record never fail the request itself.
func Audit(recorder AuditRecorder, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return err
			}

			e := Entry{
				ActorID:   auth.UserIDFromContext(req.Context()),
				Method:    req.Method,
				Path:      req.URL.Path,
				Status:    c.Response().Status,
				IPAddress: c.RealIP(),
				UserAgent: req.UserAgent(),
			}
			if err != nil {
				// the error handler has not run yet, derive what it will send
				e.Status = apperr.StatusOf(err)
				e.ErrorMessage = err.Error()
			}
			if rerr := recorder.Record(req.Context(), e); rerr != nil {
				logger.Error().Err(rerr).Str("path", e.Path).Msg("audit record failed")
			}
			return err
		}
	}
}
