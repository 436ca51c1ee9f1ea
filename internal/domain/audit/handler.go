package audit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/audit-logs", h.List)
}

func (h *Handler) List(c echo.Context) error {
	var f Filter
	if raw := c.QueryParam("userId"); raw != "" {
		uid, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("invalid userId")
		}
		f.UserID = &uid
	}
	f.Action = c.QueryParam("action")
	f.EntityType = c.QueryParam("entityType")

	pg := pagination.FromRequest(c)
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
