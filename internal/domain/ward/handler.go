package ward

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
	admin.POST("/wards", h.CreateWard)
	admin.PUT("/wards/:id", h.UpdateWard)
	admin.DELETE("/wards/:id", h.DeactivateWard)
	admin.POST("/wards/:id/beds", h.AddBed)
	admin.DELETE("/beds/:id", h.DeleteBed)

	read := api.Group("", auth.RequireRole(auth.Staff()...))
	read.GET("/wards", h.ListWards)
	read.GET("/wards/available-beds", h.AvailableBeds)
	read.GET("/wards/:id", h.GetWard)
	read.GET("/wards/:id/beds", h.ListBeds)
	read.GET("/beds/:id", h.GetBed)

	api.PATCH("/beds/:id/status", h.SetBedStatus, auth.RequireRole(auth.RoleAdmin, auth.RoleNurse))
}

func (h *Handler) CreateWard(c echo.Context) error {
	var in WardInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	w, err := h.svc.CreateWard(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	w, err := h.svc.GetWard(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWards(c echo.Context) error {
	pg := pagination.FromRequest(c)
	includeInactive := c.QueryParam("includeInactive") == "true"
	items, total, err := h.svc.ListWards(c.Request().Context(), includeInactive, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in WardInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	w, err := h.svc.UpdateWard(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeactivateWard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.DeactivateWard(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddBed(c echo.Context) error {
	wardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in BedInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	b, err := h.svc.AddBed(c.Request().Context(), wardID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	b, err := h.svc.GetBed(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBeds(c echo.Context) error {
	wardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	beds, err := h.svc.ListBeds(c.Request().Context(), wardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) AvailableBeds(c echo.Context) error {
	beds, err := h.svc.AvailableBeds(c.Request().Context(), c.QueryParam("wardType"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, beds)
}

type bedStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetBedStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req bedStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	b, err := h.svc.SetBedStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.DeleteBed(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
