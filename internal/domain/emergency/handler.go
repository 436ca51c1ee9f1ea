package emergency

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
	g := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse, auth.RoleFrontDesk))
	g.POST("/emergency-cases", h.Register)
	g.GET("/emergency-cases", h.List)
	g.GET("/emergency-cases/active", h.ActiveCases)
	g.GET("/emergency-cases/:id", h.Get)
	g.POST("/emergency-cases/:id/link-patient", h.LinkPatient)

	clinical := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse))
	clinical.POST("/emergency-cases/:id/admit", h.Admit)
	clinical.POST("/emergency-cases/:id/discharge", h.Discharge)
	clinical.POST("/emergency-cases/:id/refer", h.Refer)

	api.POST("/emergency-cases/:id/deceased", h.MarkDeceased, auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	handledBy, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return apperr.Unauthorized("invalid token subject")
	}
	ec, err := h.svc.Register(c.Request().Context(), in, handledBy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	ec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromRequest(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ActiveCases(c echo.Context) error {
	items, err := h.svc.ActiveCases(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

type linkPatientRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) LinkPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req linkPatientRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	ec, err := h.svc.LinkPatient(c.Request().Context(), id, req.PatientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) Admit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in AdmitInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	ec, err := h.svc.Admit(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	ec, err := h.svc.Discharge(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ec)
}

type referRequest struct {
	Facility string `json:"facility"`
	Reason   string `json:"reason"`
}

func (h *Handler) Refer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req referRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	ec, err := h.svc.Refer(c.Request().Context(), id, req.Facility, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ec)
}

func (h *Handler) MarkDeceased(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	ec, err := h.svc.MarkDeceased(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ec)
}
