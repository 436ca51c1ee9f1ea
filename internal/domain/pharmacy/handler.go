package pharmacy

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
	drugWrite := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePharmacy))
	drugWrite.POST("/drugs", h.CreateDrug)
	drugWrite.PUT("/drugs/:id", h.UpdateDrug)
	drugWrite.DELETE("/drugs/:id", h.DeactivateDrug)
	drugWrite.POST("/drugs/:id/stock", h.AddStock)

	drugRead := api.Group("", auth.RequireRole(auth.Staff()...))
	drugRead.GET("/drugs", h.ListDrugs)
	drugRead.GET("/drugs/low-stock", h.LowStockDrugs)
	drugRead.GET("/drugs/expired", h.ExpiredDrugs)
	drugRead.GET("/drugs/:id", h.GetDrug)

	api.POST("/prescriptions", h.CreatePrescription, auth.RequireRole(auth.RoleDoctor))

	presRead := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse, auth.RolePharmacy, auth.RoleBilling))
	presRead.GET("/prescriptions", h.ListPrescriptions)
	presRead.GET("/prescriptions/pending", h.PendingPrescriptions)
	presRead.GET("/prescriptions/unpaid", h.UnpaidPrescriptions)
	presRead.GET("/prescriptions/patient/:patientId", h.ListPrescriptionsByPatient)
	presRead.GET("/prescriptions/:id", h.GetPrescription)

	api.POST("/prescriptions/:id/pay", h.MarkPaid, auth.RequireRole(auth.RoleAdmin, auth.RoleBilling, auth.RoleFrontDesk))
	api.POST("/prescriptions/:id/dispense", h.Dispense, auth.RequireRole(auth.RolePharmacy))
	api.DELETE("/prescriptions/:id", h.CancelPrescription, auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))

	api.POST("/restock-requests", h.CreateRestock, auth.RequireRole(auth.RolePharmacy))
	restock := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePharmacy))
	restock.GET("/restock-requests", h.ListRestocks)
	restock.GET("/restock-requests/:id", h.GetRestock)
	restock.POST("/restock-requests/:id/fulfill", h.FulfillRestock)
	api.POST("/restock-requests/:id/approve", h.ApproveRestock, auth.RequireRole(auth.RoleAdmin))
	api.POST("/restock-requests/:id/reject", h.RejectRestock, auth.RequireRole(auth.RoleAdmin))
}

func actorID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("invalid token subject")
	}
	return id, nil
}

// -- Drugs --

func (h *Handler) CreateDrug(c echo.Context) error {
	var in DrugInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	d, err := h.svc.CreateDrug(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDrug(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	d, err := h.svc.GetDrug(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDrug(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in DrugInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	d, err := h.svc.UpdateDrug(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeactivateDrug(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.DeactivateDrug(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDrugs(c echo.Context) error {
	pg := pagination.FromRequest(c)
	includeInactive := c.QueryParam("includeInactive") == "true"
	items, total, err := h.svc.ListDrugs(c.Request().Context(), includeInactive, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) LowStockDrugs(c echo.Context) error {
	items, err := h.svc.LowStockDrugs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ExpiredDrugs(c echo.Context) error {
	items, err := h.svc.ExpiredDrugs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

type stockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) AddStock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	d, err := h.svc.AddStock(c.Request().Context(), id, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// -- Prescriptions --

func (h *Handler) CreatePrescription(c echo.Context) error {
	var in PrescriptionInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	doctorID, err := actorID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.CreatePrescription(c.Request().Context(), in, doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) MarkPaid(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	p, err := h.svc.MarkPaid(c.Request().Context(), id, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type dispenseRequest struct {
	Partial bool `json:"partial"`
}

func (h *Handler) Dispense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req dispenseRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	dispensedBy, err := actorID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Dispense(c.Request().Context(), id, dispensedBy, req.Partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CancelPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	p, err := h.svc.CancelPrescription(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pg := pagination.FromRequest(c)
	items, total, err := h.svc.ListPrescriptions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListPrescriptionsByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return apperr.Validation("invalid patient id")
	}
	pg := pagination.FromRequest(c)
	items, total, err := h.svc.ListPrescriptionsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) PendingPrescriptions(c echo.Context) error {
	pg := pagination.FromRequest(c)
	items, total, err := h.svc.PendingPrescriptions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UnpaidPrescriptions(c echo.Context) error {
	pg := pagination.FromRequest(c)
	items, total, err := h.svc.UnpaidPrescriptions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

// -- Restock requests --

func (h *Handler) CreateRestock(c echo.Context) error {
	var in RestockInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	requestedBy, err := actorID(c)
	if err != nil {
		return err
	}
	rr, err := h.svc.CreateRestock(c.Request().Context(), in, requestedBy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rr)
}

func (h *Handler) GetRestock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	rr, err := h.svc.GetRestock(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rr)
}

func (h *Handler) ApproveRestock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	approvedBy, err := actorID(c)
	if err != nil {
		return err
	}
	rr, err := h.svc.ApproveRestock(c.Request().Context(), id, approvedBy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rr)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectRestock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	rr, err := h.svc.RejectRestock(c.Request().Context(), id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rr)
}

type fulfillRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) FulfillRestock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req fulfillRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	rr, err := h.svc.FulfillRestock(c.Request().Context(), id, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rr)
}

func (h *Handler) ListRestocks(c echo.Context) error {
	pg := pagination.FromRequest(c)
	items, total, err := h.svc.ListRestocks(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
