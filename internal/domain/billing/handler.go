package billing

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/auth"
	"github.com/medicore/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Patients read their own bills; staff manage all of them.
	api.GET("/bills/:id", h.GetBill)
	api.GET("/patients/:id/bills", h.ListPatientBills)
	api.GET("/patients/:id/balance", h.PatientBalance)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/bills", h.ListBills)
	admin.POST("/bills", h.CreateBill)
	admin.PUT("/bills/:id", h.UpdateBill)
	admin.DELETE("/bills/:id", h.DeleteBill)
	admin.POST("/bills/:id/payments", h.RecordPayment)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateBill(c echo.Context) error {
	var b Bill
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.svc.CreateBill(ctx, &b, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, view(&b))
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.GetBill(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if !auth.CanActFor(c, auth.RolePatient, b.PatientID) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to act on this record")
	}
	return c.JSON(http.StatusOK, view(b))
}

func (h *Handler) UpdateBill(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var b Bill
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b.ID = id
	ctx := c.Request().Context()
	if err := h.svc.UpdateBill(ctx, &b, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, view(&b))
}

func (h *Handler) DeleteBill(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteBill(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	b, err := h.svc.RecordPayment(ctx, id, req.Amount, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, view(b))
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)
	var status Status
	if v := c.QueryParam("status"); v != "" {
		s, err := ParseStatus(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		status = s
	}
	items, total, err := h.svc.ListBills(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views(items), total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientBills(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActFor(c, auth.RolePatient, patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to act on this record")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBillsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views(items), total, pg.Limit, pg.Offset))
}

func (h *Handler) PatientBalance(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActFor(c, auth.RolePatient, patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to act on this record")
	}
	sum, err := h.svc.Outstanding(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_id": patientID, "outstanding": sum})
}

func views(bills []*Bill) []billView {
	out := make([]billView, len(bills))
	for i, b := range bills {
		out[i] = view(b)
	}
	return out
}
