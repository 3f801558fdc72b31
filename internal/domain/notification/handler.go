package notification

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
	api.GET("/patients/:id/notifications", h.ListForPatient)
	api.POST("/notifications/:id/read", h.MarkRead)
	api.DELETE("/notifications/:id", h.Delete)
	api.POST("/notifications", h.Create, auth.RequireRole(auth.RoleAdmin))
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type createRequest struct {
	PatientID int64  `json:"patient_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	n, err := h.svc.Notify(ctx, req.PatientID, req.Title, req.Message, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActFor(c, auth.RolePatient, patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to read these notifications")
	}
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, unread, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// owned loads a notification and checks the caller may touch it.
func (h *Handler) owned(c echo.Context) (int64, error) {
	id, err := parseID(c)
	if err != nil {
		return 0, err
	}
	n, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return 0, apperr.ToHTTP(err)
	}
	if !auth.CanActFor(c, auth.RolePatient, n.PatientID) {
		return 0, echo.NewHTTPError(http.StatusForbidden, "not allowed to act on this notification")
	}
	return id, nil
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := h.owned(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.MarkRead(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := h.owned(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
