package clinical

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
	// Treatment history: doctors write, patients read their own.
	api.GET("/treatments", h.ListTreatments)
	api.GET("/treatments/:id", h.GetTreatment)
	api.POST("/treatments", h.CreateTreatment, auth.RequireRole(auth.RoleDoctor))
	api.PUT("/treatments/:id", h.UpdateTreatment, auth.RequireRole(auth.RoleDoctor))
	api.DELETE("/treatments/:id", h.DeleteTreatment, auth.RequireRole(auth.RoleAdmin))

	// Feedback
	api.POST("/feedback", h.SubmitFeedback, auth.RequireRole(auth.RolePatient))
	api.GET("/feedback/:id", h.GetFeedback)
	api.GET("/doctors/:id/feedback", h.ListDoctorFeedback)
	api.GET("/patients/:id/feedback", h.ListPatientFeedback)
	api.DELETE("/feedback/:id", h.DeleteFeedback, auth.RequireRole(auth.RoleAdmin))
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func queryID(c echo.Context, name string) (int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func forbidden() error {
	return echo.NewHTTPError(http.StatusForbidden, "not allowed to act on this record")
}

// isDoctor reports whether the caller is a doctor or staff.
func isDoctor(c echo.Context) bool {
	return auth.HasAnyRole(auth.RolesFromContext(c.Request().Context()), auth.RoleDoctor)
}

// -- Treatment History Handlers --

// ListTreatments: patients always see their own history; doctors and staff
// filter by patient_id or doctor_id, doctors defaulting to their own.
func (h *Handler) ListTreatments(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	patientID, err := queryID(c, "patient_id")
	if err != nil {
		return err
	}
	doctorID, err := queryID(c, "doctor_id")
	if err != nil {
		return err
	}
	role, id, _ := auth.PrincipalFromContext(ctx)
	switch {
	case role == auth.RolePatient:
		patientID, doctorID = id, 0
	case !isDoctor(c):
		return forbidden()
	case role == auth.RoleDoctor && patientID == 0 && doctorID == 0:
		doctorID = id
	}

	var (
		items []*TreatmentHistory
		total int
	)
	switch {
	case patientID > 0:
		items, total, err = h.svc.ListTreatmentsByPatient(ctx, patientID, pg.Limit, pg.Offset)
	case doctorID > 0:
		items, total, err = h.svc.ListTreatmentsByDoctor(ctx, doctorID, pg.Limit, pg.Offset)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id is required")
	}
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetTreatment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTreatment(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if !isDoctor(c) && !auth.CanActFor(c, auth.RolePatient, t.PatientID) {
		return forbidden()
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) CreateTreatment(c echo.Context) error {
	var t TreatmentHistory
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if role, id, ok := auth.PrincipalFromContext(ctx); ok && role == auth.RoleDoctor && t.DoctorID == nil {
		t.DoctorID = &id
	}
	if t.DoctorID != nil && !auth.CanActFor(c, auth.RoleDoctor, *t.DoctorID) {
		return forbidden()
	}
	if err := h.svc.CreateTreatment(ctx, &t, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTreatment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	cur, err := h.svc.GetTreatment(ctx, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if cur.DoctorID != nil && !auth.CanActFor(c, auth.RoleDoctor, *cur.DoctorID) {
		return forbidden()
	}

	var t TreatmentHistory
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t.ID = id
	if err := h.svc.UpdateTreatment(ctx, &t, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTreatment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteTreatment(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Feedback Handlers --

func (h *Handler) SubmitFeedback(c echo.Context) error {
	var f Feedback
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if role, id, ok := auth.PrincipalFromContext(ctx); ok && role == auth.RolePatient && f.PatientID == 0 {
		f.PatientID = id
	}
	if !auth.CanActFor(c, auth.RolePatient, f.PatientID) {
		return forbidden()
	}
	if err := h.svc.SubmitFeedback(ctx, &f, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetFeedback(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.GetFeedback(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListDoctorFeedback(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListFeedbackByDoctor(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientFeedback(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActFor(c, auth.RolePatient, id) {
		return forbidden()
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListFeedbackByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteFeedback(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteFeedback(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
