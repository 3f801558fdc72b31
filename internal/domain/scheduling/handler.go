package scheduling

import (
	"net/http"
	"strconv"
	"time"

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
	api.GET("/slots", h.ListSlots)
	api.GET("/slots/:id", h.GetSlot)
	api.GET("/doctors/:id/available-slots", h.AvailableSlots)

	slotWrite := api.Group("", auth.RequireRole(auth.RoleDoctor))
	slotWrite.POST("/slots", h.CreateSlot)
	slotWrite.POST("/slots/generate", h.GenerateSlots)
	slotWrite.PUT("/slots/:id", h.UpdateSlot)
	slotWrite.DELETE("/slots/:id", h.DeleteSlot)

	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment, auth.RequireRole(auth.RolePatient))
	api.GET("/appointments/:id", h.GetAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)
	api.PUT("/appointments/:id/status", h.UpdateStatus, auth.RequireRole(auth.RoleDoctor))
	api.POST("/appointments/:id/pay", h.MarkPaid, auth.RequireRole(auth.RoleAdmin))
	api.DELETE("/appointments/:id", h.DeleteAppointment, auth.RequireRole(auth.RoleAdmin))
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

// -- Slot Handlers --

func (h *Handler) ListSlots(c echo.Context) error {
	doctorID, err := queryID(c, "doctor_id")
	if err != nil {
		return err
	}
	if doctorID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	slots, err := h.svc.ListSlotsByDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) GetSlot(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sl, err := h.svc.GetSlot(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sl)
}

// AvailableSlots defaults patient_id to the calling patient. Patients may
// only ask for themselves.
func (h *Handler) AvailableSlots(c echo.Context) error {
	doctorID, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	patientID, err := queryID(c, "patient_id")
	if err != nil {
		return err
	}
	role, callerID, _ := auth.PrincipalFromContext(ctx)
	if patientID == 0 && role == auth.RolePatient {
		patientID = callerID
	}
	if patientID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	// Doctors and admins may look up any patient.
	if role != auth.RoleDoctor && !auth.CanActFor(c, auth.RolePatient, patientID) {
		return forbidden()
	}

	slots, err := h.svc.ResolveAvailableSlots(ctx, doctorID, patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) CreateSlot(c echo.Context) error {
	var sl FreeSlot
	if err := c.Bind(&sl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !auth.CanActFor(c, auth.RoleDoctor, sl.DoctorID) {
		return forbidden()
	}
	ctx := c.Request().Context()
	if err := h.svc.CreateSlot(ctx, &sl, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sl)
}

type generateRequest struct {
	DoctorID     int64     `json:"doctor_id"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	EveryMinutes int       `json:"every_minutes"`
}

func (h *Handler) GenerateSlots(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !auth.CanActFor(c, auth.RoleDoctor, req.DoctorID) {
		return forbidden()
	}
	ctx := c.Request().Context()
	slots, err := h.svc.GenerateSlots(ctx, req.DoctorID, req.From, req.To,
		time.Duration(req.EveryMinutes)*time.Minute, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, slots)
}

type slotWindow struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// ownSlot loads the slot and checks the caller is its doctor or staff.
func (h *Handler) ownSlot(c echo.Context) (*FreeSlot, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	sl, err := h.svc.GetSlot(c.Request().Context(), id)
	if err != nil {
		return nil, apperr.ToHTTP(err)
	}
	if !auth.CanActFor(c, auth.RoleDoctor, sl.DoctorID) {
		return nil, forbidden()
	}
	return sl, nil
}

func (h *Handler) UpdateSlot(c echo.Context) error {
	sl, err := h.ownSlot(c)
	if err != nil {
		return err
	}
	var w slotWindow
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	updated, err := h.svc.UpdateSlot(ctx, sl.ID, w.StartTime, w.EndTime, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	sl, err := h.ownSlot(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteSlot(ctx, sl.ID, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if role, id, ok := auth.PrincipalFromContext(ctx); ok && role == auth.RolePatient {
		if req.PatientID == 0 {
			req.PatientID = id
		}
	}
	if !auth.CanActFor(c, auth.RolePatient, req.PatientID) {
		return forbidden()
	}

	a, err := h.svc.CreateAppointment(ctx, req, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

// ListAppointments scopes the listing to the caller: patients see their own,
// doctors their own, staff everything (optionally filtered).
func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	patientID, err := queryID(c, "patient_id")
	if err != nil {
		return err
	}
	doctorID, err := queryID(c, "doctor_id")
	if err != nil {
		return err
	}
	if role, id, ok := auth.PrincipalFromContext(ctx); ok {
		switch role {
		case auth.RolePatient:
			patientID, doctorID = id, 0
		case auth.RoleDoctor:
			patientID, doctorID = 0, id
		}
	}

	var (
		items []*Appointment
		total int
	)
	switch {
	case patientID > 0:
		items, total, err = h.svc.ListAppointmentsByPatient(ctx, patientID, pg.Limit, pg.Offset)
	case doctorID > 0:
		items, total, err = h.svc.ListAppointmentsByDoctor(ctx, doctorID, pg.Limit, pg.Offset)
	default:
		if !auth.HasAnyRole(auth.RolesFromContext(ctx), auth.RoleAdmin) {
			return forbidden()
		}
		items, total, err = h.svc.ListAppointments(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// participant loads the appointment and checks the caller is its patient,
// its doctor or staff.
func (h *Handler) participant(c echo.Context) (*Appointment, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return nil, apperr.ToHTTP(err)
	}
	if !auth.CanActFor(c, auth.RolePatient, a.PatientID) && !auth.CanActFor(c, auth.RoleDoctor, a.DoctorID) {
		return nil, forbidden()
	}
	return a, nil
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.participant(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type notesRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	a, err := h.participant(c)
	if err != nil {
		return err
	}
	var req notesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	updated, err := h.svc.UpdateAppointmentNotes(ctx, a.ID, req.Reason, req.Notes, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	a, err := h.participant(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	ok, err := h.svc.CancelAppointment(ctx, a.ID, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": a.ID, "cancelled": true})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	to, err := ParseStatus(req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	cur, err := h.svc.GetAppointment(ctx, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if !auth.CanActFor(c, auth.RoleDoctor, cur.DoctorID) {
		return forbidden()
	}

	a, err := h.svc.Transition(ctx, id, to, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkPaid(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	ok, err := h.svc.MarkPaid(ctx, id, auth.Actor(ctx))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id, "paid": true})
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteAppointment(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
