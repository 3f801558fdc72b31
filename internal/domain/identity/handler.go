package identity

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
	// Public self-registration; the auth skipper lets this through.
	api.POST("/patients/register", h.RegisterPatient)

	// Patients: doctors and staff read, owners read and edit their own record.
	api.GET("/patients", h.ListPatients, auth.RequireRole(auth.RoleDoctor))
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.PUT("/patients/:id/password", h.ChangePatientPassword)

	// Doctors are listed to every authenticated caller.
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.PUT("/doctors/:id", h.UpdateDoctor)
	api.PUT("/doctors/:id/password", h.ChangeDoctorPassword)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/patients", h.CreatePatient)
	admin.DELETE("/patients/:id", h.DeletePatient)
	admin.POST("/doctors", h.CreateDoctor)
	admin.DELETE("/doctors/:id", h.DeleteDoctor)
	admin.GET("/staff", h.ListStaff)
	admin.POST("/staff", h.CreateStaff)
	admin.GET("/staff/:id", h.GetStaff)
	admin.PUT("/staff/:id", h.UpdateStaff)
	admin.DELETE("/staff/:id", h.DeleteStaff)
	admin.PUT("/staff/:id/password", h.ChangeStaffPassword)
}

type patientRequest struct {
	Patient
	Password string `json:"password"`
}

type doctorRequest struct {
	Doctor
	Password string `json:"password"`
}

type staffRequest struct {
	Staff
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func forbidden() error {
	return echo.NewHTTPError(http.StatusForbidden, "not allowed to act on this record")
}

// -- Patient Handlers --

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := req.Patient
	if err := h.svc.RegisterPatient(c.Request().Context(), &p, req.Password, "self-registration"); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	p := req.Patient
	if err := h.svc.RegisterPatient(ctx, &p, req.Password, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if !auth.CanActFor(c, auth.RolePatient, id) && !auth.HasAnyRole(auth.RolesFromContext(ctx), auth.RoleDoctor) {
		return forbidden()
	}
	p, err := h.svc.GetPatient(ctx, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	var (
		patients []*Patient
		total    int
		err      error
	)
	if q := c.QueryParam("q"); q != "" {
		patients, total, err = h.svc.SearchPatients(ctx, q, pg.Limit, pg.Offset)
	} else {
		patients, total, err = h.svc.ListPatients(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActFor(c, auth.RolePatient, id) {
		return forbidden()
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	ctx := c.Request().Context()
	if err := h.svc.UpdatePatient(ctx, &p, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeletePatient(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ChangePatientPassword(c echo.Context) error {
	return h.changePassword(c, auth.RolePatient)
}

// -- Doctor Handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var req doctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	d := req.Doctor
	if err := h.svc.CreateDoctor(ctx, &d, req.Password, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	ctx := c.Request().Context()

	if dept := c.QueryParam("department_id"); dept != "" {
		deptID, err := strconv.ParseInt(dept, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		doctors, err := h.svc.ListDoctorsByDepartment(ctx, deptID)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(doctors, len(doctors), len(doctors), 0))
	}

	pg := pagination.FromContext(c)
	var (
		doctors []*Doctor
		total   int
		err     error
	)
	if q := c.QueryParam("q"); q != "" {
		doctors, total, err = h.svc.SearchDoctors(ctx, q, pg.Limit, pg.Offset)
	} else {
		doctors, total, err = h.svc.ListDoctors(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActFor(c, auth.RoleDoctor, id) {
		return forbidden()
	}
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d.ID = id
	ctx := c.Request().Context()
	if err := h.svc.UpdateDoctor(ctx, &d, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteDoctor(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ChangeDoctorPassword(c echo.Context) error {
	return h.changePassword(c, auth.RoleDoctor)
}

// -- Staff Handlers --

func (h *Handler) CreateStaff(c echo.Context) error {
	var req staffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	st := req.Staff
	if err := h.svc.CreateStaff(ctx, &st, req.Password, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	st, err := h.svc.GetStaff(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ListStaff(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	var (
		staff []*Staff
		total int
		err   error
	)
	if q := c.QueryParam("q"); q != "" {
		staff, total, err = h.svc.SearchStaff(ctx, q, pg.Limit, pg.Offset)
	} else {
		staff, total, err = h.svc.ListStaff(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(staff, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var st Staff
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	st.ID = id
	ctx := c.Request().Context()
	if err := h.svc.UpdateStaff(ctx, &st, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteStaff(ctx, id, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ChangeStaffPassword(c echo.Context) error {
	return h.changePassword(c, auth.RoleAdmin)
}

func (h *Handler) changePassword(c echo.Context, role auth.Role) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActFor(c, role, id) {
		return forbidden()
	}
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.svc.ChangePassword(ctx, role, id, req.Password, auth.Actor(ctx)); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
