package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/auth"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/pkg/audit"
)

const minPasswordLen = 8

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
	staff    StaffRepository
	hasher   auth.Hasher
	now      func() time.Time
}

func NewService(patients PatientRepository, doctors DoctorRepository, staff StaffRepository, hasher auth.Hasher) *Service {
	return &Service{patients: patients, doctors: doctors, staff: staff, hasher: hasher, now: time.Now}
}

func validatePerson(first, last, email string) error {
	if strings.TrimSpace(first) == "" {
		return apperr.Invalid("first_name", "is required")
	}
	if strings.TrimSpace(last) == "" {
		return apperr.Invalid("last_name", "is required")
	}
	if email == "" {
		return apperr.Invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Invalid("email", "is not a valid address")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	return nil
}

// emailTaken checks all three principal tables. except names the record being
// updated so it does not collide with itself.
func (s *Service) emailTaken(ctx context.Context, email string, exceptRole auth.Role, exceptID int64) error {
	checks := []struct {
		role auth.Role
		fn   func(context.Context, string, int64) (bool, error)
	}{
		{auth.RolePatient, s.patients.EmailInUse},
		{auth.RoleDoctor, s.doctors.EmailInUse},
		{auth.RoleAdmin, s.staff.EmailInUse},
	}
	for _, c := range checks {
		var except int64
		if c.role == exceptRole {
			except = exceptID
		}
		taken, err := c.fn(ctx, email, except)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("email %s: %w", email, apperr.ErrDuplicate)
		}
	}
	return nil
}

func duplicateOr(err error, email string) error {
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", email, apperr.ErrDuplicate)
	}
	return err
}

// -- Patient --

// RegisterPatient creates an active patient with a hashed password.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient, password, actor string) error {
	p.Email = normalizeEmail(p.Email)
	if err := validatePerson(p.FirstName, p.LastName, p.Email); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if err := s.emailTaken(ctx, p.Email, "", 0); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	p.PasswordHash = hash
	p.IsActive = true
	p.Created(audit.Actor(actor), s.now())
	p.ModifiedDate, p.ModifiedBy = nil, nil

	return duplicateOr(s.patients.Create(ctx, p), p.Email)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.patients.GetByID(ctx, id)
}

func (s *Service) PatientExists(ctx context.Context, id int64) (bool, error) {
	return s.patients.Exists(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient, actor string) error {
	if err := apperr.RequirePositive("id", p.ID); err != nil {
		return err
	}
	p.Email = normalizeEmail(p.Email)
	if err := validatePerson(p.FirstName, p.LastName, p.Email); err != nil {
		return err
	}
	if err := s.emailTaken(ctx, p.Email, auth.RolePatient, p.ID); err != nil {
		return err
	}
	p.Modified(audit.Actor(actor), s.now())
	return duplicateOr(s.patients.Update(ctx, p), p.Email)
}

func (s *Service) DeletePatient(ctx context.Context, id int64, actor string) error {
	ok, err := s.patients.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("patient %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, strings.TrimSpace(q), limit, offset)
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor, password, actor string) error {
	d.Email = normalizeEmail(d.Email)
	if err := validatePerson(d.FirstName, d.LastName, d.Email); err != nil {
		return err
	}
	if err := validateDoctor(d); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if err := s.emailTaken(ctx, d.Email, "", 0); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	d.PasswordHash = hash
	d.IsActive = true
	d.PatientsTreated = 0
	d.ReputationScore = 0
	d.Created(audit.Actor(actor), s.now())
	d.ModifiedDate, d.ModifiedBy = nil, nil

	return duplicateOr(s.doctors.Create(ctx, d), d.Email)
}

func validateDoctor(d *Doctor) error {
	if d.ConsultationFee < 0 {
		return apperr.Invalid("consultation_fee", "must not be negative")
	}
	if d.DepartmentID != nil && *d.DepartmentID <= 0 {
		return apperr.Invalid("department_id", "must be a positive integer")
	}
	return nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) DoctorExists(ctx context.Context, id int64) (bool, error) {
	return s.doctors.Exists(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor, actor string) error {
	if err := apperr.RequirePositive("id", d.ID); err != nil {
		return err
	}
	d.Email = normalizeEmail(d.Email)
	if err := validatePerson(d.FirstName, d.LastName, d.Email); err != nil {
		return err
	}
	if err := validateDoctor(d); err != nil {
		return err
	}
	if err := s.emailTaken(ctx, d.Email, auth.RoleDoctor, d.ID); err != nil {
		return err
	}
	d.Modified(audit.Actor(actor), s.now())
	return duplicateOr(s.doctors.Update(ctx, d), d.Email)
}

func (s *Service) DeleteDoctor(ctx context.Context, id int64, actor string) error {
	ok, err := s.doctors.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("doctor %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) SearchDoctors(ctx context.Context, q string, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, strings.TrimSpace(q), limit, offset)
}

func (s *Service) ListDoctorsByDepartment(ctx context.Context, departmentID int64) ([]*Doctor, error) {
	if err := apperr.RequirePositive("department_id", departmentID); err != nil {
		return nil, err
	}
	return s.doctors.ListByDepartment(ctx, departmentID)
}

func (s *Service) IncrementPatientsTreated(ctx context.Context, doctorID int64) error {
	return s.doctors.IncrementPatientsTreated(ctx, doctorID)
}

func (s *Service) RefreshReputation(ctx context.Context, doctorID int64) (float64, error) {
	return s.doctors.RefreshReputation(ctx, doctorID)
}

// -- Staff --

func (s *Service) CreateStaff(ctx context.Context, st *Staff, password, actor string) error {
	st.Email = normalizeEmail(st.Email)
	if err := validatePerson(st.FirstName, st.LastName, st.Email); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if err := s.emailTaken(ctx, st.Email, "", 0); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	st.PasswordHash = hash
	st.IsActive = true
	st.Created(audit.Actor(actor), s.now())
	st.ModifiedDate, st.ModifiedBy = nil, nil

	return duplicateOr(s.staff.Create(ctx, st), st.Email)
}

func (s *Service) GetStaff(ctx context.Context, id int64) (*Staff, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.staff.GetByID(ctx, id)
}

func (s *Service) UpdateStaff(ctx context.Context, st *Staff, actor string) error {
	if err := apperr.RequirePositive("id", st.ID); err != nil {
		return err
	}
	st.Email = normalizeEmail(st.Email)
	if err := validatePerson(st.FirstName, st.LastName, st.Email); err != nil {
		return err
	}
	if err := s.emailTaken(ctx, st.Email, auth.RoleAdmin, st.ID); err != nil {
		return err
	}
	st.Modified(audit.Actor(actor), s.now())
	return duplicateOr(s.staff.Update(ctx, st), st.Email)
}

func (s *Service) DeleteStaff(ctx context.Context, id int64, actor string) error {
	ok, err := s.staff.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("staff %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) ListStaff(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return s.staff.List(ctx, limit, offset)
}

func (s *Service) SearchStaff(ctx context.Context, q string, limit, offset int) ([]*Staff, int, error) {
	return s.staff.Search(ctx, strings.TrimSpace(q), limit, offset)
}

// -- Credentials --

// ChangePassword replaces the password of any principal kind.
func (s *Service) ChangePassword(ctx context.Context, role auth.Role, id int64, password, actor string) error {
	if err := apperr.RequirePositive("id", id); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	actor = audit.Actor(actor)
	switch role {
	case auth.RolePatient:
		return s.patients.UpdatePassword(ctx, id, hash, actor, now)
	case auth.RoleDoctor:
		return s.doctors.UpdatePassword(ctx, id, hash, actor, now)
	case auth.RoleAdmin:
		return s.staff.UpdatePassword(ctx, id, hash, actor, now)
	default:
		return apperr.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}
}
