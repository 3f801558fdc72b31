package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medicore/hms/internal/domain/identity"
	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/pkg/audit"
)

// DoctorLister is satisfied by identity.Service.
type DoctorLister interface {
	ListDoctorsByDepartment(ctx context.Context, departmentID int64) ([]*identity.Doctor, error)
}

type Service struct {
	depts   DepartmentRepository
	doctors DoctorLister
	now     func() time.Time
}

func NewService(depts DepartmentRepository, doctors DoctorLister) *Service {
	return &Service{depts: depts, doctors: doctors, now: time.Now}
}

func (s *Service) validate(ctx context.Context, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apperr.Invalid("name", "is required")
	}
	taken, err := s.depts.NameInUse(ctx, d.Name, d.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("department %q: %w", d.Name, apperr.ErrDuplicate)
	}
	return nil
}

func (s *Service) CreateDepartment(ctx context.Context, d *Department, actor string) error {
	d.ID = 0
	if err := s.validate(ctx, d); err != nil {
		return err
	}
	d.IsActive = true
	d.Created(audit.Actor(actor), s.now())
	d.ModifiedDate, d.ModifiedBy = nil, nil
	if err := s.depts.Create(ctx, d); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("department %q: %w", d.Name, apperr.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (s *Service) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.depts.GetByID(ctx, id)
}

func (s *Service) DepartmentExists(ctx context.Context, id int64) (bool, error) {
	return s.depts.Exists(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, d *Department, actor string) error {
	if err := apperr.RequirePositive("id", d.ID); err != nil {
		return err
	}
	if err := s.validate(ctx, d); err != nil {
		return err
	}
	d.Modified(audit.Actor(actor), s.now())
	if err := s.depts.Update(ctx, d); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("department %q: %w", d.Name, apperr.ErrDuplicate)
		}
		return err
	}
	return nil
}

// DeleteDepartment withdraws the department. Doctors keep their department id.
func (s *Service) DeleteDepartment(ctx context.Context, id int64, actor string) error {
	ok, err := s.depts.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("department %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return s.depts.List(ctx, limit, offset)
}

func (s *Service) SearchDepartments(ctx context.Context, q string, limit, offset int) ([]*Department, int, error) {
	return s.depts.Search(ctx, strings.TrimSpace(q), limit, offset)
}

// ListDoctors returns the active doctors of an active department.
func (s *Service) ListDoctors(ctx context.Context, departmentID int64) ([]*identity.Doctor, error) {
	if _, err := s.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.doctors.ListDoctorsByDepartment(ctx, departmentID)
}
