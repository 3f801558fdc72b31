package identity

import (
	"context"
	"errors"
	"time"

	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/auth"
)

const rehashActor = "system:rehash"

type patientPrincipals struct{ repo PatientRepository }

func (patientPrincipals) Role() auth.Role { return auth.RolePatient }

func (s patientPrincipals) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	p, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, absent(err)
	}
	return &auth.Principal{ID: p.ID, Email: p.Email, PasswordHash: p.PasswordHash}, nil
}

func (s patientPrincipals) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.repo.UpdatePassword(ctx, id, hash, rehashActor, time.Now().UTC())
}

type doctorPrincipals struct{ repo DoctorRepository }

func (doctorPrincipals) Role() auth.Role { return auth.RoleDoctor }

func (s doctorPrincipals) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	d, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, absent(err)
	}
	return &auth.Principal{ID: d.ID, Email: d.Email, PasswordHash: d.PasswordHash}, nil
}

func (s doctorPrincipals) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.repo.UpdatePassword(ctx, id, hash, rehashActor, time.Now().UTC())
}

type staffPrincipals struct{ repo StaffRepository }

func (staffPrincipals) Role() auth.Role { return auth.RoleAdmin }

func (s staffPrincipals) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	st, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, absent(err)
	}
	return &auth.Principal{ID: st.ID, Email: st.Email, PasswordHash: st.PasswordHash}, nil
}

func (s staffPrincipals) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.repo.UpdatePassword(ctx, id, hash, rehashActor, time.Now().UTC())
}

// absent maps "no such active account" to the nil, nil the authenticator expects.
func absent(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

// PrincipalSources returns the login sources in priority order:
// patients, then doctors, then staff.
func (s *Service) PrincipalSources() []auth.PrincipalSource {
	return []auth.PrincipalSource{
		patientPrincipals{repo: s.patients},
		doctorPrincipals{repo: s.doctors},
		staffPrincipals{repo: s.staff},
	}
}
