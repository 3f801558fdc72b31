package identity

import (
	"strings"
	"time"

	"github.com/medicore/hms/pkg/audit"
)

type Patient struct {
	ID           int64      `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Address      string     `json:"address,omitempty"`
	BloodGroup   string     `json:"blood_group,omitempty"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	audit.Fields
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Doctor struct {
	ID              int64   `json:"id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone,omitempty"`
	Gender          string  `json:"gender,omitempty"`
	Address         string  `json:"address,omitempty"`
	DepartmentID    *int64  `json:"department_id,omitempty"`
	Specialization  string  `json:"specialization,omitempty"`
	ConsultationFee float64 `json:"consultation_fee"`
	// Derived: maintained by appointment completion and feedback.
	PatientsTreated int     `json:"patients_treated"`
	ReputationScore float64 `json:"reputation_score"`
	PasswordHash    string  `json:"-"`
	IsActive        bool    `json:"is_active"`
	audit.Fields
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Staff is an administrative account. Staff log in with the Admin role.
type Staff struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Position     string `json:"position,omitempty"`
	PasswordHash string `json:"-"`
	IsActive     bool   `json:"is_active"`
	audit.Fields
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
