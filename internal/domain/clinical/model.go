package clinical

import (
	"time"

	"github.com/medicore/hms/pkg/audit"
)

// TreatmentHistory records what was diagnosed and prescribed at a visit.
type TreatmentHistory struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patient_id"`
	DoctorID      *int64    `json:"doctor_id,omitempty"`
	AppointmentID *int64    `json:"appointment_id,omitempty"`
	Diagnosis     string    `json:"diagnosis"`
	Treatment     string    `json:"treatment,omitempty"`
	Prescription  string    `json:"prescription,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	TreatmentDate time.Time `json:"treatment_date"`
	IsActive      bool      `json:"is_active"`
	audit.Fields
}

// Feedback is a patient's rating of a completed appointment.
type Feedback struct {
	ID            int64  `json:"id"`
	PatientID     int64  `json:"patient_id"`
	DoctorID      int64  `json:"doctor_id"`
	AppointmentID int64  `json:"appointment_id"`
	Rating        int    `json:"rating"`
	Comments      string `json:"comments,omitempty"`
	IsActive      bool   `json:"is_active"`
	audit.Fields
}

const (
	MinRating = 1
	MaxRating = 5
)
