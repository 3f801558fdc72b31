package scheduling

import (
	"time"

	"github.com/medicore/hms/pkg/audit"
)

// FreeSlot is a window a doctor has opened for booking.
type FreeSlot struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsActive  bool      `json:"is_active"`
	audit.Fields
}

func (s *FreeSlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	DoctorID        int64     `json:"doctor_id"`
	FreeSlotID      *int64    `json:"free_slot_id,omitempty"`
	AppointmentDate time.Time `json:"appointment_date"`
	Reason          string    `json:"reason,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Status          Status    `json:"status"`
	IsPaid          bool      `json:"is_paid"`
	FeedbackGiven   bool      `json:"feedback_given"`
	IsActive        bool      `json:"is_active"`
	audit.Fields
}

// BookingRequest carries the inputs of CreateAppointment. A zero Date means
// the slot's start time.
type BookingRequest struct {
	PatientID  int64     `json:"patient_id"`
	DoctorID   int64     `json:"doctor_id"`
	FreeSlotID int64     `json:"free_slot_id"`
	Date       time.Time `json:"appointment_date"`
	Reason     string    `json:"reason"`
}
