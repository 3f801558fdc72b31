package notification

import "github.com/medicore/hms/pkg/audit"

// Notification is an in-app message addressed to a patient.
type Notification struct {
	ID        int64  `json:"id"`
	PatientID int64  `json:"patient_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	IsActive  bool   `json:"is_active"`
	audit.Fields
}
