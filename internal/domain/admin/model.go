package admin

import "github.com/medicore/hms/pkg/audit"

// Department groups doctors by specialty within a facility.
type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	audit.Fields
}
