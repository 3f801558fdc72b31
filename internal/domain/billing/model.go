package billing

import (
	"fmt"
	"math"
	"strings"

	"github.com/medicore/hms/pkg/audit"
)

// Status is derived from the amounts, never set by callers.
type Status string

const (
	StatusUnpaid        Status = "Unpaid"
	StatusPartiallyPaid Status = "PartiallyPaid"
	StatusPaid          Status = "Paid"
)

type Bill struct {
	ID            int64   `json:"id"`
	PatientID     int64   `json:"patient_id"`
	DoctorID      *int64  `json:"doctor_id,omitempty"`
	AppointmentID *int64  `json:"appointment_id,omitempty"`
	Description   string  `json:"description,omitempty"`
	TotalAmount   float64 `json:"total_amount"`
	PaidAmount    float64 `json:"paid_amount"`
	Status        Status  `json:"status"`
	IsActive      bool    `json:"is_active"`
	audit.Fields
}

// Balance is TotalAmount - PaidAmount rounded to cents.
func (b *Bill) Balance() float64 {
	return roundCents(b.TotalAmount - b.PaidAmount)
}

// Settle recomputes Status from the amounts.
func (b *Bill) Settle() {
	switch {
	case b.PaidAmount <= 0:
		b.Status = StatusUnpaid
	case b.Balance() <= 0:
		b.Status = StatusPaid
	default:
		b.Status = StatusPartiallyPaid
	}
}

func roundCents(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // no negative zero in JSON
	}
	return r
}

// FormatAmount renders an amount with two decimals for messages.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// ParseStatus accepts the canonical names case-insensitively, with or without
// separators ("partially_paid", "Partially Paid").
func ParseStatus(s string) (Status, error) {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "unpaid":
		return StatusUnpaid, nil
	case "partiallypaid":
		return StatusPartiallyPaid, nil
	case "paid":
		return StatusPaid, nil
	}
	return "", fmt.Errorf("unknown bill status %q", s)
}

// billView adds the computed balance to API responses.
type billView struct {
	*Bill
	Balance float64 `json:"balance"`
}

func view(b *Bill) billView { return billView{Bill: b, Balance: b.Balance()} }
