package patient

import (
	"time"

	"github.com/shopspring/decimal"
)

type Patient struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchResult is the compact row returned by the doctor's patient lookup.
type SearchResult struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

// PrescriptionSummary is one row of a patient's prescription history.
type PrescriptionSummary struct {
	ID                 int64               `json:"id"`
	DoctorName         string              `json:"doctor_name"`
	Symptom            string              `json:"symptom"`
	PrescriptionStatus string              `json:"prescription_status"`
	PaymentStatus      string              `json:"payment_status"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	SubmittedAt        time.Time           `json:"submitted_at"`
}

// Record is a patient with their prescription history, newest first.
type Record struct {
	Patient
	Prescriptions []PrescriptionSummary `json:"prescriptions"`
}
