package prescription

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prescription statuses.
const (
	StatusAccepted  = "accepted"
	StatusPreparing = "preparing"
	StatusCompleted = "completed"
)

// Payment statuses.
const (
	PaymentWaiting = "waiting"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusAccepted, StatusPreparing, StatusCompleted:
		return true
	}
	return false
}

type Prescription struct {
	ID                 int64               `json:"id"`
	PatientID          int64               `json:"patient_id"`
	DoctorID           int64               `json:"doctor_id"`
	Symptom            string              `json:"symptom"`
	PrescriptionStatus string              `json:"prescription_status"`
	PaymentStatus      string              `json:"payment_status"`
	ConsultationFee    decimal.NullDecimal `json:"consultation_fee"`
	PPNRateApplied     decimal.NullDecimal `json:"ppn_rate_applied"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	PaidAmount         decimal.NullDecimal `json:"paid_amount"`
	PaymentMethod      *string             `json:"payment_method"`
	NotesPharmacist    *string             `json:"notes_pharmacist"`
	SubmittedAt        time.Time           `json:"submitted_at"`
	PaidAt             *time.Time          `json:"paid_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	Items              []Item              `json:"items,omitempty"`
}

// Item is one prescribed medicine. Price is copied from the medicine when the
// item is created and never changes afterwards.
type Item struct {
	ID             int64           `json:"id"`
	PrescriptionID int64           `json:"prescription_id"`
	MedicineID     int64           `json:"medicine_id"`
	MedicineName   string          `json:"medicine_name,omitempty"`
	Dosage         string          `json:"medicine_dosage_prescribed"`
	Amount         int             `json:"medicine_amount_prescribed"`
	Price          decimal.Decimal `json:"medicine_price_at_prescription"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Amount)))
}

// Detail is a prescription with its patient, doctor and items resolved.
type Detail struct {
	Prescription
	PatientName        string    `json:"patient_name"`
	PatientDateOfBirth time.Time `json:"patient_date_of_birth"`
	DoctorName         string    `json:"doctor_name"`
}

// Invoice is the persisted billing record of a paid prescription.
type Invoice struct {
	ID                int64           `json:"id"`
	PrescriptionID    int64           `json:"prescription_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	IssueDate         time.Time       `json:"issue_date"`
	SubtotalMedicines decimal.Decimal `json:"subtotal_medicines"`
	ConsultationFee   decimal.Decimal `json:"consultation_fee"`
	PPNAmount         decimal.Decimal `json:"ppn_amount"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	PaymentMethod     string          `json:"payment_method"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InvoiceData is the printable invoice of a paid prescription.
type InvoiceData struct {
	InvoiceNumber       string          `json:"invoice_number"`
	StoredInvoiceNumber *string         `json:"stored_invoice_number,omitempty"`
	Date                time.Time       `json:"date"`
	Patient             InvoicePatient  `json:"patient"`
	Doctor              string          `json:"doctor"`
	Items               []InvoiceItem   `json:"items"`
	ConsultationFee     decimal.Decimal `json:"consultation_fee"`
	MedicinesSubtotal   decimal.Decimal `json:"medicines_subtotal"`
	PPNRate             decimal.Decimal `json:"ppn_rate"`
	PPNAmount           decimal.Decimal `json:"ppn_amount"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	PaymentMethod       string          `json:"payment_method"`
}

type InvoicePatient struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
}

type InvoiceItem struct {
	MedicineName string          `json:"medicine_name"`
	Dosage       string          `json:"dosage"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// PatientInput either names an existing patient or describes a new one.
type PatientInput struct {
	ExistingID  *int64 `json:"existing_id"`
	Name        string `json:"name" validate:"required,max=255"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02,before_today"`
}

type LineInput struct {
	MedicineID int64  `json:"medicine_id" validate:"required,gt=0"`
	Dosage     string `json:"dosage" validate:"required,max=100"`
	Amount     int    `json:"amount" validate:"min=1"`
}

type CreateInput struct {
	Patient   PatientInput `json:"patient"`
	Symptom   string       `json:"symptom" validate:"required"`
	Medicines []LineInput  `json:"medicines" validate:"required,min=1,dive"`
}

type StatusInput struct {
	Status string  `json:"prescription_status" validate:"required,oneof=accepted preparing completed"`
	Notes  *string `json:"notes_pharmacist"`
}

type PaymentInput struct {
	PaymentMethod string  `json:"payment_method" validate:"required,max=50"`
	Notes         *string `json:"notes_pharmacist"`
}

// PaymentResult is the paid prescription and its invoice.
type PaymentResult struct {
	Prescription *Prescription `json:"prescription"`
	Invoice      *Invoice      `json:"invoice"`
}

// Queue filter values.
const (
	FilterAll  = "all"
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
)

const DefaultPerPage = 12

// PerPageOptions are the page sizes offered by the pharmacist queue.
var PerPageOptions = []int{8, 12, 16, 24}

// ListFilter narrows the pharmacist queue. Empty fields and "all" match
// everything.
type ListFilter struct {
	Search    string
	Status    string
	DateRange string
	Doctor    string
}

// rangeStart returns the earliest submitted_at matched by a date range.
// Today runs from local midnight; week and month look back 7 and 30 days.
func rangeStart(dateRange string, now time.Time) (time.Time, bool) {
	switch dateRange {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case RangeWeek:
		return now.AddDate(0, 0, -7), true
	case RangeMonth:
		return now.AddDate(0, 0, -30), true
	}
	return time.Time{}, false
}

// ListRow is one card in the pharmacist queue.
type ListRow struct {
	ID                 int64               `json:"id"`
	PatientID          int64               `json:"patient_id"`
	PatientName        string              `json:"patient_name"`
	PatientDateOfBirth time.Time           `json:"patient_date_of_birth"`
	DoctorName         string              `json:"doctor_name"`
	Symptom            string              `json:"symptom"`
	Medications        []string            `json:"medications"`
	PrescriptionStatus string              `json:"prescription_status"`
	PaymentStatus      string              `json:"payment_status"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	SubmittedAt        time.Time           `json:"submitted_at"`
}

// Stats counts prescriptions by status. Pending means accepted but not yet
// being prepared.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
}

// QueueStats counts the whole queue and the filtered view. The filtered
// counts ignore the status filter so every status tab shows its size.
type QueueStats struct {
	Total    Stats `json:"total"`
	Filtered Stats `json:"filtered"`
}

// Queue is a page of the pharmacist queue with its counters.
type Queue struct {
	Rows          []ListRow  `json:"data"`
	Total         int        `json:"total"`
	UniqueDoctors []string   `json:"unique_doctors"`
	Stats         QueueStats `json:"stats"`
}
