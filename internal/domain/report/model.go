package report

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// OverviewLowStockThreshold is the "low stock" counter on the overview.
	OverviewLowStockThreshold = 10
	// LowStockTableThreshold bounds the low stock table.
	LowStockTableThreshold    = 20
	TopMedicinesLimit         = 10
	RecentLimit               = 10
	RevenueMonths             = 6
)

type Overview struct {
	TotalPatients       int             `json:"total_patients"`
	ActivePrescriptions int             `json:"active_prescriptions"`
	LowStockMedicines   int             `json:"low_stock_medicines"`
	MonthlyRevenue      decimal.Decimal `json:"monthly_revenue"`
	TodaysPrescriptions int             `json:"todays_prescriptions"`
	PendingPayments     int             `json:"pending_payments"`
}

// MonthRevenue is the invoiced total of one calendar month.
type MonthRevenue struct {
	Month string          `json:"month"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

type TopMedicine struct {
	MedicineID    int64  `json:"medicine_id"`
	Name          string `json:"name"`
	TotalQuantity int    `json:"total_quantity"`
}

type LowStockMedicine struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Stock     int             `json:"stock"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type RecentPrescription struct {
	ID                 int64               `json:"id"`
	PatientName        string              `json:"patient_name"`
	DoctorName         string              `json:"doctor_name"`
	Symptom            string              `json:"symptom"`
	PrescriptionStatus string              `json:"prescription_status"`
	PaymentStatus      string              `json:"payment_status"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
	CreatedAt          time.Time           `json:"created_at"`
}
