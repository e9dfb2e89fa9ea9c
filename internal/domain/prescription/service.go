package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/clinic/clinic/internal/domain/medicine"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/validation"
)

// PatientStore is the part of the patient repository used during intake.
type PatientStore interface {
	Create(ctx context.Context, p *patient.Patient) error
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}

// MedicineStore is the part of the medicine repository used for stock.
type MedicineStore interface {
	GetByID(ctx context.Context, id int64) (*medicine.Medicine, error)
	DecrementStock(ctx context.Context, id int64, amount int) (bool, error)
}

// DoctorDirectory lists doctor names for the queue's doctor filter.
type DoctorDirectory interface {
	ListPrescribingDoctorNames(ctx context.Context) ([]string, error)
}

const (
	invoiceNumberAttempts = 3
	DefaultQRSize         = 256
)

type Service struct {
	tx            db.Transactor
	prescriptions Repository
	invoices      InvoiceRepository
	patients      PatientStore
	medicines     MedicineStore
	doctors       DoctorDirectory
	pricing       Pricing
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(
	tx db.Transactor,
	prescriptions Repository,
	invoices InvoiceRepository,
	patients PatientStore,
	medicines MedicineStore,
	doctors DoctorDirectory,
	pricing Pricing,
	logger zerolog.Logger,
) *Service {
	return &Service{
		tx:            tx,
		prescriptions: prescriptions,
		invoices:      invoices,
		patients:      patients,
		medicines:     medicines,
		doctors:       doctors,
		pricing:       pricing,
		logger:        logger,
		now:           time.Now,
	}
}

// CreatePrescription records a consultation: it resolves or registers the
// patient, creates the prescription and one item per medicine line, and
// takes each line's amount out of stock. A line that cannot be covered
// aborts the whole prescription with an InsufficientStockError.
func (s *Service) CreatePrescription(ctx context.Context, actor auth.Actor, in CreateInput) (*Prescription, error) {
	if err := actor.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	in.Patient.Name = strings.TrimSpace(in.Patient.Name)
	in.Symptom = strings.TrimSpace(in.Symptom)
	for i := range in.Medicines {
		in.Medicines[i].Dosage = strings.TrimSpace(in.Medicines[i].Dosage)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	dob, err := time.Parse(validation.DateLayout, in.Patient.DateOfBirth)
	if err != nil {
		return nil, apperr.Validation("patient.date_of_birth", "must be a date in YYYY-MM-DD format")
	}

	var created *Prescription
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		patientID, err := s.resolvePatient(ctx, in.Patient, dob)
		if err != nil {
			return err
		}

		p := &Prescription{
			PatientID:          patientID,
			DoctorID:           actor.ID,
			Symptom:            in.Symptom,
			PrescriptionStatus: StatusAccepted,
			PaymentStatus:      PaymentWaiting,
			SubmittedAt:        s.now(),
		}
		if err := s.prescriptions.Create(ctx, p); err != nil {
			return err
		}

		for _, line := range in.Medicines {
			it, err := s.addLine(ctx, p.ID, line)
			if err != nil {
				return err
			}
			p.Items = append(p.Items, *it)
		}
		created = p
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.logger.Warn().Int64("doctor_id", actor.ID).Int64("medicine_id", stockErr.MedicineID).
				Int("available", stockErr.Available).Int("requested", stockErr.Requested).
				Msg("prescription rejected: insufficient stock")
		}
		return nil, err
	}

	s.logger.Info().Int64("prescription_id", created.ID).Int64("patient_id", created.PatientID).
		Int64("doctor_id", actor.ID).Int("items", len(created.Items)).Msg("prescription created")
	return created, nil
}

func (s *Service) resolvePatient(ctx context.Context, in PatientInput, dob time.Time) (int64, error) {
	if in.ExistingID != nil {
		p, err := s.patients.GetByID(ctx, *in.ExistingID)
		if err != nil {
			return 0, err
		}
		return p.ID, nil
	}
	p := &patient.Patient{Name: in.Name, DateOfBirth: dob}
	if err := s.patients.Create(ctx, p); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *Service) addLine(ctx context.Context, prescriptionID int64, line LineInput) (*Item, error) {
	med, err := s.medicines.GetByID(ctx, line.MedicineID)
	if err != nil {
		return nil, err
	}
	it := &Item{
		PrescriptionID: prescriptionID,
		MedicineID:     med.ID,
		MedicineName:   med.Name,
		Dosage:         line.Dosage,
		Amount:         line.Amount,
		Price:          med.Price,
	}
	if err := s.prescriptions.AddItem(ctx, it); err != nil {
		return nil, err
	}

	ok, err := s.medicines.DecrementStock(ctx, med.ID, line.Amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Report the stock as it is now, which may differ from med.Stock
		// under concurrent prescriptions.
		current, err := s.medicines.GetByID(ctx, med.ID)
		if err != nil {
			return nil, err
		}
		return nil, &InsufficientStockError{
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Available:    current.Stock,
			Requested:    line.Amount,
		}
	}
	return it, nil
}

// UpdateStatus moves a prescription to any of the three statuses and
// overwrites the pharmacist notes. Completing a prescription puts its
// payment back to waiting.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id int64, in StatusInput) (*Prescription, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var updated *Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.prescriptions.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := s.prescriptions.UpdateStatus(ctx, id, in.Status, in.Notes, in.Status == StatusCompleted); err != nil {
			return err
		}
		p, err := s.prescriptions.GetByID(ctx, id)
		updated = p
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("prescription_id", id).Str("status", in.Status).Int64("by", actor.ID).
		Msg("prescription status updated")
	return updated, nil
}

// ProcessPayment records payment of a prescription. Totals are computed and
// frozen on the first payment only; later calls reuse them. The invoice is
// written once per prescription.
func (s *Service) ProcessPayment(ctx context.Context, actor auth.Actor, id int64, in PaymentInput) (*PaymentResult, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var result PaymentResult
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.prescriptions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		items, err := s.prescriptions.ListItems(ctx, id)
		if err != nil {
			return err
		}

		if !p.TotalAmount.Valid {
			t := ComputeTotals(items, p.ConsultationFee, p.PPNRateApplied, s.pricing)
			if err := s.prescriptions.SaveTotals(ctx, id, t.ConsultationFee, t.PPNRate, t.Total); err != nil {
				return err
			}
			s.logger.Info().Int64("prescription_id", id).Str("total", t.Total.StringFixed(2)).
				Msg("prescription totals computed")
		}

		if err := s.prescriptions.MarkPaid(ctx, id, in.PaymentMethod, in.Notes, s.now()); err != nil {
			return err
		}
		if p, err = s.prescriptions.GetByID(ctx, id); err != nil {
			return err
		}
		p.Items = items

		inv, err := s.ensureInvoice(ctx, p)
		if err != nil {
			return err
		}
		result = PaymentResult{Prescription: p, Invoice: inv}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("prescription_id", id).Str("method", in.PaymentMethod).
		Str("invoice_number", result.Invoice.InvoiceNumber).Int64("by", actor.ID).Msg("payment processed")
	return &result, nil
}

// ensureInvoice returns the prescription's invoice, writing it from the
// frozen totals if there is none yet. A clash on the random invoice number
// is retried with a fresh number.
func (s *Service) ensureInvoice(ctx context.Context, p *Prescription) (*Invoice, error) {
	existing, err := s.invoices.GetByPrescription(ctx, p.ID)
	if err == nil {
		return existing, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	subtotal := MedicinesSubtotal(p.Items)
	fee := p.ConsultationFee.Decimal
	total := p.TotalAmount.Decimal
	issued := s.now()
	if p.PaidAt != nil {
		issued = *p.PaidAt
	}
	inv := &Invoice{
		PrescriptionID:    p.ID,
		IssueDate:         issued,
		SubtotalMedicines: subtotal,
		ConsultationFee:   fee,
		PPNAmount:         total.Sub(fee).Sub(subtotal),
		GrandTotal:        total,
		PaymentMethod:     derefString(p.PaymentMethod),
	}

	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		if inv.InvoiceNumber, err = NewInvoiceNumber(issued); err != nil {
			return nil, err
		}
		created, err := s.invoices.Insert(ctx, inv)
		if err != nil {
			return nil, err
		}
		if created {
			return inv, nil
		}
		existing, err := s.invoices.GetByPrescription(ctx, p.ID)
		if err == nil {
			return existing, nil
		}
		if !apperr.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("allocate invoice number for prescription %d: %d attempts collided", p.ID, invoiceNumberAttempts)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetInvoiceData assembles the printable invoice. Only paid prescriptions
// have one.
func (s *Service) GetInvoiceData(ctx context.Context, actor auth.Actor, id int64) (*InvoiceData, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	d, err := s.prescriptions.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.PaymentStatus != PaymentSuccess {
		return nil, apperr.NotFound("paid prescription", id)
	}

	data := &InvoiceData{
		InvoiceNumber: DisplayInvoiceNumber(d.ID),
		Patient: InvoicePatient{
			Name:        d.PatientName,
			DateOfBirth: d.PatientDateOfBirth.Format(validation.DateLayout),
		},
		Doctor:            d.DoctorName,
		Items:             make([]InvoiceItem, 0, len(d.Items)),
		ConsultationFee:   d.ConsultationFee.Decimal,
		MedicinesSubtotal: MedicinesSubtotal(d.Items),
		PPNRate:           d.PPNRateApplied.Decimal.Shift(2),
		TotalAmount:       d.TotalAmount.Decimal,
		PaidAmount:        d.PaidAmount.Decimal,
		PaymentMethod:     derefString(d.PaymentMethod),
	}
	if d.PaidAt != nil {
		data.Date = *d.PaidAt
	}
	for _, it := range d.Items {
		data.Items = append(data.Items, InvoiceItem{
			MedicineName: it.MedicineName,
			Dosage:       it.Dosage,
			Quantity:     it.Amount,
			PricePerUnit: it.Price,
			TotalPrice:   it.LineTotal(),
		})
	}
	data.PPNAmount = data.TotalAmount.Sub(data.ConsultationFee).Sub(data.MedicinesSubtotal)

	inv, err := s.invoices.GetByPrescription(ctx, id)
	switch {
	case err == nil:
		data.StoredInvoiceNumber = &inv.InvoiceNumber
	case !apperr.IsNotFound(err):
		return nil, err
	}
	return data, nil
}

// GetPrescription returns a prescription with patient, doctor and items.
// Doctors only see their own prescriptions.
func (s *Service) GetPrescription(ctx context.Context, actor auth.Actor, id int64) (*Detail, error) {
	if err := actor.Require(auth.RolePharmacist, auth.RoleDoctor); err != nil {
		return nil, err
	}
	d, err := s.prescriptions.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleDoctor && d.DoctorID != actor.ID {
		return nil, apperr.NotFound("prescription", id)
	}
	return d, nil
}

// ListPrescriptions returns a page of the pharmacist queue, newest first,
// with counters for the whole queue and for the filtered view.
func (s *Service) ListPrescriptions(ctx context.Context, actor auth.Actor, f ListFilter, limit, offset int) (*Queue, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	f.Search = strings.TrimSpace(f.Search)
	now := s.now()

	rows, total, err := s.prescriptions.List(ctx, f, now, limit, offset)
	if err != nil {
		return nil, err
	}
	q := &Queue{Rows: rows, Total: total}
	if q.Rows == nil {
		q.Rows = []ListRow{}
	}

	if q.Stats.Total, err = s.prescriptions.Stats(ctx, ListFilter{}, now); err != nil {
		return nil, err
	}
	unstatused := f
	unstatused.Status = ""
	if q.Stats.Filtered, err = s.prescriptions.Stats(ctx, unstatused, now); err != nil {
		return nil, err
	}

	if q.UniqueDoctors, err = s.doctors.ListPrescribingDoctorNames(ctx); err != nil {
		return nil, err
	}
	if q.UniqueDoctors == nil {
		q.UniqueDoctors = []string{}
	}
	return q, nil
}

// GetInvoice returns the stored invoice of a prescription.
func (s *Service) GetInvoice(ctx context.Context, actor auth.Actor, prescriptionID int64) (*Invoice, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	return s.invoices.GetByPrescription(ctx, prescriptionID)
}

func (s *Service) ListInvoices(ctx context.Context, actor auth.Actor, limit, offset int) ([]*Invoice, int, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, 0, err
	}
	return s.invoices.List(ctx, limit, offset)
}

// InvoiceQR renders the stored invoice number as a PNG QR code.
func (s *Service) InvoiceQR(ctx context.Context, actor auth.Actor, prescriptionID int64, size int) ([]byte, error) {
	inv, err := s.GetInvoice(ctx, actor, prescriptionID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	qr, err := qrcode.New(inv.InvoiceNumber, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode invoice qr: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("encode invoice qr: %w", err)
	}
	return png, nil
}
