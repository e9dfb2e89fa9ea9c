package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/domain/prescription"
)

func TestPrescriptionStockLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	doctor := e.createDoctor(t, "sari", "Dr. Sari")
	para := e.createMedicine(t, "Paracetamol", "25000", 10)
	amox := e.createMedicine(t, "Amoxicillin", "12000", 2)

	t.Run("Create_DecrementsStock", func(t *testing.T) {
		p, err := e.rx.CreatePrescription(ctx, doctor, newPatientInput("Siti", line(para.ID, 4)))
		if err != nil {
			t.Fatalf("CreatePrescription: %v", err)
		}
		if p.PrescriptionStatus != prescription.StatusAccepted || p.PaymentStatus != prescription.PaymentWaiting {
			t.Errorf("unexpected initial state %s/%s", p.PrescriptionStatus, p.PaymentStatus)
		}
		if got := e.stockOf(t, para.ID); got != 6 {
			t.Errorf("expected stock 6, got %d", got)
		}
	})

	t.Run("Create_InsufficientStock_RollsBack", func(t *testing.T) {
		_, err := e.rx.CreatePrescription(ctx, doctor, newPatientInput("Budi", line(para.ID, 1), line(amox.ID, 3)))
		var stockErr *prescription.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if stockErr.Available != 2 || stockErr.Requested != 3 {
			t.Errorf("unexpected stock error %+v", stockErr)
		}
		if got := e.stockOf(t, para.ID); got != 6 {
			t.Errorf("expected first line to be rolled back, stock %d", got)
		}
		var patients int
		if err := e.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE name = 'Budi'`).Scan(&patients); err != nil {
			t.Fatalf("count patients: %v", err)
		}
		if patients != 0 {
			t.Errorf("expected new patient to be rolled back, found %d", patients)
		}
	})

	t.Run("Create_Concurrent_NeverOversells", func(t *testing.T) {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.rx.CreatePrescription(ctx, doctor, newPatientInput("Walk-in", line(para.ID, 4)))
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if succeeded != 1 {
			t.Errorf("expected exactly one prescription to fit the remaining stock, got %d", succeeded)
		}
		if got := e.stockOf(t, para.ID); got != 2 {
			t.Errorf("expected stock 2, got %d", got)
		}
	})
}

func TestPaymentAndInvoice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	doctor := e.createDoctor(t, "sari", "Dr. Sari")
	para := e.createMedicine(t, "Paracetamol", "25000", 10)

	p, err := e.rx.CreatePrescription(ctx, doctor, newPatientInput("Siti", line(para.ID, 4)))
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}

	if _, err := e.rx.GetInvoiceData(ctx, pharmacist, p.ID); err == nil {
		t.Fatal("expected invoice data to be unavailable before payment")
	}

	first, err := e.rx.ProcessPayment(ctx, pharmacist, p.ID, prescription.PaymentInput{PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	want := decimal.NewFromInt(166500)
	if !first.Prescription.TotalAmount.Decimal.Equal(want) || !first.Prescription.PaidAmount.Decimal.Equal(want) {
		t.Errorf("expected total and paid 166500, got %s/%s",
			first.Prescription.TotalAmount.Decimal, first.Prescription.PaidAmount.Decimal)
	}
	if !first.Invoice.GrandTotal.Equal(want) || !first.Invoice.PPNAmount.Equal(decimal.NewFromInt(16500)) {
		t.Errorf("unexpected invoice %+v", first.Invoice)
	}

	// A price change after prescribing never reaches the bill.
	if _, err := e.pool.Exec(ctx, `UPDATE medicines SET price = 99999 WHERE id = $1`, para.ID); err != nil {
		t.Fatalf("reprice: %v", err)
	}

	second, err := e.rx.ProcessPayment(ctx, pharmacist, p.ID, prescription.PaymentInput{PaymentMethod: "transfer"})
	if err != nil {
		t.Fatalf("second ProcessPayment: %v", err)
	}
	if second.Invoice.InvoiceNumber != first.Invoice.InvoiceNumber {
		t.Errorf("expected the original invoice to be kept, got %s then %s",
			first.Invoice.InvoiceNumber, second.Invoice.InvoiceNumber)
	}
	if !second.Prescription.TotalAmount.Decimal.Equal(want) {
		t.Errorf("expected total to stay frozen, got %s", second.Prescription.TotalAmount.Decimal)
	}

	var invoices int
	if err := e.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE prescription_id = $1`, p.ID).Scan(&invoices); err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if invoices != 1 {
		t.Errorf("expected one invoice row, got %d", invoices)
	}

	data, err := e.rx.GetInvoiceData(ctx, pharmacist, p.ID)
	if err != nil {
		t.Fatalf("GetInvoiceData: %v", err)
	}
	if len(data.Items) != 1 || !data.Items[0].PricePerUnit.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("expected item priced at prescription time, got %+v", data.Items)
	}

	revenue, err := e.reports.MonthlyRevenue(ctx, admin)
	if err != nil {
		t.Fatalf("MonthlyRevenue: %v", err)
	}
	sum := decimal.Zero
	for _, m := range revenue {
		sum = sum.Add(m.Total)
	}
	if !sum.Equal(want) {
		t.Errorf("expected revenue 166500, got %s", sum)
	}
}

func TestCompletingResetsPayment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	doctor := e.createDoctor(t, "sari", "Dr. Sari")
	para := e.createMedicine(t, "Paracetamol", "25000", 10)

	p, err := e.rx.CreatePrescription(ctx, doctor, newPatientInput("Siti", line(para.ID, 1)))
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}
	if _, err := e.rx.ProcessPayment(ctx, pharmacist, p.ID, prescription.PaymentInput{PaymentMethod: "cash"}); err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}

	got, err := e.rx.UpdateStatus(ctx, pharmacist, p.ID, prescription.StatusInput{Status: prescription.StatusCompleted})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.PaymentStatus != prescription.PaymentWaiting {
		t.Errorf("expected payment reset to waiting, got %s", got.PaymentStatus)
	}
	if !got.TotalAmount.Valid {
		t.Error("expected recorded total to survive the reset")
	}
}
