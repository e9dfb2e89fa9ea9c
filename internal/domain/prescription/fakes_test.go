package prescription

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/domain/medicine"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/apperr"
)

// memDB backs every fake repository. memTx restores a snapshot of it when
// the transaction function fails.
type memDB struct {
	patients      map[int64]patient.Patient
	medicines     map[int64]medicine.Medicine
	prescriptions map[int64]Prescription
	items         []Item
	invoices      map[int64]Invoice
	doctors       map[int64]string
	nextID        int64

	// numberClashes makes the next n invoice inserts fail as if the
	// generated number were taken.
	numberClashes int
}

func newMemDB() *memDB {
	return &memDB{
		patients:      make(map[int64]patient.Patient),
		medicines:     make(map[int64]medicine.Medicine),
		prescriptions: make(map[int64]Prescription),
		invoices:      make(map[int64]Invoice),
		doctors:       make(map[int64]string),
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) clone() memDB {
	return memDB{
		patients:      maps.Clone(m.patients),
		medicines:     maps.Clone(m.medicines),
		prescriptions: maps.Clone(m.prescriptions),
		items:         slices.Clone(m.items),
		invoices:      maps.Clone(m.invoices),
		doctors:       maps.Clone(m.doctors),
		nextID:        m.nextID,
		numberClashes: m.numberClashes,
	}
}

type memTx struct{ db *memDB }

func (t *memTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.db.clone()
	if err := fn(ctx); err != nil {
		*t.db = snap
		return err
	}
	return nil
}

// -- Patients --

type fakePatients struct{ db *memDB }

func (f *fakePatients) Create(_ context.Context, p *patient.Patient) error {
	p.ID = f.db.id()
	f.db.patients[p.ID] = *p
	return nil
}

func (f *fakePatients) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := f.db.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return &p, nil
}

// -- Medicines --

type fakeMedicines struct{ db *memDB }

func (f *fakeMedicines) GetByID(_ context.Context, id int64) (*medicine.Medicine, error) {
	m, ok := f.db.medicines[id]
	if !ok || m.DeletedAt != nil {
		return nil, apperr.NotFound("medicine", id)
	}
	return &m, nil
}

func (f *fakeMedicines) DecrementStock(_ context.Context, id int64, amount int) (bool, error) {
	m, ok := f.db.medicines[id]
	if !ok || m.DeletedAt != nil || m.Stock < amount {
		return false, nil
	}
	m.Stock -= amount
	f.db.medicines[id] = m
	return true, nil
}

// -- Doctors --

type fakeDoctors struct{ db *memDB }

func (f *fakeDoctors) ListPrescribingDoctorNames(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, p := range f.db.prescriptions {
		name := f.db.doctors[p.DoctorID]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// -- Prescriptions --

type fakePrescriptions struct{ db *memDB }

func (f *fakePrescriptions) Create(_ context.Context, p *Prescription) error {
	p.ID = f.db.id()
	p.CreatedAt = p.SubmittedAt
	p.UpdatedAt = p.SubmittedAt
	stored := *p
	stored.Items = nil
	f.db.prescriptions[p.ID] = stored
	return nil
}

func (f *fakePrescriptions) AddItem(_ context.Context, it *Item) error {
	it.ID = f.db.id()
	stored := *it
	stored.MedicineName = ""
	f.db.items = append(f.db.items, stored)
	return nil
}

func (f *fakePrescriptions) GetByID(_ context.Context, id int64) (*Prescription, error) {
	p, ok := f.db.prescriptions[id]
	if !ok {
		return nil, apperr.NotFound("prescription", id)
	}
	return &p, nil
}

func (f *fakePrescriptions) GetForUpdate(ctx context.Context, id int64) (*Prescription, error) {
	return f.GetByID(ctx, id)
}

func (f *fakePrescriptions) ListItems(_ context.Context, prescriptionID int64) ([]Item, error) {
	var out []Item
	for _, it := range f.db.items {
		if it.PrescriptionID == prescriptionID {
			it.MedicineName = f.db.medicines[it.MedicineID].Name
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakePrescriptions) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	p, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pt := f.db.patients[p.PatientID]
	d := &Detail{
		Prescription:       *p,
		PatientName:        pt.Name,
		PatientDateOfBirth: pt.DateOfBirth,
		DoctorName:         f.db.doctors[p.DoctorID],
	}
	d.Items, _ = f.ListItems(ctx, id)
	return d, nil
}

func (f *fakePrescriptions) update(id int64, fn func(p *Prescription)) error {
	p, ok := f.db.prescriptions[id]
	if !ok {
		return apperr.NotFound("prescription", id)
	}
	fn(&p)
	f.db.prescriptions[id] = p
	return nil
}

func (f *fakePrescriptions) UpdateStatus(_ context.Context, id int64, status string, notes *string, resetPayment bool) error {
	return f.update(id, func(p *Prescription) {
		p.PrescriptionStatus = status
		p.NotesPharmacist = notes
		if resetPayment {
			p.PaymentStatus = PaymentWaiting
		}
	})
}

func (f *fakePrescriptions) SaveTotals(_ context.Context, id int64, fee, rate, total decimal.Decimal) error {
	return f.update(id, func(p *Prescription) {
		p.ConsultationFee = decimal.NewNullDecimal(fee)
		p.PPNRateApplied = decimal.NewNullDecimal(rate)
		p.TotalAmount = decimal.NewNullDecimal(total)
	})
}

func (f *fakePrescriptions) MarkPaid(_ context.Context, id int64, method string, notes *string, paidAt time.Time) error {
	return f.update(id, func(p *Prescription) {
		p.PaymentStatus = PaymentSuccess
		p.PaymentMethod = &method
		p.PaidAmount = p.TotalAmount
		p.PaidAt = &paidAt
		p.NotesPharmacist = notes
	})
}

func (f *fakePrescriptions) matching(flt ListFilter, now time.Time) []Prescription {
	from, ranged := rangeStart(flt.DateRange, now)
	var out []Prescription
	for _, p := range f.db.prescriptions {
		name := f.db.patients[p.PatientID].Name
		if flt.Search != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(flt.Search)) {
			continue
		}
		if flt.Status != "" && flt.Status != FilterAll && p.PrescriptionStatus != flt.Status {
			continue
		}
		if ranged && p.SubmittedAt.Before(from) {
			continue
		}
		if ranged && flt.DateRange == RangeToday && !p.SubmittedAt.Before(from.AddDate(0, 0, 1)) {
			continue
		}
		if flt.Doctor != "" && flt.Doctor != FilterAll && f.db.doctors[p.DoctorID] != flt.Doctor {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

func (f *fakePrescriptions) List(ctx context.Context, flt ListFilter, now time.Time, limit, offset int) ([]ListRow, int, error) {
	all := f.matching(flt, now)
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:min(offset+limit, total)]
	rows := make([]ListRow, 0, len(all))
	for _, p := range all {
		pt := f.db.patients[p.PatientID]
		row := ListRow{
			ID:                 p.ID,
			PatientID:          p.PatientID,
			PatientName:        pt.Name,
			PatientDateOfBirth: pt.DateOfBirth,
			DoctorName:         f.db.doctors[p.DoctorID],
			Symptom:            p.Symptom,
			PrescriptionStatus: p.PrescriptionStatus,
			PaymentStatus:      p.PaymentStatus,
			TotalAmount:        p.TotalAmount,
			SubmittedAt:        p.SubmittedAt,
		}
		items, _ := f.ListItems(ctx, p.ID)
		for _, it := range items {
			row.Medications = append(row.Medications, it.MedicineName)
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

func (f *fakePrescriptions) Stats(_ context.Context, flt ListFilter, now time.Time) (Stats, error) {
	var s Stats
	for _, p := range f.matching(flt, now) {
		s.Total++
		switch p.PrescriptionStatus {
		case StatusCompleted:
			s.Completed++
		case StatusAccepted:
			s.Pending++
		case StatusPreparing:
			s.Preparing++
		}
	}
	return s, nil
}

// -- Invoices --

type fakeInvoices struct{ db *memDB }

func (f *fakeInvoices) Insert(_ context.Context, inv *Invoice) (bool, error) {
	if f.db.numberClashes > 0 {
		f.db.numberClashes--
		return false, nil
	}
	if _, ok := f.db.invoices[inv.PrescriptionID]; ok {
		return false, nil
	}
	inv.ID = f.db.id()
	f.db.invoices[inv.PrescriptionID] = *inv
	return true, nil
}

func (f *fakeInvoices) GetByPrescription(_ context.Context, prescriptionID int64) (*Invoice, error) {
	inv, ok := f.db.invoices[prescriptionID]
	if !ok {
		return nil, apperr.NotFound("invoice", prescriptionID)
	}
	return &inv, nil
}

func (f *fakeInvoices) List(_ context.Context, limit, offset int) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range f.db.invoices {
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}
