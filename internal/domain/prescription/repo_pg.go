package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

// -- Prescription Repository --

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) Repository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const prescriptionCols = `p.id, p.patient_id, p.doctor_id, p.symptom, p.prescription_status, p.payment_status,
	p.consultation_fee, p.ppn_rate_applied, p.total_amount, p.paid_amount, p.payment_method,
	p.notes_pharmacist, p.submitted_at, p.paid_at, p.created_at, p.updated_at`

func prescriptionDest(p *Prescription) []interface{} {
	return []interface{}{
		&p.ID, &p.PatientID, &p.DoctorID, &p.Symptom, &p.PrescriptionStatus, &p.PaymentStatus,
		&p.ConsultationFee, &p.PPNRateApplied, &p.TotalAmount, &p.PaidAmount, &p.PaymentMethod,
		&p.NotesPharmacist, &p.SubmittedAt, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	}
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (patient_id, doctor_id, symptom, prescription_status, payment_status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.PatientID, p.DoctorID, p.Symptom, p.PrescriptionStatus, p.PaymentStatus, p.SubmittedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepoPG) AddItem(ctx context.Context, it *Item) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription_items (prescription_id, medicine_id, medicine_dosage_prescribed,
			medicine_amount_prescribed, medicine_price_at_prescription)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		it.PrescriptionID, it.MedicineID, it.Dosage, it.Amount, it.Price,
	).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert prescription item: %w", err)
	}
	return nil
}

func (r *prescriptionRepoPG) get(ctx context.Context, id int64, lock bool) (*Prescription, error) {
	q := `SELECT ` + prescriptionCols + ` FROM prescriptions p WHERE p.id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var p Prescription
	err := r.conn(ctx).QueryRow(ctx, q, id).Scan(prescriptionDest(&p)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("prescription", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select prescription: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id int64) (*Prescription, error) {
	return r.get(ctx, id, false)
}

func (r *prescriptionRepoPG) GetForUpdate(ctx context.Context, id int64) (*Prescription, error) {
	return r.get(ctx, id, true)
}

func (r *prescriptionRepoPG) ListItems(ctx context.Context, prescriptionID int64) ([]Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT i.id, i.prescription_id, i.medicine_id, m.name, i.medicine_dosage_prescribed,
			i.medicine_amount_prescribed, i.medicine_price_at_prescription, i.created_at
		FROM prescription_items i
		JOIN medicines m ON m.id = i.medicine_id
		WHERE i.prescription_id = $1
		ORDER BY i.id`, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("list prescription items: %w", err)
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.MedicineID, &it.MedicineName, &it.Dosage,
			&it.Amount, &it.Price, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *prescriptionRepoPG) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	var d Detail
	dest := append(prescriptionDest(&d.Prescription), &d.PatientName, &d.PatientDateOfBirth, &d.DoctorName)
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT `+prescriptionCols+`, pt.name, pt.date_of_birth, u.name
		FROM prescriptions p
		JOIN patients pt ON pt.id = p.patient_id
		JOIN users u ON u.id = p.doctor_id
		WHERE p.id = $1`, id).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("prescription", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select prescription detail: %w", err)
	}
	if d.Items, err = r.ListItems(ctx, id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *prescriptionRepoPG) exec(ctx context.Context, id int64, op, q string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("prescription", id)
	}
	return nil
}

func (r *prescriptionRepoPG) UpdateStatus(ctx context.Context, id int64, status string, notes *string, resetPayment bool) error {
	return r.exec(ctx, id, "update prescription status", `
		UPDATE prescriptions
		SET prescription_status = $2,
			notes_pharmacist = $3,
			payment_status = CASE WHEN $4 THEN 'waiting' ELSE payment_status END,
			updated_at = NOW()
		WHERE id = $1`, id, status, notes, resetPayment)
}

func (r *prescriptionRepoPG) SaveTotals(ctx context.Context, id int64, fee, rate, total decimal.Decimal) error {
	return r.exec(ctx, id, "save prescription totals", `
		UPDATE prescriptions
		SET consultation_fee = $2, ppn_rate_applied = $3, total_amount = $4, updated_at = NOW()
		WHERE id = $1`, id, fee, rate, total)
}

func (r *prescriptionRepoPG) MarkPaid(ctx context.Context, id int64, method string, notes *string, paidAt time.Time) error {
	return r.exec(ctx, id, "mark prescription paid", `
		UPDATE prescriptions
		SET payment_status = 'success',
			payment_method = $2,
			paid_amount = total_amount,
			paid_at = $3,
			notes_pharmacist = $4,
			updated_at = NOW()
		WHERE id = $1`, id, method, paidAt, notes)
}

// queueWhere renders the pharmacist queue filter. Arguments are appended to
// args and referenced by position.
func queueWhere(f ListFilter, now time.Time, args []interface{}) (string, []interface{}) {
	var conds []string
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Search != "" {
		add("pt.name ILIKE $%d", likePattern(f.Search))
	}
	if f.Status != "" && f.Status != FilterAll {
		add("p.prescription_status = $%d", f.Status)
	}
	if from, ok := rangeStart(f.DateRange, now); ok {
		add("p.submitted_at >= $%d", from)
		if f.DateRange == RangeToday {
			add("p.submitted_at < $%d", from.AddDate(0, 0, 1))
		}
	}
	if f.Doctor != "" && f.Doctor != FilterAll {
		add("u.name = $%d", f.Doctor)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const queueFrom = `
		FROM prescriptions p
		JOIN patients pt ON pt.id = p.patient_id
		JOIN users u ON u.id = p.doctor_id`

func (r *prescriptionRepoPG) List(ctx context.Context, f ListFilter, now time.Time, limit, offset int) ([]ListRow, int, error) {
	where, args := queueWhere(f, now, nil)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+queueFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count prescriptions: %w", err)
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`
		SELECT p.id, p.patient_id, pt.name, pt.date_of_birth, u.name, p.symptom,
			COALESCE((
				SELECT array_agg(m.name || ', ' || i.medicine_dosage_prescribed || ', ' || i.medicine_amount_prescribed ORDER BY i.id)
				FROM prescription_items i
				JOIN medicines m ON m.id = i.medicine_id
				WHERE i.prescription_id = p.id
			), '{}'),
			p.prescription_status, p.payment_status, p.total_amount, p.submitted_at
		%s%s
		ORDER BY p.submitted_at DESC, p.id DESC
		LIMIT $%d OFFSET $%d`, queueFrom, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()
	var items []ListRow
	for rows.Next() {
		var row ListRow
		if err := rows.Scan(&row.ID, &row.PatientID, &row.PatientName, &row.PatientDateOfBirth, &row.DoctorName,
			&row.Symptom, &row.Medications, &row.PrescriptionStatus, &row.PaymentStatus, &row.TotalAmount,
			&row.SubmittedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, row)
	}
	return items, total, rows.Err()
}

func (r *prescriptionRepoPG) Stats(ctx context.Context, f ListFilter, now time.Time) (Stats, error) {
	where, args := queueWhere(f, now, nil)
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE p.prescription_status = 'completed'),
			COUNT(*) FILTER (WHERE p.prescription_status = 'accepted'),
			COUNT(*) FILTER (WHERE p.prescription_status = 'preparing')`+queueFrom+where, args...,
	).Scan(&s.Total, &s.Completed, &s.Pending, &s.Preparing)
	if err != nil {
		return Stats{}, fmt.Errorf("prescription stats: %w", err)
	}
	return s, nil
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// -- Invoice Repository --

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepoPG{pool: pool}
}

func (r *invoiceRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const invoiceCols = `id, prescription_id, invoice_number, issue_date, subtotal_medicines, consultation_fee,
	ppn_amount, grand_total, payment_method, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PrescriptionID, &inv.InvoiceNumber, &inv.IssueDate, &inv.SubtotalMedicines,
		&inv.ConsultationFee, &inv.PPNAmount, &inv.GrandTotal, &inv.PaymentMethod, &inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

func (r *invoiceRepoPG) Insert(ctx context.Context, inv *Invoice) (bool, error) {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoices (prescription_id, invoice_number, issue_date, subtotal_medicines,
			consultation_fee, ppn_amount, grand_total, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at`,
		inv.PrescriptionID, inv.InvoiceNumber, inv.IssueDate, inv.SubtotalMedicines,
		inv.ConsultationFee, inv.PPNAmount, inv.GrandTotal, inv.PaymentMethod,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert invoice: %w", err)
	}
	return true, nil
}

func (r *invoiceRepoPG) GetByPrescription(ctx context.Context, prescriptionID int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE prescription_id = $1`, prescriptionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("invoice", prescriptionID)
	}
	if err != nil {
		return nil, fmt.Errorf("select invoice: %w", err)
	}
	return inv, nil
}

func (r *invoiceRepoPG) List(ctx context.Context, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+invoiceCols+` FROM invoices ORDER BY issue_date DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}
