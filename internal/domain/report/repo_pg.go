package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) Overview(ctx context.Context, w Window, lowStockThreshold int) (*Overview, error) {
	var o Overview
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM prescriptions WHERE prescription_status <> 'completed'),
			(SELECT COUNT(*) FROM medicines WHERE deleted_at IS NULL AND stock < $1),
			(SELECT COALESCE(SUM(grand_total), 0) FROM invoices WHERE created_at >= $2 AND created_at < $3),
			(SELECT COUNT(*) FROM prescriptions WHERE created_at >= $4 AND created_at < $5),
			(SELECT COUNT(*) FROM prescriptions WHERE payment_status = 'waiting')`,
		lowStockThreshold, w.MonthStart, w.MonthEnd, w.DayStart, w.DayEnd,
	).Scan(&o.TotalPatients, &o.ActivePrescriptions, &o.LowStockMedicines, &o.MonthlyRevenue,
		&o.TodaysPrescriptions, &o.PendingPayments)
	if err != nil {
		return nil, fmt.Errorf("report overview: %w", err)
	}
	return &o, nil
}

func (r *repoPG) RevenueByMonth(ctx context.Context, from time.Time) (map[string]decimal.Decimal, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, SUM(grand_total)
		FROM invoices
		WHERE created_at >= $1
		GROUP BY month`, from)
	if err != nil {
		return nil, fmt.Errorf("revenue by month: %w", err)
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var month string
		var total decimal.Decimal
		if err := rows.Scan(&month, &total); err != nil {
			return nil, err
		}
		out[month] = total
	}
	return out, rows.Err()
}

func (r *repoPG) TopMedicines(ctx context.Context, limit int) ([]TopMedicine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT i.medicine_id, m.name, SUM(i.medicine_amount_prescribed) AS total_quantity
		FROM prescription_items i
		JOIN medicines m ON m.id = i.medicine_id
		GROUP BY i.medicine_id, m.name
		ORDER BY total_quantity DESC, m.name
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top medicines: %w", err)
	}
	defer rows.Close()
	var out []TopMedicine
	for rows.Next() {
		var t TopMedicine
		if err := rows.Scan(&t.MedicineID, &t.Name, &t.TotalQuantity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repoPG) RecentPrescriptions(ctx context.Context, limit int) ([]RecentPrescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, pt.name, u.name, p.symptom, p.prescription_status, p.payment_status,
			p.total_amount, p.created_at
		FROM prescriptions p
		JOIN patients pt ON pt.id = p.patient_id
		JOIN users u ON u.id = p.doctor_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent prescriptions: %w", err)
	}
	defer rows.Close()
	var out []RecentPrescription
	for rows.Next() {
		var rp RecentPrescription
		if err := rows.Scan(&rp.ID, &rp.PatientName, &rp.DoctorName, &rp.Symptom, &rp.PrescriptionStatus,
			&rp.PaymentStatus, &rp.TotalAmount, &rp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}
