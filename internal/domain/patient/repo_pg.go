package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, name, date_of_birth, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

// likePattern escapes LIKE metacharacters so user input matches literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (name, date_of_birth)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		p.Name, p.DateOfBirth,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("patient", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select patient: %w", err)
	}
	return p, nil
}

func (r *repoPG) SearchByName(ctx context.Context, q string, limit int) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT $2`, likePattern(q), limit)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) List(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	where := ""
	args := []interface{}{}
	if q != "" {
		where = ` WHERE name ILIKE $1`
		args = append(args, likePattern(q))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT %s FROM patients%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		patientCols, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListPrescriptions(ctx context.Context, patientID int64) ([]PrescriptionSummary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, u.name, p.symptom, p.prescription_status, p.payment_status,
			p.total_amount, p.submitted_at
		FROM prescriptions p
		JOIN users u ON u.id = p.doctor_id
		WHERE p.patient_id = $1
		ORDER BY p.submitted_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient prescriptions: %w", err)
	}
	defer rows.Close()
	var items []PrescriptionSummary
	for rows.Next() {
		var s PrescriptionSummary
		if err := rows.Scan(&s.ID, &s.DoctorName, &s.Symptom, &s.PrescriptionStatus,
			&s.PaymentStatus, &s.TotalAmount, &s.SubmittedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
