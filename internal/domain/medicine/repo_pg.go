package medicine

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

const medCols = `id, name, type, description, dosages, price, stock, created_at, updated_at, deleted_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Type, &m.Description, &m.Dosages, &m.Price, &m.Stock,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	return &m, err
}

func collect(rows pgx.Rows) ([]*Medicine, error) {
	defer rows.Close()
	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medicines (name, type, description, dosages, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		m.Name, m.Type, m.Description, m.Dosages, m.Price, m.Stock,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

func (r *repoPG) get(ctx context.Context, id int64, withDeleted bool) (*Medicine, error) {
	q := `SELECT ` + medCols + ` FROM medicines WHERE id = $1`
	if !withDeleted {
		q += ` AND deleted_at IS NULL`
	}
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("medicine", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select medicine: %w", err)
	}
	return m, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Medicine, error) {
	return r.get(ctx, id, false)
}

func (r *repoPG) GetByIDWithDeleted(ctx context.Context, id int64) (*Medicine, error) {
	return r.get(ctx, id, true)
}

// Update rewrites catalog fields. Prices already copied onto prescription
// items are unaffected.
func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medicines
		SET name = $2, type = $3, description = $4, dosages = $5, price = $6, stock = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`,
		m.ID, m.Name, m.Type, m.Description, m.Dosages, m.Price, m.Stock,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("medicine", m.ID)
	}
	if err != nil {
		return fmt.Errorf("update medicine: %w", err)
	}
	return nil
}

func (r *repoPG) setDeleted(ctx context.Context, id int64, deleted bool) error {
	q := `UPDATE medicines SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	if !deleted {
		q = `UPDATE medicines SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`
	}
	tag, err := r.conn(ctx).Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("set medicine deleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("medicine", id)
	}
	return nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, true)
}

func (r *repoPG) Restore(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, false)
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Medicine, int, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	switch f.Trashed {
	case TrashedOnly:
		conds = append(conds, "deleted_at IS NOT NULL")
	case TrashedWith:
	default:
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.Search != "" {
		add("name ILIKE $%d", likePattern(f.Search))
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.LowStock {
		add("stock <= $%d", LowStockListThreshold)
	}
	if f.OutOfStock {
		conds = append(conds, "stock = 0")
	}
	if f.MinPrice.Valid {
		add("price >= $%d", f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		add("price <= $%d", f.MaxPrice.Decimal)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medicines`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medicines: %w", err)
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT %s FROM medicines%s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		medCols, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list medicines: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) Search(ctx context.Context, q string, limit int) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+medCols+` FROM medicines
		WHERE deleted_at IS NULL AND name ILIKE $1
		ORDER BY name
		LIMIT $2`, likePattern(q), limit)
	if err != nil {
		return nil, fmt.Errorf("search medicines: %w", err)
	}
	return collect(rows)
}

func (r *repoPG) ListAvailable(ctx context.Context) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+medCols+` FROM medicines
		WHERE deleted_at IS NULL AND stock > 0
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list available medicines: %w", err)
	}
	return collect(rows)
}

// DecrementStock checks and updates stock in a single statement.
func (r *repoPG) DecrementStock(ctx context.Context, id int64, amount int) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicines
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2 AND deleted_at IS NULL`, id, amount)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ListLowStock(ctx context.Context, threshold int) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+medCols+` FROM medicines
		WHERE deleted_at IS NULL AND stock < $1
		ORDER BY stock, name`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return collect(rows)
}
