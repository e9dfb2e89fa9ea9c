package medicine

import "context"

type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	// GetByID excludes soft-deleted medicines.
	GetByID(ctx context.Context, id int64) (*Medicine, error)
	GetByIDWithDeleted(ctx context.Context, id int64) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Medicine, int, error)
	Search(ctx context.Context, q string, limit int) ([]*Medicine, error)
	ListAvailable(ctx context.Context) ([]*Medicine, error)
	// DecrementStock subtracts amount only when enough stock remains.
	// It reports whether a row was updated.
	DecrementStock(ctx context.Context, id int64, amount int) (bool, error)
	// ListLowStock returns live medicines with stock below threshold, lowest first.
	ListLowStock(ctx context.Context, threshold int) ([]*Medicine, error)
}
