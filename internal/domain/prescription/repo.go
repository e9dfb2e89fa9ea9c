package prescription

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	AddItem(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id int64) (*Prescription, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Prescription, error)
	// ListItems includes the medicine name, also for deleted medicines.
	ListItems(ctx context.Context, prescriptionID int64) ([]Item, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	// UpdateStatus sets the status and notes. resetPayment puts
	// payment_status back to waiting.
	UpdateStatus(ctx context.Context, id int64, status string, notes *string, resetPayment bool) error
	SaveTotals(ctx context.Context, id int64, fee, rate, total decimal.Decimal) error
	// MarkPaid records a successful payment of the stored total.
	MarkPaid(ctx context.Context, id int64, method string, notes *string, paidAt time.Time) error
	List(ctx context.Context, f ListFilter, now time.Time, limit, offset int) ([]ListRow, int, error)
	Stats(ctx context.Context, f ListFilter, now time.Time) (Stats, error)
}

type InvoiceRepository interface {
	// Insert stores inv unless its prescription or number is already
	// taken, and reports whether a row was written.
	Insert(ctx context.Context, inv *Invoice) (bool, error)
	GetByPrescription(ctx context.Context, prescriptionID int64) (*Invoice, error)
	List(ctx context.Context, limit, offset int) ([]*Invoice, int, error)
}
