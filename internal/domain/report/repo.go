package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Window bounds the "today" and "this month" figures of the overview.
type Window struct {
	DayStart   time.Time
	DayEnd     time.Time
	MonthStart time.Time
	MonthEnd   time.Time
}

type Repository interface {
	Overview(ctx context.Context, w Window, lowStockThreshold int) (*Overview, error)
	// RevenueByMonth sums invoice totals per "YYYY-MM" from the given time on.
	RevenueByMonth(ctx context.Context, from time.Time) (map[string]decimal.Decimal, error)
	TopMedicines(ctx context.Context, limit int) ([]TopMedicine, error)
	RecentPrescriptions(ctx context.Context, limit int) ([]RecentPrescription, error)
}
