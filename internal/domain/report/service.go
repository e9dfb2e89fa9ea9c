package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/medicine"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/cache"
)

// StockSource lists medicines running low.
type StockSource interface {
	ListLowStock(ctx context.Context, threshold int) ([]*medicine.Medicine, error)
}

const cachePrefix = "reports:"

type Options struct {
	CacheTTL time.Duration
	// LowStockThreshold is the level below which the monitor warns.
	LowStockThreshold int
}

type Service struct {
	repo   Repository
	stock  StockSource
	cache  cache.Cache
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, stock StockSource, c cache.Cache, opts Options, logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{repo: repo, stock: stock, cache: c, opts: opts, logger: logger, now: time.Now}
}

// cached serves key from the report cache, loading and storing it on a miss.
// Cache failures are logged and fall through to the database.
func cached[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	key = cachePrefix + key
	var v T
	hit, err := s.cache.GetJSON(ctx, key, &v)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("report cache read failed")
	} else if hit {
		return v, nil
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := s.cache.SetJSON(ctx, key, v, s.opts.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
	return v, nil
}

func (s *Service) Overview(ctx context.Context, actor auth.Actor) (*Overview, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	now := s.now()
	y, m, d := now.Date()
	w := Window{
		DayStart:   time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		MonthStart: time.Date(y, m, 1, 0, 0, 0, 0, now.Location()),
	}
	w.DayEnd = w.DayStart.AddDate(0, 0, 1)
	w.MonthEnd = w.MonthStart.AddDate(0, 1, 0)

	return cached(ctx, s, "overview:"+w.DayStart.Format("2006-01-02"), func(ctx context.Context) (*Overview, error) {
		return s.repo.Overview(ctx, w, OverviewLowStockThreshold)
	})
}

// MonthlyRevenue returns invoiced revenue for the last RevenueMonths calendar
// months, oldest first. Months without invoices report zero.
func (s *Service) MonthlyRevenue(ctx context.Context, actor auth.Actor) ([]MonthRevenue, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	now := s.now()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from := current.AddDate(0, -(RevenueMonths - 1), 0)

	return cached(ctx, s, "revenue:"+current.Format("2006-01"), func(ctx context.Context) ([]MonthRevenue, error) {
		totals, err := s.repo.RevenueByMonth(ctx, from)
		if err != nil {
			return nil, err
		}
		out := make([]MonthRevenue, 0, RevenueMonths)
		for i := 0; i < RevenueMonths; i++ {
			month := from.AddDate(0, i, 0)
			key := month.Format("2006-01")
			out = append(out, MonthRevenue{Month: key, Label: month.Format("Jan 2006"), Total: totals[key]})
		}
		return out, nil
	})
}

func (s *Service) TopMedicines(ctx context.Context, actor auth.Actor) ([]TopMedicine, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	return cached(ctx, s, "top-medicines", func(ctx context.Context) ([]TopMedicine, error) {
		out, err := s.repo.TopMedicines(ctx, TopMedicinesLimit)
		if out == nil && err == nil {
			out = []TopMedicine{}
		}
		return out, err
	})
}

// LowStock lists medicines under LowStockTableThreshold, lowest stock first.
// It reads live data so restocking shows up at once.
func (s *Service) LowStock(ctx context.Context, actor auth.Actor) ([]LowStockMedicine, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	meds, err := s.stock.ListLowStock(ctx, LowStockTableThreshold)
	if err != nil {
		return nil, err
	}
	out := make([]LowStockMedicine, 0, len(meds))
	for _, m := range meds {
		out = append(out, LowStockMedicine{
			ID:        m.ID,
			Name:      m.Name,
			Type:      m.Type,
			Stock:     m.Stock,
			Price:     m.Price,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Service) RecentPrescriptions(ctx context.Context, actor auth.Actor) ([]RecentPrescription, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	out, err := s.repo.RecentPrescriptions(ctx, RecentLimit)
	if out == nil && err == nil {
		out = []RecentPrescription{}
	}
	return out, err
}

// CheckLowStock is the scheduled low-stock monitor. It warns about every
// medicine below the configured threshold and drops cached reports so the
// dashboard reflects current stock.
func (s *Service) CheckLowStock(ctx context.Context) error {
	meds, err := s.stock.ListLowStock(ctx, s.opts.LowStockThreshold)
	if err != nil {
		return err
	}
	for _, m := range meds {
		s.logger.Warn().Int64("medicine_id", m.ID).Str("name", m.Name).Int("stock", m.Stock).
			Int("threshold", s.opts.LowStockThreshold).Msg("medicine stock low")
	}
	s.logger.Info().Int("count", len(meds)).Msg("low stock check complete")

	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.logger.Warn().Err(err).Msg("report cache invalidation failed")
	}
	return nil
}
