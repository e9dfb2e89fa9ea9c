package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/domain/medicine"
	"github.com/clinic/clinic/internal/platform/auth"
)

// -- Mocks --

type mockReportRepo struct {
	overview    Overview
	revenue     map[string]decimal.Decimal
	top         []TopMedicine
	recent      []RecentPrescription
	calls       map[string]int
	lastWindow  Window
	revenueFrom time.Time
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{calls: make(map[string]int), revenue: make(map[string]decimal.Decimal)}
}

func (m *mockReportRepo) Overview(_ context.Context, w Window, _ int) (*Overview, error) {
	m.calls["overview"]++
	m.lastWindow = w
	o := m.overview
	return &o, nil
}

func (m *mockReportRepo) RevenueByMonth(_ context.Context, from time.Time) (map[string]decimal.Decimal, error) {
	m.calls["revenue"]++
	m.revenueFrom = from
	return m.revenue, nil
}

func (m *mockReportRepo) TopMedicines(_ context.Context, limit int) ([]TopMedicine, error) {
	m.calls["top"]++
	if len(m.top) > limit {
		return m.top[:limit], nil
	}
	return m.top, nil
}

func (m *mockReportRepo) RecentPrescriptions(_ context.Context, _ int) ([]RecentPrescription, error) {
	m.calls["recent"]++
	return m.recent, nil
}

type mockStock struct {
	meds []*medicine.Medicine
}

func (m *mockStock) ListLowStock(_ context.Context, threshold int) ([]*medicine.Medicine, error) {
	var out []*medicine.Medicine
	for _, med := range m.meds {
		if med.Stock < threshold {
			out = append(out, med)
		}
	}
	return out, nil
}

// memCache stores JSON like the Redis cache does.
type memCache struct {
	data    map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	c.deleted = append(c.deleted, prefix)
	return nil
}

var (
	admin  = auth.Actor{ID: 1, Role: auth.RoleAdmin}
	doctor = auth.Actor{ID: 2, Role: auth.RoleDoctor}
)

type fixture struct {
	repo  *mockReportRepo
	stock *mockStock
	cache *memCache
	svc   *Service
	logs  *bytes.Buffer
}

func newFixture() *fixture {
	f := &fixture{
		repo:  newMockReportRepo(),
		stock: &mockStock{},
		cache: newMemCache(),
		logs:  &bytes.Buffer{},
	}
	f.svc = NewService(f.repo, f.stock, f.cache, Options{CacheTTL: time.Minute, LowStockThreshold: 20}, zerolog.New(f.logs))
	f.svc.now = func() time.Time { return time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC) }
	return f
}

func TestOverview_Cached(t *testing.T) {
	f := newFixture()
	f.repo.overview = Overview{TotalPatients: 12, MonthlyRevenue: decimal.NewFromInt(166500)}

	first, err := f.svc.Overview(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.Overview(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.calls["overview"] != 1 {
		t.Errorf("expected one repository call, got %d", f.repo.calls["overview"])
	}
	if second.TotalPatients != 12 || !second.MonthlyRevenue.Equal(first.MonthlyRevenue) {
		t.Errorf("expected cached overview to match, got %+v", second)
	}

	w := f.repo.lastWindow
	if !w.DayStart.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)) || !w.DayEnd.Equal(time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected day window %v - %v", w.DayStart, w.DayEnd)
	}
	if !w.MonthStart.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) || !w.MonthEnd.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected month window %v - %v", w.MonthStart, w.MonthEnd)
	}
}

func TestOverview_RequiresAdmin(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Overview(context.Background(), doctor); err == nil {
		t.Error("expected doctor to be refused")
	}
}

func TestMonthlyRevenue_ZeroFilled(t *testing.T) {
	f := newFixture()
	f.repo.revenue["2024-12"] = decimal.NewFromInt(500000)
	f.repo.revenue["2025-03"] = decimal.NewFromInt(166500)

	got, err := f.svc.MonthlyRevenue(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.repo.revenueFrom.Equal(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected revenue from 2024-10-01, got %v", f.repo.revenueFrom)
	}
	wantMonths := []string{"2024-10", "2024-11", "2024-12", "2025-01", "2025-02", "2025-03"}
	if len(got) != len(wantMonths) {
		t.Fatalf("expected %d months, got %d", len(wantMonths), len(got))
	}
	for i, m := range wantMonths {
		if got[i].Month != m {
			t.Errorf("month %d: expected %s, got %s", i, m, got[i].Month)
		}
	}
	if !got[0].Total.IsZero() || !got[2].Total.Equal(decimal.NewFromInt(500000)) || !got[5].Total.Equal(decimal.NewFromInt(166500)) {
		t.Errorf("unexpected totals %+v", got)
	}
	if got[5].Label != "Mar 2025" {
		t.Errorf("expected label Mar 2025, got %s", got[5].Label)
	}
}

func TestTopMedicines_EmptyIsNotNull(t *testing.T) {
	f := newFixture()
	got, err := f.svc.TopMedicines(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestLowStock(t *testing.T) {
	f := newFixture()
	f.stock.meds = []*medicine.Medicine{
		{ID: 1, Name: "Paracetamol", Stock: 3},
		{ID: 2, Name: "Amoxicillin", Stock: 19},
		{ID: 3, Name: "Vitamin C", Stock: 20},
	}
	got, err := f.svc.LowStock(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Paracetamol" {
		t.Errorf("expected two medicines under %d, got %+v", LowStockTableThreshold, got)
	}
}

func TestRecentPrescriptions(t *testing.T) {
	f := newFixture()
	f.repo.recent = []RecentPrescription{{ID: 7, PatientName: "Siti"}}
	got, err := f.svc.RecentPrescriptions(context.Background(), admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 7 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestCheckLowStock(t *testing.T) {
	f := newFixture()
	f.stock.meds = []*medicine.Medicine{
		{ID: 1, Name: "Paracetamol", Stock: 3},
		{ID: 2, Name: "Ibuprofen", Stock: 50},
	}
	f.svc.Overview(context.Background(), admin)
	if len(f.cache.data) == 0 {
		t.Fatal("expected overview to be cached")
	}

	if err := f.svc.CheckLowStock(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logs := f.logs.String()
	if !strings.Contains(logs, `"name":"Paracetamol"`) || strings.Contains(logs, "Ibuprofen") {
		t.Errorf("unexpected log output %s", logs)
	}
	if len(f.cache.data) != 0 || len(f.cache.deleted) != 1 || f.cache.deleted[0] != cachePrefix {
		t.Errorf("expected report cache to be dropped, got %v", f.cache.data)
	}

	f.svc.Overview(context.Background(), admin)
	if f.repo.calls["overview"] != 2 {
		t.Errorf("expected overview to be reloaded, got %d calls", f.repo.calls["overview"])
	}
}
