package medicine

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// -- Mock Repository --

type mockMedicineRepo struct {
	items  map[int64]*Medicine
	nextID int64
}

func newMockMedicineRepo() *mockMedicineRepo {
	return &mockMedicineRepo{items: make(map[int64]*Medicine)}
}

func (m *mockMedicineRepo) Create(_ context.Context, med *Medicine) error {
	m.nextID++
	med.ID = m.nextID
	med.CreatedAt = time.Now()
	med.UpdatedAt = med.CreatedAt
	cp := *med
	m.items[med.ID] = &cp
	return nil
}

func (m *mockMedicineRepo) GetByID(_ context.Context, id int64) (*Medicine, error) {
	med, ok := m.items[id]
	if !ok || med.DeletedAt != nil {
		return nil, apperr.NotFound("medicine", id)
	}
	cp := *med
	return &cp, nil
}

func (m *mockMedicineRepo) GetByIDWithDeleted(_ context.Context, id int64) (*Medicine, error) {
	med, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("medicine", id)
	}
	cp := *med
	return &cp, nil
}

func (m *mockMedicineRepo) Update(_ context.Context, med *Medicine) error {
	cur, ok := m.items[med.ID]
	if !ok || cur.DeletedAt != nil {
		return apperr.NotFound("medicine", med.ID)
	}
	cp := *med
	m.items[med.ID] = &cp
	return nil
}

func (m *mockMedicineRepo) SoftDelete(_ context.Context, id int64) error {
	med, ok := m.items[id]
	if !ok || med.DeletedAt != nil {
		return apperr.NotFound("medicine", id)
	}
	now := time.Now()
	med.DeletedAt = &now
	return nil
}

func (m *mockMedicineRepo) Restore(_ context.Context, id int64) error {
	med, ok := m.items[id]
	if !ok || med.DeletedAt == nil {
		return apperr.NotFound("medicine", id)
	}
	med.DeletedAt = nil
	return nil
}

func (m *mockMedicineRepo) sorted(keep func(*Medicine) bool) []*Medicine {
	var out []*Medicine
	for _, med := range m.items {
		if keep(med) {
			cp := *med
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockMedicineRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Medicine, int, error) {
	out := m.sorted(func(med *Medicine) bool {
		switch f.Trashed {
		case TrashedOnly:
			if med.DeletedAt == nil {
				return false
			}
		case TrashedWithout:
			if med.DeletedAt != nil {
				return false
			}
		}
		if f.Type != "" && med.Type != f.Type {
			return false
		}
		if f.LowStock && med.Stock > LowStockListThreshold {
			return false
		}
		if f.OutOfStock && med.Stock != 0 {
			return false
		}
		return strings.Contains(strings.ToLower(med.Name), strings.ToLower(f.Search))
	})
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	if end := offset + limit; end < total {
		out = out[offset:end]
	} else {
		out = out[offset:]
	}
	return out, total, nil
}

func (m *mockMedicineRepo) Search(_ context.Context, q string, limit int) ([]*Medicine, error) {
	out := m.sorted(func(med *Medicine) bool {
		return med.DeletedAt == nil && strings.Contains(strings.ToLower(med.Name), strings.ToLower(q))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMedicineRepo) ListAvailable(_ context.Context) ([]*Medicine, error) {
	return m.sorted(func(med *Medicine) bool { return med.DeletedAt == nil && med.Stock > 0 }), nil
}

func (m *mockMedicineRepo) DecrementStock(_ context.Context, id int64, amount int) (bool, error) {
	med, ok := m.items[id]
	if !ok || med.DeletedAt != nil || med.Stock < amount {
		return false, nil
	}
	med.Stock -= amount
	return true, nil
}

func (m *mockMedicineRepo) ListLowStock(_ context.Context, threshold int) ([]*Medicine, error) {
	out := m.sorted(func(med *Medicine) bool { return med.DeletedAt == nil && med.Stock < threshold })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

var (
	admin      = auth.Actor{ID: 1, Role: auth.RoleAdmin}
	doctor     = auth.Actor{ID: 2, Role: auth.RoleDoctor}
	pharmacist = auth.Actor{ID: 3, Role: auth.RolePharmacist}
)

func newTestService() (*Service, *mockMedicineRepo) {
	repo := newMockMedicineRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func validInput() Input {
	return Input{
		Name:    "Paracetamol",
		Dosages: []string{"500mg", "250mg"},
		Price:   decimal.NewFromInt(5000),
		Stock:   100,
	}
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	m, err := svc.Create(context.Background(), admin, validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID == 0 {
		t.Error("expected ID to be assigned")
	}
	if m.Type != DefaultType {
		t.Errorf("expected default type %q, got %q", DefaultType, m.Type)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	cases := map[string]func(*Input){
		"name":    func(in *Input) { in.Name = "  " },
		"dosages": func(in *Input) { in.Dosages = []string{" "} },
		"stock":   func(in *Input) { in.Stock = -1 },
		"type":    func(in *Input) { in.Type = "gas" },
		"price":   func(in *Input) { in.Price = decimal.NewFromInt(-1) },
	}
	for field, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(context.Background(), admin, in)
		if !apperr.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", field, err)
		}
	}
}

func TestCreate_RequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), pharmacist, validInput()); err == nil {
		t.Error("expected pharmacist to be refused")
	}
}

func TestUpdate(t *testing.T) {
	svc, repo := newTestService()
	m, _ := svc.Create(context.Background(), admin, validInput())

	in := validInput()
	in.Price = decimal.RequireFromString("7500.505")
	updated, err := svc.Update(context.Background(), admin, m.ID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Price.Equal(decimal.RequireFromString("7500.51")) {
		t.Errorf("expected price rounded to 7500.51, got %s", updated.Price)
	}
	if !repo.items[m.ID].Price.Equal(updated.Price) {
		t.Error("expected price to be persisted")
	}

	if _, err := svc.Update(context.Background(), admin, 99, in); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteAndRestore(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	m, _ := svc.Create(ctx, admin, validInput())

	if err := svc.Delete(ctx, admin, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, doctor, m.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected deleted medicine hidden, got %v", err)
	}
	if err := svc.Delete(ctx, admin, m.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected second delete to be not found, got %v", err)
	}

	restored, err := svc.Restore(ctx, admin, m.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.IsDeleted() {
		t.Error("expected medicine to be live after restore")
	}
}

func TestList_TrashedOnlyForAdmin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	m, _ := svc.Create(ctx, admin, validInput())
	svc.Delete(ctx, admin, m.ID)

	items, _, err := svc.List(ctx, pharmacist, ListFilter{Trashed: TrashedOnly}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected pharmacist to see no deleted rows, got %d", len(items))
	}

	items, _, _ = svc.List(ctx, admin, ListFilter{Trashed: TrashedOnly}, 20, 0)
	if len(items) != 1 {
		t.Errorf("expected admin to see the deleted row, got %d", len(items))
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, name := range []string{"Amoxicillin", "Ambroxol", "Cetirizine"} {
		in := validInput()
		in.Name = name
		if name == "Ambroxol" {
			in.Stock = 0
		}
		svc.Create(ctx, admin, in)
	}

	got, err := svc.Search(ctx, doctor, "am")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Ambroxol" || got[1].Name != "Amoxicillin" {
		t.Fatalf("expected name-ordered matches, got %+v", got)
	}
	if got[0].IsAvailable || !got[1].IsAvailable {
		t.Error("expected is_available to follow stock")
	}

	if _, err := svc.Search(ctx, pharmacist, "am"); err == nil {
		t.Error("expected pharmacist to be refused the prescribing lookup")
	}
}

func TestSearch_Limit(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for i := 0; i < SearchLimit+5; i++ {
		in := validInput()
		in.Name = "Vitamin " + string(rune('A'+i))
		svc.Create(ctx, admin, in)
	}
	got, _ := svc.Search(ctx, doctor, "")
	if len(got) != SearchLimit {
		t.Errorf("expected %d results, got %d", SearchLimit, len(got))
	}
}

func TestListAvailable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	in := validInput()
	svc.Create(ctx, admin, in)
	in.Name = "Out"
	in.Stock = 0
	svc.Create(ctx, admin, in)

	got, err := svc.ListAvailable(ctx, doctor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Paracetamol" {
		t.Errorf("expected only in-stock medicine, got %+v", got)
	}
}
