package medicine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/validation"
)

// SearchLimit caps the prescribing form's medicine lookup.
const SearchLimit = 20

type Service struct {
	medicines Repository
	logger    zerolog.Logger
}

func NewService(medicines Repository, logger zerolog.Logger) *Service {
	return &Service{medicines: medicines, logger: logger}
}

func normalize(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Type == "" {
		in.Type = DefaultType
	}
	dosages := in.Dosages[:0]
	for _, d := range in.Dosages {
		if d = strings.TrimSpace(d); d != "" {
			dosages = append(dosages, d)
		}
	}
	in.Dosages = dosages
	if err := validation.Struct(*in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return apperr.Validation("price", "must be at least 0")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (*Medicine, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := normalize(&in); err != nil {
		return nil, err
	}
	m := &Medicine{
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		Dosages:     in.Dosages,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
	}
	if err := s.medicines.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("medicine_id", m.ID).Str("name", m.Name).Int("stock", m.Stock).Msg("medicine created")
	return m, nil
}

// Update replaces the catalog entry. Existing prescription items keep the
// price they were created with.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id int64, in Input) (*Medicine, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := normalize(&in); err != nil {
		return nil, err
	}
	m, err := s.medicines.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPrice := m.Price
	m.Name = in.Name
	m.Type = in.Type
	m.Description = in.Description
	m.Dosages = in.Dosages
	m.Price = in.Price.Round(2)
	m.Stock = in.Stock
	if err := s.medicines.Update(ctx, m); err != nil {
		return nil, err
	}
	if !oldPrice.Equal(m.Price) {
		s.logger.Info().Int64("medicine_id", id).Str("old_price", oldPrice.StringFixed(2)).
			Str("new_price", m.Price.StringFixed(2)).Msg("medicine price changed")
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id int64) error {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return err
	}
	if err := s.medicines.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("medicine_id", id).Msg("medicine deleted")
	return nil
}

func (s *Service) Restore(ctx context.Context, actor auth.Actor, id int64) (*Medicine, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.medicines.Restore(ctx, id); err != nil {
		return nil, err
	}
	return s.medicines.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id int64) (*Medicine, error) {
	if err := actor.Require(auth.RoleDoctor, auth.RolePharmacist); err != nil {
		return nil, err
	}
	return s.medicines.GetByID(ctx, id)
}

// List is the catalog listing. Only admins may include deleted rows.
func (s *Service) List(ctx context.Context, actor auth.Actor, f ListFilter, limit, offset int) ([]*Medicine, int, error) {
	if err := actor.Require(auth.RoleDoctor, auth.RolePharmacist); err != nil {
		return nil, 0, err
	}
	if f.Trashed != TrashedWithout && actor.Role != auth.RoleAdmin {
		f.Trashed = TrashedWithout
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.medicines.List(ctx, f, limit, offset)
}

// Search matches medicine names for the prescribing form, ordered by name.
func (s *Service) Search(ctx context.Context, actor auth.Actor, q string) ([]SearchResult, error) {
	if err := actor.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	found, err := s.medicines.Search(ctx, strings.TrimSpace(q), SearchLimit)
	if err != nil {
		return nil, err
	}
	return toResults(found), nil
}

// ListAvailable returns medicines that are in stock.
func (s *Service) ListAvailable(ctx context.Context, actor auth.Actor) ([]SearchResult, error) {
	if err := actor.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	found, err := s.medicines.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return toResults(found), nil
}

func toResults(ms []*Medicine) []SearchResult {
	out := make([]SearchResult, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ToSearchResult())
	}
	return out
}
