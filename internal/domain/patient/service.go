package patient

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/clinic/clinic/internal/platform/auth"
)

const (
	// MinSearchLength is the shortest query the doctor's lookup acts on.
	MinSearchLength = 2
	SearchLimit     = 10
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

// Search returns up to SearchLimit patients whose name contains q. Queries
// shorter than MinSearchLength return an empty list without touching the
// database.
func (s *Service) Search(ctx context.Context, actor auth.Actor, q string) ([]SearchResult, error) {
	if err := actor.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinSearchLength {
		return []SearchResult{}, nil
	}
	found, err := s.patients.SearchByName(ctx, q, SearchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(found))
	for _, p := range found {
		out = append(out, SearchResult{ID: p.ID, Name: p.Name, DateOfBirth: p.DateOfBirth})
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, q string, limit, offset int) ([]*Patient, int, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, 0, err
	}
	return s.patients.List(ctx, strings.TrimSpace(q), limit, offset)
}

// GetRecord returns the patient with their prescription history.
func (s *Service) GetRecord(ctx context.Context, actor auth.Actor, id int64) (*Record, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.patients.ListPrescriptions(ctx, id)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []PrescriptionSummary{}
	}
	return &Record{Patient: *p, Prescriptions: history}, nil
}
