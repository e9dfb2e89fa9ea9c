package staff

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/validation"
)

type Service struct {
	users  Repository
	logger zerolog.Logger
}

func NewService(users Repository, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

func (s *Service) CreateUser(ctx context.Context, actor auth.Actor, in CreateInput) (*User, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	u := &User{Username: in.Username, Name: in.Name, Role: in.Role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", u.ID).Str("role", u.Role).Int64("by", actor.ID).Msg("staff user created")
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, actor auth.Actor, id int64) (*User, error) {
	if err := actor.Require(auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// ListDoctors returns every doctor account.
func (s *Service) ListDoctors(ctx context.Context, actor auth.Actor) ([]*User, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	return s.users.ListByRole(ctx, auth.RoleDoctor)
}

// DoctorFilterNames returns the names offered by the pharmacist queue's
// doctor filter.
func (s *Service) DoctorFilterNames(ctx context.Context, actor auth.Actor) ([]string, error) {
	if err := actor.Require(auth.RolePharmacist); err != nil {
		return nil, err
	}
	return s.users.ListPrescribingDoctorNames(ctx)
}
