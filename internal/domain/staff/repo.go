package staff

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListByRole(ctx context.Context, role string) ([]*User, error)
	// ListPrescribingDoctorNames returns the sorted distinct names of doctors
	// who have written at least one prescription.
	ListPrescribingDoctorNames(ctx context.Context) ([]string, error)
}
