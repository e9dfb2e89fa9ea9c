package patient

import "context"

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// SearchByName matches name case-insensitively anywhere in the string.
	SearchByName(ctx context.Context, q string, limit int) ([]*Patient, error)
	List(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error)
	ListPrescriptions(ctx context.Context, patientID int64) ([]PrescriptionSummary, error)
}
