package visit

import "context"

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id int64) (*Visit, error)
	// Update overwrites the mutable columns of v. Concurrent writers are not
	// detected; the last write wins.
	Update(ctx context.Context, v *Visit) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Visit, int, error)
}

type StatusHistoryRepository interface {
	Create(ctx context.Context, h *StatusHistory) error
	ListByVisit(ctx context.Context, visitID int64) ([]*StatusHistory, error)
}
