package lab

import "context"

type TestRepository interface {
	ListActive(ctx context.Context) ([]*Test, error)
	// GetByIDs returns the active tests among ids; missing or inactive ids
	// are simply absent from the result.
	GetByIDs(ctx context.Context, ids []int64) ([]*Test, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByVisit(ctx context.Context, visitID int64) ([]*Order, error)
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) error
}
