package appointment

import "context"

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id int64) (*Request, error)
	Update(ctx context.Context, r *Request) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Request, int, error)
}
