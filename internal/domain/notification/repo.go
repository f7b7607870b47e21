package notification

import "context"

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	// Feed returns the newest limit notifications for a together with the
	// number of unread notifications a has overall.
	Feed(ctx context.Context, a Audience, limit int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, a Audience) (int64, error)
}
