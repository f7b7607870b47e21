package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicportal/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const notificationCols = `id, recipient_role, recipient_id, type, title, message, related_id, structured_data, is_read, created_at`

// audienceClause matches rows for a role, either shared or addressed to the user.
const audienceClause = `recipient_role = $1 AND (recipient_id IS NULL OR recipient_id = $2)`

func (r *repoPG) scan(row pgx.Row) (*Notification, error) {
	var n Notification
	var data []byte
	err := row.Scan(&n.ID, &n.RecipientRole, &n.RecipientID, &n.Type, &n.Title, &n.Message,
		&n.RelatedID, &data, &n.Read, &n.CreatedAt)
	if len(data) > 0 {
		n.StructuredData = data
	}
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	var data []byte
	if len(n.StructuredData) > 0 {
		data = n.StructuredData
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO notification (recipient_role, recipient_id, type, title, message, related_id, structured_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		n.RecipientRole, n.RecipientID, n.Type, n.Title, n.Message, n.RelatedID, data,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+notificationCols+` FROM notification WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotificationNotFound, id)
		}
		return nil, fmt.Errorf("get notification %d: %w", id, err)
	}
	return n, nil
}

func (r *repoPG) Feed(ctx context.Context, a Audience, limit int) ([]*Notification, int, error) {
	q := db.Conn(ctx, r.pool)

	var unread int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE `+audienceClause+` AND NOT is_read`,
		a.Role, a.UserID).Scan(&unread); err != nil {
		return nil, 0, fmt.Errorf("count unread notifications: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT `+notificationCols+` FROM notification WHERE `+audienceClause+`
		ORDER BY created_at DESC, id DESC LIMIT $3`, a.Role, a.UserID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, unread, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE notification SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrNotificationNotFound, id)
	}
	return nil
}

func (r *repoPG) MarkAllRead(ctx context.Context, a Audience) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE notification SET is_read = TRUE WHERE `+audienceClause+` AND NOT is_read`, a.Role, a.UserID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
