package appointment

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

const requestCols = `id, patient_id, preferred_at, reason, status, decided_by, decision_note, visit_id, created_at, updated_at`

func (r *repoPG) scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.PatientID, &req.PreferredAt, &req.Reason, &req.Status,
		&req.DecidedBy, &req.DecisionNote, &req.VisitID, &req.CreatedAt, &req.UpdatedAt)
	return &req, err
}

func (r *repoPG) Create(ctx context.Context, req *Request) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointment_request (patient_id, preferred_at, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		req.PatientID, req.PreferredAt, req.Reason, req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment request: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Request, error) {
	req, err := r.scanRequest(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+requestCols+` FROM appointment_request WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrRequestNotFound, id)
		}
		return nil, fmt.Errorf("get appointment request %d: %w", id, err)
	}
	return req, nil
}

func (r *repoPG) Update(ctx context.Context, req *Request) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointment_request
		SET status = $2, decided_by = $3, decision_note = $4, visit_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		req.ID, req.Status, req.DecidedBy, req.DecisionNote, req.VisitID,
	).Scan(&req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrRequestNotFound, req.ID)
		}
		return fmt.Errorf("update appointment request %d: %w", req.ID, err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Request, int, error) {
	q := db.Conn(ctx, r.pool)
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.PatientID != "" {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM appointment_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointment requests: %w", err)
	}

	query := `SELECT ` + requestCols + ` FROM appointment_request` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointment requests: %w", err)
	}
	defer rows.Close()
	var items []*Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}
