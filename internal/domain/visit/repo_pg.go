package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicportal/clinic/internal/platform/db"
)

// =========== Visit Repository ===========

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &visitRepoPG{pool: pool}
}

const visitCols = `id, patient_id, staff_id, stage, status, scheduled_at, purpose,
	transfer_required, transfer_reason, follow_up_of, appointment_request_id,
	vitals, findings, diagnosis, plan, created_at, updated_at`

func (r *visitRepoPG) scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.StaffID, &v.Stage, &v.Status, &v.ScheduledAt, &v.Purpose,
		&v.TransferRequired, &v.TransferReason, &v.FollowUpOf, &v.AppointmentRequestID,
		&v.Vitals, &v.Findings, &v.Diagnosis, &v.Plan, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO visit (patient_id, staff_id, stage, status, scheduled_at, purpose,
			transfer_required, transfer_reason, follow_up_of, appointment_request_id,
			vitals, findings, diagnosis, plan)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		v.PatientID, v.StaffID, v.Stage, v.Status, v.ScheduledAt, v.Purpose,
		v.TransferRequired, v.TransferReason, v.FollowUpOf, v.AppointmentRequestID,
		v.Vitals, v.Findings, v.Diagnosis, v.Plan,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *visitRepoPG) GetByID(ctx context.Context, id int64) (*Visit, error) {
	v, err := r.scanVisit(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrVisitNotFound, id)
		}
		return nil, fmt.Errorf("get visit %d: %w", id, err)
	}
	return v, nil
}

func (r *visitRepoPG) Update(ctx context.Context, v *Visit) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE visit SET status = $2, transfer_required = $3, transfer_reason = $4,
			vitals = $5, findings = $6, diagnosis = $7, plan = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		v.ID, v.Status, v.TransferRequired, v.TransferReason,
		v.Vitals, v.Findings, v.Diagnosis, v.Plan,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrVisitNotFound, v.ID)
		}
		return fmt.Errorf("update visit %d: %w", v.ID, err)
	}
	return nil
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Visit, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}
	rows, err := q.Query(ctx, `SELECT `+visitCols+` FROM visit WHERE patient_id = $1
		ORDER BY scheduled_at DESC, id DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := r.scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

// =========== Status History Repository ===========

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewStatusHistoryRepoPG(pool *pgxpool.Pool) StatusHistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) Create(ctx context.Context, h *StatusHistory) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO visit_status_history (visit_id, from_status, to_status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		h.VisitID, h.FromStatus, h.ToStatus, h.ChangedBy, h.ChangedAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("insert visit status history: %w", err)
	}
	return nil
}

func (r *historyRepoPG) ListByVisit(ctx context.Context, visitID int64) ([]*StatusHistory, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, visit_id, from_status, to_status, changed_by, changed_at
		FROM visit_status_history WHERE visit_id = $1 ORDER BY changed_at, id`, visitID)
	if err != nil {
		return nil, fmt.Errorf("list visit status history: %w", err)
	}
	defer rows.Close()
	var out []*StatusHistory
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.VisitID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}
