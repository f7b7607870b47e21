package lab

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicportal/clinic/internal/platform/db"
)

// =========== Test catalog ===========

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository {
	return &testRepoPG{pool: pool}
}

const testCols = `id, code, name, price_minor, active`

func scanTests(rows pgx.Rows) ([]*Test, error) {
	defer rows.Close()
	var out []*Test
	for rows.Next() {
		var t Test
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Price, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *testRepoPG) ListActive(ctx context.Context) ([]*Test, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+testCols+` FROM lab_test WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list lab tests: %w", err)
	}
	return scanTests(rows)
}

func (r *testRepoPG) GetByIDs(ctx context.Context, ids []int64) ([]*Test, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+testCols+` FROM lab_test WHERE active AND id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get lab tests: %w", err)
	}
	return scanTests(rows)
}

// =========== Orders ===========

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository {
	return &orderRepoPG{pool: pool}
}

const orderCols = `id, visit_id, patient_id, status, notes, ordered_by, created_at, updated_at`

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO lab_order (visit_id, patient_id, status, notes, ordered_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		o.VisitID, o.PatientID, o.Status, o.Notes, o.OrderedBy,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert lab order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`INSERT INTO lab_order_item (lab_order_id, lab_test_id, name, price_minor) VALUES ($1, $2, $3, $4)`,
			o.ID, it.TestID, it.Name, it.Price)
	}
	if tx := db.TxFromContext(ctx); tx != nil {
		return execBatch(ctx, tx.SendBatch(ctx, batch), len(o.Items))
	}
	return execBatch(ctx, r.pool.SendBatch(ctx, batch), len(o.Items))
}

func execBatch(_ context.Context, br pgx.BatchResults, n int) error {
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert lab order item %d: %w", i, err)
		}
	}
	return nil
}

func (r *orderRepoPG) GetByID(ctx context.Context, id int64) (*Order, error) {
	q := db.Conn(ctx, r.pool)
	var o Order
	err := q.QueryRow(ctx, `SELECT `+orderCols+` FROM lab_order WHERE id = $1`, id).
		Scan(&o.ID, &o.VisitID, &o.PatientID, &o.Status, &o.Notes, &o.OrderedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("get lab order %d: %w", id, err)
	}
	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *orderRepoPG) items(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT lab_test_id, name, price_minor FROM lab_order_item WHERE lab_order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list lab order items: %w", err)
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.TestID, &it.Name, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *orderRepoPG) ListByVisit(ctx context.Context, visitID int64) ([]*Order, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+orderCols+` FROM lab_order WHERE visit_id = $1 ORDER BY created_at DESC, id DESC`, visitID)
	if err != nil {
		return nil, fmt.Errorf("list lab orders: %w", err)
	}
	var out []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.VisitID, &o.PatientID, &o.Status, &o.Notes, &o.OrderedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, &o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if o.Items, err = r.items(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *orderRepoPG) UpdateStatus(ctx context.Context, id int64, status OrderStatus) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE lab_order SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update lab order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	return nil
}
