package lab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/platform/db"
	"github.com/clinicportal/clinic/internal/platform/events"
)

// -- Mock Repositories --

type mockTestRepo struct {
	tests map[int64]*Test
}

func newMockTestRepo(tests ...*Test) *mockTestRepo {
	m := &mockTestRepo{tests: make(map[int64]*Test)}
	for _, t := range tests {
		m.tests[t.ID] = t
	}
	return m
}

func (m *mockTestRepo) ListActive(_ context.Context) ([]*Test, error) {
	var out []*Test
	for _, t := range m.tests {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTestRepo) GetByIDs(_ context.Context, ids []int64) ([]*Test, error) {
	var out []*Test
	for _, id := range ids {
		if t, ok := m.tests[id]; ok && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	orders map[int64]*Order
	nextID int64
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[int64]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByVisit(_ context.Context, visitID int64) ([]*Order, error) {
	var out []*Order
	for _, o := range m.orders {
		if o.VisitID == visitID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, status OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func catalog() *mockTestRepo {
	return newMockTestRepo(
		&Test{ID: 1, Code: "CBC", Name: "Complete Blood Count", Price: 500, Active: true},
		&Test{ID: 2, Code: "LIPID", Name: "Lipid Panel", Price: 300, Active: true},
		&Test{ID: 3, Code: "OLD", Name: "Retired Test", Price: 100, Active: false},
	)
}

func newTestService() (*Service, *mockOrderRepo, *recordingPublisher) {
	orders := newMockOrderRepo()
	pub := &recordingPublisher{}
	return NewService(catalog(), orders, db.NoTx{}, pub, zerolog.Nop()), orders, pub
}

func TestService_PlaceOrder(t *testing.T) {
	svc, orders, pub := newTestService()

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		VisitID: 10, PatientID: "p1", TestIDs: []int64{1, 2}, Notes: "fasting", OrderedBy: "dr-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderPending {
		t.Errorf("expected pending, got %s", o.Status)
	}
	if o.Total() != 800 {
		t.Errorf("expected total 800, got %d", o.Total())
	}
	if _, ok := orders.orders[o.ID]; !ok {
		t.Error("expected order to be stored")
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.LabOrderCreated {
		t.Fatalf("expected one lab_order_created event, got %v", pub.events)
	}
	var data events.LabOrderCreatedData
	pub.events[0].Decode(&data)
	if data.LabOrderID != o.ID || data.Total != 800 {
		t.Errorf("unexpected event data %+v", data)
	}
}

func TestService_PlaceOrder_EmptySelection(t *testing.T) {
	svc, orders, _ := newTestService()
	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{VisitID: 1})
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if len(orders.orders) != 0 {
		t.Error("no order should be created")
	}
}

func TestService_PlaceOrder_UnknownTest(t *testing.T) {
	svc, orders, _ := newTestService()
	for _, ids := range [][]int64{{1, 99}, {3}} {
		_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{VisitID: 1, TestIDs: ids})
		if !errors.Is(err, ErrUnknownTest) {
			t.Errorf("ids %v: expected ErrUnknownTest, got %v", ids, err)
		}
	}
	if len(orders.orders) != 0 {
		t.Error("no order should be created")
	}
}

func TestService_PlaceOrder_DuplicateIDsCollapse(t *testing.T) {
	svc, _, _ := newTestService()
	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{VisitID: 1, TestIDs: []int64{1, 1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.Items) != 2 || o.Total() != 800 {
		t.Errorf("expected 2 items totalling 800, got %d items totalling %d", len(o.Items), o.Total())
	}
}

func TestService_PlaceOrder_PublishFailureDoesNotFail(t *testing.T) {
	svc, _, pub := newTestService()
	pub.err = errors.New("bus down")
	if _, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{VisitID: 1, TestIDs: []int64{1}}); err != nil {
		t.Fatalf("publish failure must not fail the order: %v", err)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	svc, _, _ := newTestService()
	o, _ := svc.PlaceOrder(context.Background(), PlaceOrderRequest{VisitID: 1, TestIDs: []int64{1}})

	got, err := svc.UpdateStatus(context.Background(), o.ID, OrderOrdered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != OrderOrdered {
		t.Errorf("expected ordered, got %s", got.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), o.ID, OrderPending); !errors.Is(err, ErrInvalidOrderTransition) {
		t.Errorf("expected ErrInvalidOrderTransition, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), 404, OrderOrdered); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestService_ListTests_OnlyActive(t *testing.T) {
	svc, _, _ := newTestService()
	tests, err := svc.ListTests(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tests) != 2 {
		t.Errorf("expected 2 active tests, got %d", len(tests))
	}
}
