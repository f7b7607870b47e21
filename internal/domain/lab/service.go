package lab

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/platform/db"
	"github.com/clinicportal/clinic/internal/platform/events"
)

type Service struct {
	tests  TestRepository
	orders OrderRepository
	tx     db.Transactor
	bus    events.Publisher
	logger zerolog.Logger
}

func NewService(tests TestRepository, orders OrderRepository, tx db.Transactor, bus events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		tests:  tests,
		orders: orders,
		tx:     tx,
		bus:    bus,
		logger: logger.With().Str("component", "lab").Logger(),
	}
}

func (s *Service) ListTests(ctx context.Context) ([]*Test, error) {
	return s.tests.ListActive(ctx)
}

// ResolveTests looks up every id in the catalog. Duplicates collapse to one
// entry; any id that does not resolve fails the whole selection.
func (s *Service) ResolveTests(ctx context.Context, ids []int64) ([]*Test, error) {
	if err := ValidateSelection(ids); err != nil {
		return nil, err
	}
	ids = dedupe(ids)

	found, err := s.tests.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*Test, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	out := make([]*Test, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTest, id)
		}
		out = append(out, t)
	}
	return out, nil
}

// PlaceOrder validates the selection again and creates a pending order. The
// caller is responsible for visit-level checks.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	tests, err := s.ResolveTests(ctx, req.TestIDs)
	if err != nil {
		return nil, err
	}

	o := &Order{
		VisitID:   req.VisitID,
		PatientID: req.PatientID,
		Status:    OrderPending,
		Notes:     req.Notes,
		OrderedBy: req.OrderedBy,
		Items:     make([]OrderItem, 0, len(tests)),
	}
	for _, t := range tests {
		o.Items = append(o.Items, OrderItem{TestID: t.ID, Name: t.Name, Price: t.Price})
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.orders.Create(ctx, o)
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, o)
	return o, nil
}

func (s *Service) publish(ctx context.Context, o *Order) {
	e, err := events.New(events.LabOrderCreated, events.LabOrderCreatedData{
		LabOrderID: o.ID,
		VisitID:    o.VisitID,
		PatientID:  o.PatientID,
		Total:      int64(o.Total()),
	})
	if err == nil {
		err = s.bus.Publish(ctx, e)
	}
	if err != nil {
		s.logger.Warn().Err(err).Int64("lab_order_id", o.ID).Msg("lab order event not published")
	}
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) ListOrdersByVisit(ctx context.Context, visitID int64) ([]*Order, error) {
	return s.orders.ListByVisit(ctx, visitID)
}

// UpdateStatus moves an order along pending -> ordered -> completed, or to
// cancelled before completion.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to OrderStatus) (*Order, error) {
	var out *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateOrderTransition(o.Status, to); err != nil {
			return err
		}
		if err := s.orders.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		o.Status = to
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("lab_order_id", id).Str("status", string(to)).Msg("lab order status changed")
	return out, nil
}
