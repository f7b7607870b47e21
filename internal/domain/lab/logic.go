package lab

import (
	"fmt"

	"github.com/clinicportal/clinic/internal/platform/apperr"
)

var (
	ErrEmptySelection         = apperr.Validation("empty_selection", "at least one lab test must be selected")
	ErrUnknownTest            = apperr.Validation("unknown_test", "lab test does not exist or is inactive")
	ErrOrderNotFound          = apperr.NotFound("lab_order_not_found", "lab order not found")
	ErrInvalidOrderTransition = apperr.State("invalid_lab_order_transition", "lab order status change not allowed")
	ErrUnknownOrderStatus     = apperr.Validation("unknown_lab_order_status", "unknown lab order status")
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderOrdered, OrderCancelled},
	OrderOrdered:   {OrderCompleted, OrderCancelled},
	OrderCompleted: {},
	OrderCancelled: {},
}

// ComputeTotal sums the prices of the selected tests.
func ComputeTotal(tests []*Test) Money {
	var sum Money
	for _, t := range tests {
		sum += t.Price
	}
	return sum
}

// ValidateSelection rejects an empty selection. It runs before any order is
// built and again when the order is placed.
func ValidateSelection(testIDs []int64) error {
	if len(testIDs) == 0 {
		return ErrEmptySelection
	}
	return nil
}

// dedupe keeps the first occurrence of each id, preserving order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ValidateOrderTransition checks a lab order status change.
func ValidateOrderTransition(from, to OrderStatus) error {
	if _, ok := orderTransitions[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrderStatus, to)
	}
	for _, s := range orderTransitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidOrderTransition, from, to)
}
