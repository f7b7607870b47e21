package lab

import (
	"encoding/json"
	"fmt"
	"time"
)

// Money is an amount in minor currency units (cents).
type Money int64

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

type Test struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Price  Money  `json:"price"`
	Active bool   `json:"active"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderOrdered   OrderStatus = "ordered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem snapshots the test name and price at the moment of ordering.
type OrderItem struct {
	TestID int64  `json:"test_id"`
	Name   string `json:"name"`
	Price  Money  `json:"price"`
}

type Order struct {
	ID        int64       `json:"id"`
	VisitID   int64       `json:"visit_id"`
	PatientID string      `json:"patient_id"`
	Status    OrderStatus `json:"status"`
	Notes     string      `json:"notes,omitempty"`
	OrderedBy string      `json:"ordered_by"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Total is recomputed from the items on every call.
func (o *Order) Total() Money {
	var sum Money
	for _, it := range o.Items {
		sum += it.Price
	}
	return sum
}

func (o *Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		*alias
		Total        Money  `json:"total"`
		TotalDisplay string `json:"total_display"`
	}{alias: (*alias)(o), Total: o.Total(), TotalDisplay: o.Total().String()})
}

// PlaceOrderRequest is what a visit hands to the lab when ordering tests.
type PlaceOrderRequest struct {
	VisitID   int64
	PatientID string
	TestIDs   []int64
	Notes     string
	OrderedBy string
}
