package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the venue-normalized lifecycle of a placed order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderPartial   OrderStatus = "partial"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderRejected  OrderStatus = "rejected"
)

// IsFilled reports whether a venue-reported status string counts as
// filled. Venue A reports filled|complete|executed; venue B reports
// filled|complete|matched; both collapse to OrderFilled by the client.
func (s OrderStatus) IsFilled() bool {
	return s == OrderFilled
}

// OrderResult is what PlaceOrder returns: an order id plus its initial
// venue-reported status.
type OrderResult struct {
	OrderID    string
	Status     OrderStatus
	FilledQty  decimal.Decimal
}

// ExecutionResult is the outcome of one two-leg Executor dispatch.
type ExecutionResult struct {
	PositionID      string
	Success         bool
	Leg1OrderID     string
	Leg2OrderID     string
	Leg1Filled      bool
	Leg2Filled      bool
	ActualCost      decimal.Decimal
	ErrorMessage    string
	UnwindAttempted bool
	UnwindSucceeded bool
	ExecutedAt      time.Time
}
