// Package ports declares the interfaces the application layer depends on;
// concrete implementations live under internal/adapters.
package ports

import (
	"context"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/shopspring/decimal"
)

// VenueClient is the uniform capability set the engine needs from either
// venue, hiding venue-specific signing, URL shapes and payload dialects
// (§4.1).
type VenueClient interface {
	// Venue identifies which venue this client drives.
	Venue() domain.Venue

	// ListMarkets returns the open catalogue, capped at limit.
	ListMarkets(ctx context.Context, limit int) ([]domain.Listing, error)

	// FetchQuote returns the best price for one side of one market, or
	// nil if there is no resting liquidity on that side.
	FetchQuote(ctx context.Context, nativeID string, side domain.Side) (*float64, error)

	// PlaceOrder submits a limit order and returns its id and initial
	// status.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (domain.OrderResult, error)

	// OrderStatus polls the current status and filled quantity of a
	// previously placed order.
	OrderStatus(ctx context.Context, orderID string) (domain.OrderResult, error)

	// CancelOrder cancels a resting order; returns false if it was
	// already terminal.
	CancelOrder(ctx context.Context, orderID string) (bool, error)

	// Balance returns free quote-currency units available for new
	// positions.
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// PlaceOrderRequest is the venue-agnostic order placement input; the
// VenueClient implementation is responsible for converting Price into the
// venue's native price convention (integer cents for venue A, decimal for
// venue B) and clamping it to the venue's bounds.
type PlaceOrderRequest struct {
	NativeID   string
	Side       domain.Side
	Action     domain.Action
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
	OrderType  domain.OrderType
}
