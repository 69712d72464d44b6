package ports

import (
	"context"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// Executor dispatches the two legs of an Opportunity concurrently and
// unwinds any single-legged exposure if one leg fails (§4.7).
type Executor interface {
	ExecuteArbitrage(ctx context.Context, opp domain.Opportunity, positionID string) domain.ExecutionResult
	CheckOrderStatus(ctx context.Context, venue domain.Venue, orderID string) (domain.OrderStatus, error)
}
