package ports

import (
	"context"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/shopspring/decimal"
)

// Journal is the durable, append-only log of opportunities, trades and
// balance snapshots, partitioned by execution mode (§4.8).
type Journal interface {
	SaveOpportunity(ctx context.Context, opp domain.Opportunity, positionID string, mode domain.ExecutionMode) error
	SaveTrade(ctx context.Context, result domain.ExecutionResult, mode domain.ExecutionMode) error
	ClosePosition(ctx context.Context, positionID string, pnl decimal.Decimal, mode domain.ExecutionMode) error
	SaveBalanceSnapshot(ctx context.Context, portfolio domain.PortfolioState, mode domain.ExecutionMode) error

	GetRecentOpportunities(ctx context.Context, limit int, mode domain.ExecutionMode) ([]domain.OpportunityLog, error)
	GetOpenPositions(ctx context.Context, mode domain.ExecutionMode) ([]domain.TradeLog, error)
	GetPerformanceSummary(ctx context.Context, days int, mode domain.ExecutionMode) (domain.PerformanceSummary, error)
	GetLatestBalance(ctx context.Context, mode domain.ExecutionMode) (*domain.BalanceSnapshot, error)

	Close() error
}
