package ports

import (
	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/shopspring/decimal"
)

// CapitalManager is the policy gate for opening and closing positions and
// the single source of truth for PortfolioState (§4.5).
type CapitalManager interface {
	AvailableCapital() decimal.Decimal
	CanOpenPosition(size decimal.Decimal) bool
	AllocateCapital(size decimal.Decimal, positionID string) bool
	ReleaseCapital(positionID string, realizedPnL decimal.Decimal)
	UpdateBalances(balanceA, balanceB decimal.Decimal)
	ResetDailyMetrics()
	PortfolioState() domain.PortfolioState
	NeedsRebalancing() bool
	RebalanceTargets() domain.RebalanceTargets
}
