package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioState is the process-wide capital snapshot the Capital Manager
// owns and the Circuit Breaker reads.
type PortfolioState struct {
	BalanceA          decimal.Decimal
	BalanceB          decimal.Decimal
	LockedCapital     decimal.Decimal
	OpenPositions     int
	DailyStartBalance decimal.Decimal
	PeakBalance       decimal.Decimal
	RealizedPnL       decimal.Decimal
	UnrealizedPnL     decimal.Decimal
	DailyPnL          decimal.Decimal
	LastUpdated       time.Time
}

// TotalBalance is the sum of both venue balances.
func (p PortfolioState) TotalBalance() decimal.Decimal {
	return p.BalanceA.Add(p.BalanceB)
}

// TotalPnL is realized plus unrealized P&L.
func (p PortfolioState) TotalPnL() decimal.Decimal {
	return p.RealizedPnL.Add(p.UnrealizedPnL)
}

// RebalanceTargets is the Capital Manager's computed (but never executed)
// cross-venue transfer recommendation.
type RebalanceTargets struct {
	DeltaA          decimal.Decimal
	DeltaB          decimal.Decimal
	TransferToA     bool
	TransferAmount  decimal.Decimal
}

// PerformanceSummary aggregates opportunity/trade counts and P&L over a
// trailing window for one execution mode.
type PerformanceSummary struct {
	PeriodDays          int
	OpportunitiesFound  int
	TradesExecuted      int
	TradesSuccessful    int
	TradesClosed        int
	TotalPnL            decimal.Decimal
	TotalVolume         decimal.Decimal
	WinRate             float64
	AvgProfit           decimal.Decimal
}
