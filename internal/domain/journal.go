package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityStatus tracks an opportunity row from detection through
// execution.
type OpportunityStatus string

const (
	OppDetected OpportunityStatus = "detected"
	OppExecuted OpportunityStatus = "executed"
	OppFailed   OpportunityStatus = "failed"
)

// OpportunityLog is the durable record of one detected opportunity.
type OpportunityLog struct {
	PositionID    string
	ExecutionMode ExecutionMode
	Opportunity   Opportunity
	Status        OpportunityStatus
	Executed      bool
	DetectedAt    time.Time
	ExecutedAt    *time.Time
}

// TradeLog is the durable record of one execution attempt.
type TradeLog struct {
	PositionID    string
	ExecutionMode ExecutionMode
	Result        ExecutionResult
	Status        string // pending, filled, partial, failed, closed
	CreatedAt     time.Time
	ClosedAt      *time.Time
	RealizedPnL   *decimal.Decimal
}

// BalanceSnapshot is a periodic durable record of PortfolioState.
type BalanceSnapshot struct {
	ExecutionMode ExecutionMode
	Portfolio     PortfolioState
	SnapshotAt    time.Time
}
