package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction names which venue supplies the YES leg and which supplies the
// NO leg of a two-venue arbitrage trade.
type Direction string

const (
	// DirBuyYesANoB buys YES on venue A and NO on venue B.
	DirBuyYesANoB Direction = "buy_yes_a_no_b"
	// DirBuyYesBNoA buys YES on venue B and NO on venue A.
	DirBuyYesBNoA Direction = "buy_yes_b_no_a"
)

// RiskTier is the Risk Analyzer's tiered verdict on an opportunity.
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// ShouldExecute reports whether the Detector is allowed to act on a tier.
// HIGH and CRITICAL are rejected upstream per the risk policy.
func (t RiskTier) ShouldExecute() bool {
	return t == RiskLow || t == RiskMedium
}

// RiskWarning is one human-readable explanation attached to a contributing
// risk dimension.
type RiskWarning struct {
	Dimension string
	Severity  string // low, medium, high, critical
	Message   string
}

// RiskAssessment is the Risk Analyzer's full verdict on an opportunity.
type RiskAssessment struct {
	Tier           RiskTier
	Score          float64
	Warnings       []RiskWarning
	SizeMultiplier float64
}

// ShouldExecute mirrors RiskTier.ShouldExecute for callers holding the
// full assessment.
func (a RiskAssessment) ShouldExecute() bool {
	return a.Tier.ShouldExecute()
}

// ExecutionMode partitions every durable record and every runtime switch
// between simulated and real trading.
type ExecutionMode string

const (
	ModePaper ExecutionMode = "paper"
	ModeLive  ExecutionMode = "live"
)

// Opportunity is a sized, direction-selected arbitrage candidate ready to
// be journaled and, if auto-execute is on, handed to the Executor.
type Opportunity struct {
	PairedEvent PairedEvent
	Direction   Direction

	PriceLeg1 decimal.Decimal
	PriceLeg2 decimal.Decimal
	Spread    decimal.Decimal
	GrossEdge decimal.Decimal

	FeeLeg1 decimal.Decimal
	FeeLeg2 decimal.Decimal
	NetEdge decimal.Decimal

	PositionSizeQuote decimal.Decimal
	ContractsLeg1     int64
	SizeLeg2          decimal.Decimal

	ExpectedProfit decimal.Decimal
	ExpectedROI    decimal.Decimal

	HorizonDays   *int
	AnnualizedROI decimal.Decimal

	RiskTier     RiskTier
	RiskScore    float64
	RiskWarnings []RiskWarning

	DetectedAt time.Time
}

// LegVenues returns which venue carries leg1 and which carries leg2 for
// the opportunity's chosen direction.
func (o Opportunity) LegVenues() (leg1, leg2 Venue) {
	if o.Direction == DirBuyYesANoB {
		return VenueA, VenueB
	}
	return VenueB, VenueA
}

// PositionLifecycle is the state machine a Position moves through from
// allocation to close.
type PositionLifecycle string

const (
	LifecycleAllocated PositionLifecycle = "allocated"
	LifecyclePlaced     PositionLifecycle = "placed"
	LifecycleBothFilled PositionLifecycle = "both_filled"
	LifecycleUnwinding  PositionLifecycle = "unwinding"
	LifecycleClosed     PositionLifecycle = "closed"
	LifecycleFailed     PositionLifecycle = "failed"
)

// LegOrders records the order id placed on each leg, if any.
type LegOrders struct {
	Leg1OrderID string
	Leg2OrderID string
}

// LegFilled records whether each leg actually filled.
type LegFilled struct {
	Leg1 bool
	Leg2 bool
}

// Position is the effect of executing an Opportunity.
type Position struct {
	PositionID       string
	OpportunityRef   string
	ExecutionMode    ExecutionMode
	LegOrders        LegOrders
	LegFilled        LegFilled
	AllocatedCapital decimal.Decimal
	RealizedPnL      decimal.Decimal
	Lifecycle        PositionLifecycle
	OpenedAt         time.Time
	ClosedAt         *time.Time
}
