package ports

import (
	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/shopspring/decimal"
)

// Quotes bundles the four best-of-book prices the Detector needs for one
// paired event: venue A's YES/NO and venue B's YES/NO.
type Quotes struct {
	YesA *float64
	NoA  *float64
	YesB *float64
	NoB  *float64
}

// Detector computes spread/edge/fee math, sizes by fractional Kelly, and
// selects the better of the two possible directions (§4.4).
type Detector interface {
	// DetectBest evaluates both directions for one paired event and
	// returns the winning Opportunity, or ok=false if neither direction
	// survives thresholds, risk, fees, or liquidity checks.
	DetectBest(paired domain.PairedEvent, q Quotes, bankroll decimal.Decimal) (domain.Opportunity, bool)

	// ScanOpportunities evaluates every paired event and returns the
	// surviving opportunities sorted by descending expected profit.
	ScanOpportunities(paired []domain.PairedEvent, quotes map[string]Quotes, bankroll decimal.Decimal) []domain.Opportunity
}
