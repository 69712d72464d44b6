// Package detector computes spread/edge/fee math for a paired event,
// consults the Risk Analyzer, sizes the position by fractional Kelly, and
// selects the better of the two possible trade directions.
package detector

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

// kellyFraction is the fixed fractional-Kelly scaling constant; it is not
// a deployment-tunable parameter.
const kellyFraction = 0.25

// Config bundles the trading/fee/horizon parameters that drive detection,
// lifted directly from config.TradingConfig, config.FeesConfig and
// config.CapitalConfig.
type Config struct {
	ThresholdSpread      float64
	MinTradeSizeUSD      float64
	MaxTradeSizePct      float64
	TargetLiquidityDepth float64

	FeeAPct           float64
	FeeBPct           float64
	BlockchainCostUSD float64

	MaxDaysToResolution int
	HighReturnThreshold float64
}

// Detector implements ports.Detector.
type Detector struct {
	cfg  Config
	risk ports.RiskAnalyzer
}

// New builds a Detector backed by risk for risk-tier gating.
func New(cfg Config, risk ports.RiskAnalyzer) *Detector {
	return &Detector{cfg: cfg, risk: risk}
}

// DetectBest evaluates both directions for paired and returns the
// surviving one with the highest expected profit, breaking ties by
// higher annualized ROI.
func (d *Detector) DetectBest(paired domain.PairedEvent, q ports.Quotes, bankroll decimal.Decimal) (domain.Opportunity, bool) {
	var candidates []domain.Opportunity

	if q.YesA != nil && q.NoB != nil {
		if opp, ok := d.evaluate(paired, domain.DirBuyYesANoB, *q.YesA, *q.NoB, bankroll); ok {
			candidates = append(candidates, opp)
		}
	}
	if q.YesB != nil && q.NoA != nil {
		if opp, ok := d.evaluate(paired, domain.DirBuyYesBNoA, *q.YesB, *q.NoA, bankroll); ok {
			candidates = append(candidates, opp)
		}
	}

	if len(candidates) == 0 {
		return domain.Opportunity{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ExpectedProfit.GreaterThan(best.ExpectedProfit) ||
			(c.ExpectedProfit.Equal(best.ExpectedProfit) && c.AnnualizedROI.GreaterThan(best.AnnualizedROI)) {
			best = c
		}
	}
	return best, true
}

// ScanOpportunities evaluates every paired event — keyed by its venue-A
// native ID, since FindMatches pairs each venue-A listing to at most one
// venue-B listing — and returns the survivors sorted by descending
// expected profit.
func (d *Detector) ScanOpportunities(paired []domain.PairedEvent, quotes map[string]ports.Quotes, bankroll decimal.Decimal) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, p := range paired {
		q, ok := quotes[p.ListingA.NativeID]
		if !ok {
			continue
		}
		if opp, ok := d.DetectBest(p, q, bankroll); ok {
			opps = append(opps, opp)
		}
	}
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ExpectedProfit.GreaterThan(opps[j].ExpectedProfit)
	})
	return opps
}

// evaluate prices, sizes, and fee-adjusts one direction. priceLeg1 is
// the price of whichever side is bought first in direction (YES_A for
// BuyYesANoB, YES_B for BuyYesBNoA); priceLeg2 is the complementary side.
func (d *Detector) evaluate(paired domain.PairedEvent, direction domain.Direction, priceLeg1, priceLeg2 float64, bankroll decimal.Decimal) (domain.Opportunity, bool) {
	if priceLeg1 <= 0 || priceLeg1 >= 1 || priceLeg2 <= 0 || priceLeg2 >= 1 {
		return domain.Opportunity{}, false
	}

	spread := priceLeg1 + priceLeg2
	grossEdge := 1 - spread
	if grossEdge < d.cfg.ThresholdSpread {
		return domain.Opportunity{}, false
	}

	maxSize := bankroll.Mul(decimal.NewFromFloat(d.cfg.MaxTradeSizePct))
	maxSizeFloat, _ := maxSize.Float64()

	assessment := d.risk.Analyze(paired, grossEdge, maxSizeFloat)
	if !assessment.Tier.ShouldExecute() {
		return domain.Opportunity{}, false
	}

	kellySize := bankroll.Mul(decimal.NewFromFloat(grossEdge * kellyFraction))
	size := decimal.Min(kellySize, maxSize)
	size = size.Mul(decimal.NewFromFloat(assessment.SizeMultiplier))
	if size.LessThan(decimal.NewFromFloat(d.cfg.MinTradeSizeUSD)) {
		return domain.Opportunity{}, false
	}

	var feeLeg1, feeLeg2 decimal.Decimal
	var priceA, priceB float64
	if direction == domain.DirBuyYesANoB {
		feeLeg1 = size.Mul(decimal.NewFromFloat(d.cfg.FeeAPct))
		feeLeg2 = size.Mul(decimal.NewFromFloat(d.cfg.FeeBPct)).Add(decimal.NewFromFloat(d.cfg.BlockchainCostUSD))
		priceA, priceB = priceLeg1, priceLeg2
	} else {
		feeLeg1 = size.Mul(decimal.NewFromFloat(d.cfg.FeeBPct)).Add(decimal.NewFromFloat(d.cfg.BlockchainCostUSD))
		feeLeg2 = size.Mul(decimal.NewFromFloat(d.cfg.FeeAPct))
		priceA, priceB = priceLeg2, priceLeg1
	}

	totalFeePct, _ := feeLeg1.Add(feeLeg2).Div(size).Float64()
	netEdge := grossEdge - totalFeePct
	if netEdge <= 0 {
		return domain.Opportunity{}, false
	}

	if paired.ListingA.RestingLiquidity < d.cfg.TargetLiquidityDepth ||
		paired.ListingB.RestingLiquidity < d.cfg.TargetLiquidityDepth {
		return domain.Opportunity{}, false
	}

	contractsA := size.Div(decimal.NewFromFloat(priceA)).Floor().IntPart()
	sizeB := size.Div(decimal.NewFromFloat(priceB))

	horizonDays, annualizedROI := horizonMetrics(paired, netEdge)
	if horizonDays != nil && *horizonDays > d.cfg.MaxDaysToResolution && netEdge < d.cfg.HighReturnThreshold {
		return domain.Opportunity{}, false
	}

	expectedProfit := size.Mul(decimal.NewFromFloat(netEdge))

	return domain.Opportunity{
		PairedEvent:       paired,
		Direction:         direction,
		PriceLeg1:         decimal.NewFromFloat(priceLeg1),
		PriceLeg2:         decimal.NewFromFloat(priceLeg2),
		Spread:            decimal.NewFromFloat(spread),
		GrossEdge:         decimal.NewFromFloat(grossEdge),
		FeeLeg1:           feeLeg1,
		FeeLeg2:           feeLeg2,
		NetEdge:           decimal.NewFromFloat(netEdge),
		PositionSizeQuote: size,
		ContractsLeg1:     contractsA,
		SizeLeg2:          sizeB,
		ExpectedProfit:    expectedProfit,
		ExpectedROI:       decimal.NewFromFloat(netEdge),
		HorizonDays:       horizonDays,
		AnnualizedROI:     decimal.NewFromFloat(annualizedROI),
		RiskTier:          assessment.Tier,
		RiskScore:         assessment.Score,
		RiskWarnings:      assessment.Warnings,
		DetectedAt:        time.Now(),
	}, true
}

// horizonMetrics computes days-to-resolution and the annualized ROI,
// preferring venue A's resolution time and falling back to venue B's.
func horizonMetrics(paired domain.PairedEvent, netEdge float64) (*int, float64) {
	resTime := paired.ListingA.ResolutionTime
	if resTime == nil {
		resTime = paired.ListingB.ResolutionTime
	}
	if resTime == nil {
		return nil, netEdge
	}

	days := int(math.Ceil(time.Until(*resTime).Hours() / 24))
	if days <= 0 {
		return &days, netEdge
	}
	return &days, netEdge * (365.0 / float64(days))
}
