package detector

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

type stubRisk struct {
	tier domain.RiskTier
	mult float64
}

func (s stubRisk) Analyze(domain.PairedEvent, float64, float64) domain.RiskAssessment {
	return domain.RiskAssessment{Tier: s.tier, SizeMultiplier: s.mult}
}

func testConfig() Config {
	return Config{
		ThresholdSpread:      0.02,
		MinTradeSizeUSD:      10,
		MaxTradeSizePct:      0.1,
		TargetLiquidityDepth: 100,
		FeeAPct:              0.01,
		FeeBPct:              0.02,
		BlockchainCostUSD:    0.5,
		MaxDaysToResolution:  30,
		HighReturnThreshold:  0.15,
	}
}

func testPair() domain.PairedEvent {
	res := time.Now().Add(10 * 24 * time.Hour)
	return domain.PairedEvent{
		ListingA: domain.Listing{NativeID: "a1", RestingLiquidity: 100000, ResolutionTime: &res},
		ListingB: domain.Listing{NativeID: "b1", RestingLiquidity: 100000, ResolutionTime: &res},
		Similarity: 0.95,
	}
}

func f(v float64) *float64 { return &v }

func TestDetectBest_NoEdgeRejected(t *testing.T) {
	d := New(testConfig(), stubRisk{tier: domain.RiskLow, mult: 1.0})
	q := ports.Quotes{YesA: f(0.52), NoB: f(0.50)}
	_, ok := d.DetectBest(testPair(), q, decimal.NewFromInt(10000))
	assert.False(t, ok)
}

func TestDetectBest_ProfitableEdgeAccepted(t *testing.T) {
	d := New(testConfig(), stubRisk{tier: domain.RiskLow, mult: 1.0})
	q := ports.Quotes{YesA: f(0.45), NoB: f(0.45)}
	opp, ok := d.DetectBest(testPair(), q, decimal.NewFromInt(10000))
	require.True(t, ok)
	assert.True(t, opp.NetEdge.IsPositive())
	assert.Equal(t, domain.DirBuyYesANoB, opp.Direction)
}

func TestDetectBest_HighRiskTierRejected(t *testing.T) {
	d := New(testConfig(), stubRisk{tier: domain.RiskHigh, mult: 0.3})
	q := ports.Quotes{YesA: f(0.45), NoB: f(0.45)}
	_, ok := d.DetectBest(testPair(), q, decimal.NewFromInt(10000))
	assert.False(t, ok)
}

func TestDetectBest_PicksBetterDirectionByExpectedProfit(t *testing.T) {
	d := New(testConfig(), stubRisk{tier: domain.RiskLow, mult: 1.0})
	q := ports.Quotes{
		YesA: f(0.46), NoB: f(0.46),
		YesB: f(0.40), NoA: f(0.40),
	}
	opp, ok := d.DetectBest(testPair(), q, decimal.NewFromInt(10000))
	require.True(t, ok)
	assert.Equal(t, domain.DirBuyYesBNoA, opp.Direction)
}

func TestDetectBest_SizeCeilingRespectsMaxTradeSizePct(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTradeSizePct = 0.01
	d := New(cfg, stubRisk{tier: domain.RiskLow, mult: 1.0})
	q := ports.Quotes{YesA: f(0.1), NoB: f(0.1)}
	bankroll := decimal.NewFromInt(10000)
	opp, ok := d.DetectBest(testPair(), q, bankroll)
	require.True(t, ok)
	maxSize := bankroll.Mul(decimal.NewFromFloat(cfg.MaxTradeSizePct))
	assert.True(t, opp.PositionSizeQuote.LessThanOrEqual(maxSize))
}

func TestDetectBest_ThinLiquidityRejected(t *testing.T) {
	cfg := testConfig()
	cfg.TargetLiquidityDepth = 1_000_000
	d := New(cfg, stubRisk{tier: domain.RiskLow, mult: 1.0})
	q := ports.Quotes{YesA: f(0.45), NoB: f(0.45)}
	_, ok := d.DetectBest(testPair(), q, decimal.NewFromInt(10000))
	assert.False(t, ok)
}

func TestDetectBest_HorizonBeyondMaxRejectedUnlessHighReturn(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDaysToResolution = 1
	d := New(cfg, stubRisk{tier: domain.RiskLow, mult: 1.0})

	pair := testPair()
	res := time.Now().Add(60 * 24 * time.Hour)
	pair.ListingA.ResolutionTime = &res
	pair.ListingB.ResolutionTime = &res

	q := ports.Quotes{YesA: f(0.45), NoB: f(0.45)}
	_, ok := d.DetectBest(pair, q, decimal.NewFromInt(10000))
	assert.False(t, ok)

	// Net edge 0.5695 clears HighReturnThreshold 0.15, so the long horizon is allowed.
	highReturn := ports.Quotes{YesA: f(0.2), NoB: f(0.2)}
	_, ok = d.DetectBest(pair, highReturn, decimal.NewFromInt(10000))
	assert.True(t, ok)
}

func TestScanOpportunities_SortedByDescendingProfit(t *testing.T) {
	d := New(testConfig(), stubRisk{tier: domain.RiskLow, mult: 1.0})

	pairSmall := testPair()
	pairSmall.ListingA.NativeID = "small"
	pairBig := testPair()
	pairBig.ListingA.NativeID = "big"

	quotes := map[string]ports.Quotes{
		"small": {YesA: f(0.47), NoB: f(0.47)},
		"big":   {YesA: f(0.40), NoB: f(0.40)},
	}

	opps := d.ScanOpportunities([]domain.PairedEvent{pairSmall, pairBig}, quotes, decimal.NewFromInt(10000))
	require.Len(t, opps, 2)
	assert.True(t, opps[0].ExpectedProfit.GreaterThanOrEqual(opps[1].ExpectedProfit))
}
