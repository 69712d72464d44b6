package capital

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		ReservePct:          0.2,
		RebalanceThreshold:  0.3,
		MaxOpenPositions:    3,
		MaxExposurePerEvent: 0.2,
		MaxDailyLossPct:     0.05,
	}
}

func TestAllocateCapital_SucceedsWithinLimits(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(500), decimal.NewFromInt(500))
	ok := m.AllocateCapital(decimal.NewFromInt(100), "pos-1")
	assert.True(t, ok)
	assert.True(t, m.PortfolioState().LockedCapital.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, m.PortfolioState().OpenPositions)
}

func TestAllocateCapital_RejectsOverMaxExposurePerEvent(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(500), decimal.NewFromInt(500))
	ok := m.AllocateCapital(decimal.NewFromInt(300), "pos-1") // > 20% of 1000
	assert.False(t, ok)
	assert.Equal(t, 0, m.PortfolioState().OpenPositions)
}

func TestAllocateCapital_RejectsBeyondMaxOpenPositions(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(5000), decimal.NewFromInt(5000))
	require.True(t, m.AllocateCapital(decimal.NewFromInt(10), "pos-1"))
	require.True(t, m.AllocateCapital(decimal.NewFromInt(10), "pos-2"))
	require.True(t, m.AllocateCapital(decimal.NewFromInt(10), "pos-3"))
	assert.False(t, m.AllocateCapital(decimal.NewFromInt(10), "pos-4"))
}

func TestAllocateCapital_RejectsBeyondAvailableCapital(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(100), decimal.NewFromInt(0))
	ok := m.AllocateCapital(decimal.NewFromInt(90), "pos-1")
	assert.False(t, ok)
}

func TestAllocateThenRelease_IsAtomicAndFreesCapital(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(500), decimal.NewFromInt(500))
	require.True(t, m.AllocateCapital(decimal.NewFromInt(50), "pos-1"))

	m.ReleaseCapital("pos-1", decimal.NewFromInt(5))

	state := m.PortfolioState()
	assert.True(t, state.LockedCapital.IsZero())
	assert.Equal(t, 0, state.OpenPositions)
	assert.True(t, state.RealizedPnL.Equal(decimal.NewFromInt(5)))
}

func TestReleaseCapital_UnknownPositionIsNoOp(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(500), decimal.NewFromInt(500))
	m.ReleaseCapital("does-not-exist", decimal.NewFromInt(5))
	state := m.PortfolioState()
	assert.True(t, state.RealizedPnL.IsZero())
}

func TestCanOpenPosition_DailyLossLocksFurtherTrades(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(500), decimal.NewFromInt(500))
	require.True(t, m.AllocateCapital(decimal.NewFromInt(100), "pos-1"))
	m.ReleaseCapital("pos-1", decimal.NewFromInt(-60)) // 6% of 1000 starting balance

	assert.False(t, m.CanOpenPosition(decimal.NewFromInt(10)))
}

func TestResetDailyMetrics_ClearsDailyPnLAndRebaselines(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(500), decimal.NewFromInt(500))
	require.True(t, m.AllocateCapital(decimal.NewFromInt(100), "pos-1"))
	m.ReleaseCapital("pos-1", decimal.NewFromInt(-60))

	m.ResetDailyMetrics()

	assert.True(t, m.PortfolioState().DailyPnL.IsZero())
	assert.True(t, m.CanOpenPosition(decimal.NewFromInt(10)))
}

func TestNeedsRebalancing_TriggersOnDrift(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(900), decimal.NewFromInt(100))
	assert.True(t, m.NeedsRebalancing())

	targets := m.RebalanceTargets()
	assert.True(t, targets.TransferToA == false)
	assert.True(t, targets.TransferAmount.IsPositive())
}

func TestNeedsRebalancing_FalseWhenBalanced(t *testing.T) {
	m := New(testConfig(), decimal.NewFromInt(500), decimal.NewFromInt(500))
	assert.False(t, m.NeedsRebalancing())
}
