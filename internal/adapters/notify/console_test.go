package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/orion-arb/internal/adapters/notify"
	"github.com/alejandrodnm/orion-arb/internal/domain"
)

func TestConsole_NotifyOpportunity_IncludesWarnings(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	opp := domain.Opportunity{
		Direction:         domain.DirBuyYesANoB,
		PairedEvent:       domain.PairedEvent{ListingA: domain.Listing{Question: "Will X happen?"}},
		ExpectedProfit:    decimal.NewFromInt(5),
		NetEdge:           decimal.NewFromFloat(0.05),
		PositionSizeQuote: decimal.NewFromInt(100),
		RiskTier:          domain.RiskMedium,
		RiskWarnings:      []domain.RiskWarning{{Dimension: "edge", Severity: "medium", Message: "thin edge"}},
	}

	require.NoError(t, c.NotifyOpportunity(context.Background(), opp))
	out := buf.String()
	assert.Contains(t, out, "Will X happen?")
	assert.Contains(t, out, "thin edge")
}

func TestConsole_NotifyExecution_ReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	result := domain.ExecutionResult{PositionID: "pos-1", Success: false, ErrorMessage: "partial fill", UnwindAttempted: true}
	require.NoError(t, c.NotifyExecution(context.Background(), result, nil))

	out := buf.String()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "unwound")
	assert.Contains(t, out, "partial fill")
}

func TestConsole_NotifyDailySummary_CompactModeOmitsTable(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	summary := domain.PerformanceSummary{PeriodDays: 1, TradesExecuted: 2, TradesSuccessful: 1, WinRate: 0.5}
	portfolio := domain.PortfolioState{BalanceA: decimal.NewFromInt(500), BalanceB: decimal.NewFromInt(500)}

	require.NoError(t, c.NotifyDailySummary(context.Background(), summary, portfolio))
	out := buf.String()
	assert.False(t, strings.Contains(out, "┌"))
	assert.Contains(t, out, "balances:")
}

func TestConsole_Test_NeverFails(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)
	assert.NoError(t, c.Test(context.Background()))
}
