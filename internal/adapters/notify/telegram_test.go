package notify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// gatedTelegram builds a Telegram with no live bot, relying on the fact
// that gated-out opportunities return before ever touching t.bot.
func gatedTelegram(thresholdSpread, minOpportunityUSD float64) *Telegram {
	return &Telegram{thresholdSpread: thresholdSpread, minOpportunityUSD: minOpportunityUSD}
}

func TestNotifyOpportunity_BelowEdgeThresholdSkipped(t *testing.T) {
	tg := gatedTelegram(0.05, 1)
	opp := domain.Opportunity{NetEdge: decimal.NewFromFloat(0.01), ExpectedProfit: decimal.NewFromInt(100)}

	err := tg.NotifyOpportunity(context.Background(), opp)
	require.NoError(t, err)
}

func TestNotifyOpportunity_BelowMinProfitThresholdSkipped(t *testing.T) {
	tg := gatedTelegram(0.01, 50)
	opp := domain.Opportunity{NetEdge: decimal.NewFromFloat(0.05), ExpectedProfit: decimal.NewFromInt(10)}

	err := tg.NotifyOpportunity(context.Background(), opp)
	require.NoError(t, err)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "SUCCESS", statusText(true))
	assert.Equal(t, "FAILED", statusText(false))
}

func TestCheckmark(t *testing.T) {
	assert.Equal(t, "✅", checkmark(true))
	assert.Equal(t, "❌", checkmark(false))
}
