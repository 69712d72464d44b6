package ports

import (
	"context"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// Notifier fans out arbitrage events to whichever outbound channels are
// configured (console, Telegram, ...).
type Notifier interface {
	NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error
	NotifyExecution(ctx context.Context, result domain.ExecutionResult, opp *domain.Opportunity) error
	NotifyError(ctx context.Context, errType, message string) error
	NotifyDailySummary(ctx context.Context, summary domain.PerformanceSummary, portfolio domain.PortfolioState) error

	// Test verifies every configured channel can deliver a message.
	Test(ctx context.Context) error
}
