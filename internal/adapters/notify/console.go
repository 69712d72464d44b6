// Package notify fans out opportunity, execution, error and daily-summary
// events to the operator's configured channels.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// Console implements ports.Notifier by writing to stdout (or any io.Writer
// in tests).
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole builds a console notifier writing to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter builds a console notifier against an arbitrary writer,
// for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyOpportunity prints one detected opportunity.
func (c *Console) NotifyOpportunity(_ context.Context, opp domain.Opportunity) error {
	now := time.Now().Format("15:04:05")
	profit, _ := opp.ExpectedProfit.Float64()
	edge, _ := opp.NetEdge.Float64()
	size, _ := opp.PositionSizeQuote.Float64()

	fmt.Fprintf(c.out, "[%s] opportunity %s: %s edge=%.4f size=$%.2f profit=$%.2f risk=%s\n",
		now,
		string(opp.Direction),
		truncate(opp.PairedEvent.ListingA.Question, 60),
		edge, size, profit, opp.RiskTier,
	)
	for _, w := range opp.RiskWarnings {
		fmt.Fprintf(c.out, "    ! [%s/%s] %s\n", w.Dimension, w.Severity, w.Message)
	}
	return nil
}

// NotifyExecution prints the outcome of one execution attempt.
func (c *Console) NotifyExecution(_ context.Context, result domain.ExecutionResult, opp *domain.Opportunity) error {
	now := time.Now().Format("15:04:05")
	cost, _ := result.ActualCost.Float64()

	status := "OK"
	if !result.Success {
		status = "FAILED"
	}
	if result.UnwindAttempted {
		status += " (unwound)"
	}

	question := ""
	if opp != nil {
		question = truncate(opp.PairedEvent.ListingA.Question, 50)
	}

	fmt.Fprintf(c.out, "[%s] execution %s position=%s legs=%v/%v cost=$%.2f %s\n",
		now, status, result.PositionID, result.Leg1Filled, result.Leg2Filled, cost, question,
	)
	if result.ErrorMessage != "" {
		fmt.Fprintf(c.out, "    error: %s\n", result.ErrorMessage)
	}
	return nil
}

// NotifyError prints an out-of-band error.
func (c *Console) NotifyError(_ context.Context, errType, message string) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] ERROR [%s] %s\n", now, errType, message)
	return nil
}

// NotifyDailySummary prints the trailing-window performance table.
func (c *Console) NotifyDailySummary(_ context.Context, summary domain.PerformanceSummary, portfolio domain.PortfolioState) error {
	now := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(c.out, "\n=== Daily Summary [%s] (last %d days) ===\n", now, summary.PeriodDays)

	if c.table {
		table := tablewriter.NewWriter(c.out)
		table.Header("Metric", "Value")
		pnl, _ := summary.TotalPnL.Float64()
		vol, _ := summary.TotalVolume.Float64()
		avg, _ := summary.AvgProfit.Float64()
		table.Append("Opportunities found", fmt.Sprintf("%d", summary.OpportunitiesFound))
		table.Append("Trades executed", fmt.Sprintf("%d", summary.TradesExecuted))
		table.Append("Trades successful", fmt.Sprintf("%d", summary.TradesSuccessful))
		table.Append("Trades closed", fmt.Sprintf("%d", summary.TradesClosed))
		table.Append("Win rate", fmt.Sprintf("%.1f%%", summary.WinRate*100))
		table.Append("Total P&L", fmt.Sprintf("$%.2f", pnl))
		table.Append("Total volume", fmt.Sprintf("$%.2f", vol))
		table.Append("Avg profit/trade", fmt.Sprintf("$%.2f", avg))
		table.Render()
	} else {
		pnl, _ := summary.TotalPnL.Float64()
		fmt.Fprintf(c.out, "  opportunities=%d trades=%d/%d closed=%d win_rate=%.1f%% pnl=$%.2f\n",
			summary.OpportunitiesFound, summary.TradesSuccessful, summary.TradesExecuted,
			summary.TradesClosed, summary.WinRate*100, pnl,
		)
	}

	total := portfolio.TotalBalance()
	totalF, _ := total.Float64()
	balA, _ := portfolio.BalanceA.Float64()
	balB, _ := portfolio.BalanceB.Float64()
	fmt.Fprintf(c.out, "  balances: venue_a=$%.2f venue_b=$%.2f total=$%.2f open_positions=%d\n\n",
		balA, balB, totalF, portfolio.OpenPositions,
	)
	return nil
}

// Test writes a canary line; the console channel never fails.
func (c *Console) Test(_ context.Context) error {
	fmt.Fprintf(c.out, "[%s] console channel OK\n", time.Now().Format("15:04:05"))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
