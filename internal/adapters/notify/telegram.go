package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// Telegram pushes alerts to a single chat. Opportunity alerts are gated on
// the configured edge/profit thresholds; execution, error and summary
// alerts always send.
type Telegram struct {
	bot               *tgbotapi.BotAPI
	chatID            int64
	thresholdSpread   float64
	minOpportunityUSD float64
}

// NewTelegram builds a Telegram channel from a bot token and chat ID.
func NewTelegram(token, chatID string, thresholdSpread, minOpportunityUSD float64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: parse chat id %q: %w", chatID, err)
	}
	return &Telegram{
		bot:               bot,
		chatID:            id,
		thresholdSpread:   thresholdSpread,
		minOpportunityUSD: minOpportunityUSD,
	}, nil
}

func (t *Telegram) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	_, err := t.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// NotifyOpportunity sends only when the opportunity clears both the edge
// and minimum-profit thresholds, mirroring the alert-fatigue guard upstream.
func (t *Telegram) NotifyOpportunity(ctx context.Context, opp domain.Opportunity) error {
	edge, _ := opp.NetEdge.Float64()
	if edge < t.thresholdSpread {
		return nil
	}
	profit, _ := opp.ExpectedProfit.Float64()
	if profit < t.minOpportunityUSD {
		return nil
	}

	p1, _ := opp.PriceLeg1.Float64()
	p2, _ := opp.PriceLeg2.Float64()
	spread, _ := opp.Spread.Float64()
	size, _ := opp.PositionSizeQuote.Float64()
	roi, _ := opp.ExpectedROI.Float64()

	text := fmt.Sprintf(
		"💰 ARBITRAGE OPPORTUNITY\n\n"+
			"Question: %s\n\n"+
			"📊 Pricing:\n"+
			"  %s: %.4f\n"+
			"  %s: %.4f\n"+
			"  Spread: %.4f\n\n"+
			"💵 Trade Details:\n"+
			"  Edge: %.2f%%\n"+
			"  Position Size: $%.2f\n"+
			"  Expected Profit: $%.2f\n"+
			"  Expected ROI: %.2f%%\n\n"+
			"🏦 Markets:\n"+
			"  %s\n"+
			"  %s\n\n"+
			"⏰ Detected: %s",
		truncate(opp.PairedEvent.ListingA.Question, 100),
		opp.PairedEvent.ListingA.Venue, p1,
		opp.PairedEvent.ListingB.Venue, p2,
		spread,
		edge*100, size, profit, roi*100,
		opp.PairedEvent.ListingA.NativeID, opp.PairedEvent.ListingB.NativeID,
		opp.DetectedAt.Format("15:04:05"),
	)
	return t.send(ctx, text)
}

// NotifyExecution always sends; a failed execution is the highest-signal
// event the bot produces.
func (t *Telegram) NotifyExecution(ctx context.Context, result domain.ExecutionResult, opp *domain.Opportunity) error {
	statusEmoji := "✅"
	if !result.Success {
		statusEmoji = "❌"
	}

	text := fmt.Sprintf("%s TRADE EXECUTION\n\nPosition: %s\nStatus: %s\n\n",
		statusEmoji, result.PositionID, statusText(result.Success))

	if result.Success {
		cost, _ := result.ActualCost.Float64()
		text += fmt.Sprintf(
			"📝 Orders:\n  Leg1: %s\n  Leg2: %s\n\n  Leg1 Filled: %s\n  Leg2 Filled: %s\n\n  Cost: $%.2f\n",
			result.Leg1OrderID, result.Leg2OrderID,
			checkmark(result.Leg1Filled), checkmark(result.Leg2Filled), cost,
		)
		if opp != nil {
			profit, _ := opp.ExpectedProfit.Float64()
			text += fmt.Sprintf("  Expected Profit: $%.2f\n", profit)
		}
	} else {
		text += fmt.Sprintf("❌ Error: %s\n", result.ErrorMessage)
	}

	text += fmt.Sprintf("\n⏰ Executed: %s", result.ExecutedAt.Format("15:04:05"))
	return t.send(ctx, text)
}

// NotifyError always sends.
func (t *Telegram) NotifyError(ctx context.Context, errType, message string) error {
	text := fmt.Sprintf("🚨 ERROR ALERT\n\nType: %s\nMessage: %s\nTime: %s",
		errType, message, time.Now().Format("2006-01-02 15:04:05"))
	return t.send(ctx, text)
}

// NotifyDailySummary always sends.
func (t *Telegram) NotifyDailySummary(ctx context.Context, summary domain.PerformanceSummary, portfolio domain.PortfolioState) error {
	pnl, _ := summary.TotalPnL.Float64()
	vol, _ := summary.TotalVolume.Float64()
	total, _ := portfolio.TotalBalance().Float64()
	balA, _ := portfolio.BalanceA.Float64()
	balB, _ := portfolio.BalanceB.Float64()

	text := fmt.Sprintf(
		"📈 DAILY SUMMARY\n\n"+
			"🔍 Opportunities:\n"+
			"  Detected: %d\n"+
			"  Executed: %d\n"+
			"  Successful: %d\n\n"+
			"💰 Performance:\n"+
			"  Total P&L: $%.2f\n"+
			"  Volume: $%.2f\n"+
			"  Win Rate: %.1f%%\n\n"+
			"📊 Balance:\n"+
			"  Total: $%.2f\n"+
			"  Venue A: $%.2f\n"+
			"  Venue B: $%.2f\n\n"+
			"⏰ %s",
		summary.OpportunitiesFound, summary.TradesExecuted, summary.TradesSuccessful,
		pnl, vol, summary.WinRate*100,
		total, balA, balB,
		time.Now().Format("2006-01-02 15:04:05"),
	)
	return t.send(ctx, text)
}

// Test sends a canary message to confirm the bot/chat are reachable.
func (t *Telegram) Test(ctx context.Context) error {
	return t.send(ctx, "✅ Orion Arbitrage Bot - Alert system test")
}

func statusText(success bool) string {
	if success {
		return "SUCCESS"
	}
	return "FAILED"
}

func checkmark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
