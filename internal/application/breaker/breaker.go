// Package breaker implements the trading halt latch: once daily loss or
// peak drawdown crosses its configured threshold, every subsequent
// Check call fails until a human calls ManualReset.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// Config bundles the two latch thresholds and the daily reset hour,
// lifted from config.RiskConfig.
type Config struct {
	MaxDailyLossPct float64
	MaxDrawdownPct  float64
	ResetHourUTC    int
}

// Breaker implements ports.CircuitBreaker.
type Breaker struct {
	mu  sync.Mutex
	cfg Config

	open       bool
	tripReason string

	dayStartBalance decimal.Decimal
	peakBalance     decimal.Decimal
	lastResetDay    time.Time
}

// New builds a Breaker seeded with startingBalance as both the initial
// daily baseline and the initial peak.
func New(cfg Config, startingBalance decimal.Decimal) *Breaker {
	return &Breaker{
		cfg:             cfg,
		dayStartBalance: startingBalance,
		peakBalance:     startingBalance,
		lastResetDay:    time.Now().UTC(),
	}
}

// Check rolls the daily baseline forward if the configured reset hour
// has been crossed since the last check, updates the running peak, and
// evaluates the daily-loss and drawdown latches. Once open, it returns
// domain.ErrCircuitOpen on every call until ManualReset.
func (b *Breaker) Check(currentBalance, currentPnL decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return fmt.Errorf("%w: %s", domain.ErrCircuitOpen, b.tripReason)
	}

	b.maybeResetDaily(currentBalance)

	if currentBalance.GreaterThan(b.peakBalance) {
		b.peakBalance = currentBalance
	}

	if b.dayStartBalance.IsPositive() {
		dailyLossPct, _ := b.dayStartBalance.Sub(currentBalance).Div(b.dayStartBalance).Float64()
		if dailyLossPct >= b.cfg.MaxDailyLossPct {
			b.trip(fmt.Sprintf("daily loss %.2f%% exceeds limit %.2f%%", dailyLossPct*100, b.cfg.MaxDailyLossPct*100))
			return fmt.Errorf("%w: %s", domain.ErrCircuitOpen, b.tripReason)
		}
	}

	if b.peakBalance.IsPositive() {
		drawdownPct, _ := b.peakBalance.Sub(currentBalance).Div(b.peakBalance).Float64()
		if drawdownPct >= b.cfg.MaxDrawdownPct {
			b.trip(fmt.Sprintf("drawdown %.2f%% from peak exceeds limit %.2f%%", drawdownPct*100, b.cfg.MaxDrawdownPct*100))
			return fmt.Errorf("%w: %s", domain.ErrCircuitOpen, b.tripReason)
		}
	}

	return nil
}

// maybeResetDaily re-baselines dayStartBalance the first time Check
// runs on or after the configured reset hour on a new UTC calendar
// day relative to the last reset.
func (b *Breaker) maybeResetDaily(currentBalance decimal.Decimal) {
	now := time.Now().UTC()
	resetBoundary := time.Date(now.Year(), now.Month(), now.Day(), b.cfg.ResetHourUTC, 0, 0, 0, time.UTC)
	if now.Before(resetBoundary) {
		resetBoundary = resetBoundary.AddDate(0, 0, -1)
	}
	if resetBoundary.After(b.lastResetDay) {
		b.dayStartBalance = currentBalance
		b.lastResetDay = now
	}
}

func (b *Breaker) trip(reason string) {
	b.open = true
	b.tripReason = reason
}

// ManualReset clears the open latch. It does not reset the daily
// baseline or peak — those evolve independently on their own schedule.
func (b *Breaker) ManualReset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.tripReason = ""
}

// IsOpen reports the current latch state without side effects.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
