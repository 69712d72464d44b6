package ports

import "github.com/shopspring/decimal"

// CircuitBreaker halts the entire pipeline on daily-loss or peak-drawdown
// thresholds. Reset is strictly manual (§4.6).
type CircuitBreaker interface {
	// Check evaluates the two latch conditions against the current
	// balance and P&L. Returns an error (ErrCircuitOpen from domain, or
	// a trip reason) if trading must halt.
	Check(currentBalance, currentPnL decimal.Decimal) error

	ManualReset()
	IsOpen() bool
}
