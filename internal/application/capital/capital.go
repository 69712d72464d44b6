// Package capital owns the portfolio snapshot and is the single policy
// gate for opening and closing positions: capital availability,
// per-event exposure, open-position count, and the daily-loss cutoff.
package capital

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
)

// Config bundles the capital/risk parameters that drive allocation
// decisions, lifted from config.CapitalConfig and config.RiskConfig.
type Config struct {
	ReservePct          float64
	RebalanceThreshold  float64
	MaxOpenPositions    int
	MaxExposurePerEvent float64
	MaxDailyLossPct     float64
}

// position tracks one open allocation so ReleaseCapital can find and
// free it by ID.
type position struct {
	size decimal.Decimal
}

// Manager implements ports.CapitalManager. All state transitions run
// under mu, making a check-then-allocate sequence atomic with respect
// to concurrent releases or balance updates.
type Manager struct {
	mu  sync.Mutex
	cfg Config

	state     domain.PortfolioState
	positions map[string]position
}

// New builds a Manager with its initial venue-A/venue-B split already
// applied to state.
func New(cfg Config, initialBalanceA, initialBalanceB decimal.Decimal) *Manager {
	total := initialBalanceA.Add(initialBalanceB)
	return &Manager{
		cfg: cfg,
		state: domain.PortfolioState{
			BalanceA:          initialBalanceA,
			BalanceB:          initialBalanceB,
			DailyStartBalance: total,
			PeakBalance:       total,
			LastUpdated:       time.Now(),
		},
		positions: make(map[string]position),
	}
}

// AvailableCapital is the total balance less capital already locked in
// open positions and less the reserve buffer.
func (m *Manager) AvailableCapital() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availableCapitalLocked()
}

func (m *Manager) availableCapitalLocked() decimal.Decimal {
	total := m.state.TotalBalance()
	reserve := total.Mul(decimal.NewFromFloat(m.cfg.ReservePct))
	return total.Sub(m.state.LockedCapital).Sub(reserve)
}

// CanOpenPosition reports whether size can be allocated without
// violating the open-position count, available capital, per-event
// exposure, or daily-loss gates.
func (m *Manager) CanOpenPosition(size decimal.Decimal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canOpenPositionLocked(size)
}

func (m *Manager) canOpenPositionLocked(size decimal.Decimal) bool {
	if m.state.OpenPositions >= m.cfg.MaxOpenPositions {
		return false
	}
	if size.GreaterThan(m.availableCapitalLocked()) {
		return false
	}

	total := m.state.TotalBalance()
	maxExposure := total.Mul(decimal.NewFromFloat(m.cfg.MaxExposurePerEvent))
	if size.GreaterThan(maxExposure) {
		return false
	}

	if m.state.DailyStartBalance.IsPositive() && m.state.DailyPnL.IsNegative() {
		maxLoss := m.state.DailyStartBalance.Mul(decimal.NewFromFloat(m.cfg.MaxDailyLossPct))
		if m.state.DailyPnL.Neg().GreaterThanOrEqual(maxLoss) {
			return false
		}
	}

	return true
}

// AllocateCapital atomically re-checks CanOpenPosition and, if it still
// holds, locks size against positionID and increments the open-position
// count. Returns false (no state change) if the position cannot open.
func (m *Manager) AllocateCapital(size decimal.Decimal, positionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canOpenPositionLocked(size) {
		return false
	}

	m.positions[positionID] = position{size: size}
	m.state.LockedCapital = m.state.LockedCapital.Add(size)
	m.state.OpenPositions++
	m.state.LastUpdated = time.Now()
	return true
}

// ReleaseCapital frees a previously allocated position and applies its
// realized P&L to the running totals. Unknown position IDs are a no-op.
func (m *Manager) ReleaseCapital(positionID string, realizedPnL decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[positionID]
	if !ok {
		return
	}
	delete(m.positions, positionID)

	m.state.LockedCapital = m.state.LockedCapital.Sub(pos.size)
	m.state.OpenPositions--
	m.state.RealizedPnL = m.state.RealizedPnL.Add(realizedPnL)
	m.state.DailyPnL = m.state.DailyPnL.Add(realizedPnL)

	total := m.state.TotalBalance().Add(realizedPnL)
	if total.GreaterThan(m.state.PeakBalance) {
		m.state.PeakBalance = total
	}
	m.state.LastUpdated = time.Now()
}

// UpdateBalances overwrites the live per-venue balances, e.g. after a
// refresh poll against each venue's account endpoint.
func (m *Manager) UpdateBalances(balanceA, balanceB decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.BalanceA = balanceA
	m.state.BalanceB = balanceB
	total := m.state.TotalBalance()
	if total.GreaterThan(m.state.PeakBalance) {
		m.state.PeakBalance = total
	}
	m.state.LastUpdated = time.Now()
}

// ResetDailyMetrics re-baselines DailyStartBalance and zeroes DailyPnL;
// called by the engine's scheduled job at the configured reset hour.
func (m *Manager) ResetDailyMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.DailyStartBalance = m.state.TotalBalance()
	m.state.DailyPnL = decimal.Zero
}

// PortfolioState returns a snapshot copy of the current state.
func (m *Manager) PortfolioState() domain.PortfolioState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NeedsRebalancing reports whether either venue's share of total
// balance has drifted beyond RebalanceThreshold from an even split.
func (m *Manager) NeedsRebalancing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.state.TotalBalance()
	if !total.IsPositive() {
		return false
	}
	shareA, _ := m.state.BalanceA.Div(total).Float64()
	drift := shareA - 0.5
	if drift < 0 {
		drift = -drift
	}
	return drift > m.cfg.RebalanceThreshold
}

// RebalanceTargets computes, but never executes, the cross-venue
// transfer that would restore an even balance split.
func (m *Manager) RebalanceTargets() domain.RebalanceTargets {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.state.TotalBalance()
	half := total.Div(decimal.NewFromInt(2))
	deltaA := half.Sub(m.state.BalanceA)
	deltaB := half.Sub(m.state.BalanceB)

	transferToA := deltaA.IsPositive()
	amount := deltaA
	if !transferToA {
		amount = deltaA.Neg()
	}

	return domain.RebalanceTargets{
		DeltaA:         deltaA,
		DeltaB:         deltaB,
		TransferToA:    transferToA,
		TransferAmount: amount,
	}
}
