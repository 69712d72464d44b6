// Package engine wires together the matcher, detector, capital
// manager, circuit breaker, executor and journal into the scanning
// loop and its scheduled background jobs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

// Config bundles the runtime knobs the engine loop needs beyond what
// each component already owns.
type Config struct {
	PollInterval       time.Duration
	MarketLimit        int
	AutoExecute        bool
	MaxConcurrentTrades int
	ResetHourUTC       int
}

// Engine orchestrates one complete scan-detect-execute cycle and the
// periodic housekeeping jobs (balance refresh, snapshots, daily
// summary, daily-metrics reset).
type Engine struct {
	cfg Config

	venueA ports.VenueClient
	venueB ports.VenueClient

	matcher  ports.EventMatcher
	detector ports.Detector
	capital  ports.CapitalManager
	breaker  ports.CircuitBreaker
	executor ports.Executor
	journal  ports.Journal
	notifier ports.Notifier

	mode domain.ExecutionMode
	log  *slog.Logger

	// tradeGate serializes the circuit-breaker check and the capital
	// open-position check so the two run as one atomic decision rather
	// than through their components' independent mutexes.
	tradeGate sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New builds an Engine from its fully-wired dependencies.
func New(
	cfg Config,
	venueA, venueB ports.VenueClient,
	matcher ports.EventMatcher,
	detector ports.Detector,
	capital ports.CapitalManager,
	breaker ports.CircuitBreaker,
	executor ports.Executor,
	journal ports.Journal,
	notifier ports.Notifier,
	mode domain.ExecutionMode,
	log *slog.Logger,
) *Engine {
	return &Engine{
		cfg: cfg, venueA: venueA, venueB: venueB,
		matcher: matcher, detector: detector, capital: capital,
		breaker: breaker, executor: executor, journal: journal, notifier: notifier,
		mode: mode, log: log, stopCh: make(chan struct{}),
	}
}

// Run starts the scheduled background jobs and blocks running the
// main scan loop at cfg.PollInterval until ctx is cancelled, Stop is
// called, or the circuit breaker halts trading (which also stops the
// scheduled jobs).
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting", "mode", e.mode, "interval", e.cfg.PollInterval, "auto_execute", e.cfg.AutoExecute)

	if err := e.notifier.Test(ctx); err != nil {
		e.log.Warn("notifier test failed", "err", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runScheduledJobs(ctx)
	}()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	iteration := 0
	for {
		iteration++
		if err := e.scanAndExecute(ctx); err != nil {
			e.log.Error("scan cycle error", "iteration", iteration, "err", err)
			_ = e.notifier.NotifyError(ctx, "scan_cycle", err.Error())
			if err == errHalted {
				e.Stop()
				wg.Wait()
				return nil
			}
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-e.stopCh:
			wg.Wait()
			return nil
		case <-ticker.C:
		}
	}
}

// Stop requests a graceful shutdown of the running loop.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

var errHalted = fmt.Errorf("trading halted by circuit breaker")

// scanAndExecute runs exactly one scan-detect-execute cycle: circuit
// breaker gate, parallel catalogue fetch, matching, parallel quote
// fetch, detection, then top-N journal/alert/execute.
func (e *Engine) scanAndExecute(ctx context.Context) error {
	if err := e.checkBreaker(); err != nil {
		_ = e.notifier.NotifyError(ctx, "circuit_breaker", err.Error())
		return errHalted
	}

	listingsA, listingsB, err := e.fetchCatalogues(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalogues: %w", err)
	}
	if len(listingsA) == 0 || len(listingsB) == 0 {
		e.log.Warn("no listings fetched, skipping iteration", "venue_a", len(listingsA), "venue_b", len(listingsB))
		return nil
	}

	paired := e.matcher.FindMatches(listingsA, listingsB)
	if len(paired) == 0 {
		e.log.Info("no matching listings this cycle")
		return nil
	}

	quotes := e.fetchQuotes(ctx, paired)

	bankroll := e.capital.AvailableCapital()
	opportunities := e.detector.ScanOpportunities(paired, quotes, bankroll)
	if len(opportunities) == 0 {
		e.log.Info("no profitable opportunities this cycle")
		return nil
	}

	top := opportunities
	if len(top) > e.cfg.MaxConcurrentTrades {
		top = top[:e.cfg.MaxConcurrentTrades]
		e.log.Info("capping execution to top opportunities", "found", len(opportunities), "executing_at_most", e.cfg.MaxConcurrentTrades)
	}

	for _, opp := range top {
		e.handleOpportunity(ctx, opp)
	}
	return nil
}

func (e *Engine) fetchCatalogues(ctx context.Context) ([]domain.Listing, []domain.Listing, error) {
	var listingsA, listingsB []domain.Listing
	var errA, errB error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		listingsA, errA = e.venueA.ListMarkets(ctx, e.cfg.MarketLimit)
	}()
	go func() {
		defer wg.Done()
		listingsB, errB = e.venueB.ListMarkets(ctx, e.cfg.MarketLimit)
	}()
	wg.Wait()

	if errA != nil {
		return nil, nil, fmt.Errorf("venue A: %w", errA)
	}
	if errB != nil {
		return nil, nil, fmt.Errorf("venue B: %w", errB)
	}
	return listingsA, listingsB, nil
}

// fetchQuotes fetches the four best-of-book prices for every paired
// event concurrently, keyed by the venue-A native ID as ScanOpportunities
// expects.
func (e *Engine) fetchQuotes(ctx context.Context, paired []domain.PairedEvent) map[string]ports.Quotes {
	quotes := make(map[string]ports.Quotes, len(paired))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range paired {
		wg.Add(1)
		go func(p domain.PairedEvent) {
			defer wg.Done()
			q := ports.Quotes{
				YesA: e.quote(ctx, e.venueA, p.ListingA.NativeID, domain.SideYes),
				NoA:  e.quote(ctx, e.venueA, p.ListingA.NativeID, domain.SideNo),
				YesB: e.quote(ctx, e.venueB, p.ListingB.NativeID, domain.SideYes),
				NoB:  e.quote(ctx, e.venueB, p.ListingB.NativeID, domain.SideNo),
			}
			mu.Lock()
			quotes[p.ListingA.NativeID] = q
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return quotes
}

func (e *Engine) quote(ctx context.Context, client ports.VenueClient, nativeID string, side domain.Side) *float64 {
	price, err := client.FetchQuote(ctx, nativeID, side)
	if err != nil {
		e.log.Debug("quote fetch failed", "native_id", nativeID, "side", side, "err", err)
		return nil
	}
	return price
}

// handleOpportunity journals and alerts on a detected opportunity, and
// executes it immediately if auto-execute is enabled.
func (e *Engine) handleOpportunity(ctx context.Context, opp domain.Opportunity) {
	positionID := fmt.Sprintf("arb_%s_%s", uuid.New().String(), opp.PairedEvent.ListingA.NativeID)

	if err := e.journal.SaveOpportunity(ctx, opp, positionID, e.mode); err != nil {
		e.log.Error("failed to save opportunity", "position_id", positionID, "err", err)
	}
	if err := e.notifier.NotifyOpportunity(ctx, opp); err != nil {
		e.log.Warn("failed to send opportunity alert", "err", err)
	}

	if !e.cfg.AutoExecute {
		e.log.Info("auto-execute disabled, skipping execution", "position_id", positionID)
		return
	}
	e.executeOpportunity(ctx, opp, positionID)
}

func (e *Engine) executeOpportunity(ctx context.Context, opp domain.Opportunity, positionID string) {
	if !e.canOpenAndAllocate(opp, positionID) {
		return
	}

	result := e.executor.ExecuteArbitrage(ctx, opp, positionID)

	if err := e.journal.SaveTrade(ctx, result, e.mode); err != nil {
		e.log.Error("failed to save trade", "position_id", positionID, "err", err)
	}
	if err := e.notifier.NotifyExecution(ctx, result, &opp); err != nil {
		e.log.Warn("failed to send execution alert", "err", err)
	}

	if !result.Success {
		e.capital.ReleaseCapital(positionID, decimal.Zero)
		e.log.Error("execution failed", "position_id", positionID, "err", result.ErrorMessage)
		return
	}
	e.log.Info("executed opportunity", "position_id", positionID)
}

// checkBreaker reports the circuit breaker's current verdict under
// tradeGate, the same mutex canOpenAndAllocate uses for its own check,
// so a breaker trip observed here can't be stale by the time a trade
// opens.
func (e *Engine) checkBreaker() error {
	e.tradeGate.Lock()
	defer e.tradeGate.Unlock()

	portfolio := e.capital.PortfolioState()
	return e.breaker.Check(portfolio.TotalBalance(), portfolio.TotalPnL())
}

// canOpenAndAllocate re-checks the circuit breaker and the capital
// manager's open-position policy under one mutex, then allocates:
// the breaker check and the can-open check run as a single atomic
// decision instead of through breaker.Breaker's and capital.Manager's
// independent mutexes.
func (e *Engine) canOpenAndAllocate(opp domain.Opportunity, positionID string) bool {
	e.tradeGate.Lock()
	defer e.tradeGate.Unlock()

	portfolio := e.capital.PortfolioState()
	if err := e.breaker.Check(portfolio.TotalBalance(), portfolio.TotalPnL()); err != nil {
		e.log.Warn("cannot open position, circuit breaker tripped", "position_id", positionID, "err", err)
		return false
	}
	if !e.capital.CanOpenPosition(opp.PositionSizeQuote) {
		e.log.Warn("cannot open position, capital constraints", "position_id", positionID)
		return false
	}
	if !e.capital.AllocateCapital(opp.PositionSizeQuote, positionID) {
		e.log.Error("failed to allocate capital", "position_id", positionID)
		return false
	}
	return true
}

// runScheduledJobs drives the four periodic housekeeping tasks until
// ctx is cancelled or Stop is called: balance refresh every 5 minutes,
// a balance snapshot every 15 minutes, a daily summary at the reset
// hour, and a daily-metrics reset one minute after.
func (e *Engine) runScheduledJobs(ctx context.Context) {
	balanceTicker := time.NewTicker(5 * time.Minute)
	snapshotTicker := time.NewTicker(15 * time.Minute)
	dailyTicker := time.NewTicker(time.Minute)
	defer balanceTicker.Stop()
	defer snapshotTicker.Stop()
	defer dailyTicker.Stop()

	lastDailyRun := -1

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-balanceTicker.C:
			e.refreshBalances(ctx)
		case <-snapshotTicker.C:
			e.saveSnapshot(ctx)
		case <-dailyTicker.C:
			now := time.Now().UTC()
			if now.Hour() == e.cfg.ResetHourUTC && now.Minute() == 0 && lastDailyRun != now.YearDay() {
				lastDailyRun = now.YearDay()
				e.sendDailySummary(ctx)
			}
			if now.Hour() == e.cfg.ResetHourUTC && now.Minute() == 1 {
				e.capital.ResetDailyMetrics()
			}
		}
	}
}

func (e *Engine) refreshBalances(ctx context.Context) {
	balanceA, err := e.venueA.Balance(ctx)
	if err != nil {
		e.log.Error("failed to refresh venue A balance", "err", err)
		return
	}
	balanceB, err := e.venueB.Balance(ctx)
	if err != nil {
		e.log.Error("failed to refresh venue B balance", "err", err)
		return
	}
	e.capital.UpdateBalances(balanceA, balanceB)
}

func (e *Engine) saveSnapshot(ctx context.Context) {
	if err := e.journal.SaveBalanceSnapshot(ctx, e.capital.PortfolioState(), e.mode); err != nil {
		e.log.Error("failed to save balance snapshot", "err", err)
	}
}

func (e *Engine) sendDailySummary(ctx context.Context) {
	summary, err := e.journal.GetPerformanceSummary(ctx, 1, e.mode)
	if err != nil {
		e.log.Error("failed to build daily summary", "err", err)
		return
	}
	if err := e.notifier.NotifyDailySummary(ctx, summary, e.capital.PortfolioState()); err != nil {
		e.log.Warn("failed to send daily summary", "err", err)
	}
}
