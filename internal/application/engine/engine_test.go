package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

type stubVenue struct {
	venue    domain.Venue
	listings []domain.Listing
	listErr  error
	balance  decimal.Decimal
}

func (s *stubVenue) Venue() domain.Venue { return s.venue }
func (s *stubVenue) ListMarkets(context.Context, int) ([]domain.Listing, error) {
	return s.listings, s.listErr
}
func (s *stubVenue) FetchQuote(context.Context, string, domain.Side) (*float64, error) {
	p := 0.45
	return &p, nil
}
func (s *stubVenue) PlaceOrder(context.Context, ports.PlaceOrderRequest) (domain.OrderResult, error) {
	return domain.OrderResult{}, nil
}
func (s *stubVenue) OrderStatus(context.Context, string) (domain.OrderResult, error) {
	return domain.OrderResult{}, nil
}
func (s *stubVenue) CancelOrder(context.Context, string) (bool, error) { return true, nil }
func (s *stubVenue) Balance(context.Context) (decimal.Decimal, error) { return s.balance, nil }

type stubMatcher struct {
	pairs []domain.PairedEvent
}

func (s *stubMatcher) FindMatches(listingsA, listingsB []domain.Listing) []domain.PairedEvent {
	return s.pairs
}

type stubDetector struct {
	opportunities []domain.Opportunity
}

func (s *stubDetector) DetectBest(domain.PairedEvent, ports.Quotes, decimal.Decimal) (domain.Opportunity, bool) {
	return domain.Opportunity{}, false
}
func (s *stubDetector) ScanOpportunities([]domain.PairedEvent, map[string]ports.Quotes, decimal.Decimal) []domain.Opportunity {
	return s.opportunities
}

type stubCapital struct {
	mu              sync.Mutex
	available       decimal.Decimal
	canOpen         bool
	allocateOK      bool
	allocateCalls   int
	releaseCalls    int
	releasedPnL     []decimal.Decimal
	portfolio       domain.PortfolioState
	needsRebalance  bool
}

func (s *stubCapital) AvailableCapital() decimal.Decimal { return s.available }
func (s *stubCapital) CanOpenPosition(decimal.Decimal) bool { return s.canOpen }
func (s *stubCapital) AllocateCapital(decimal.Decimal, string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocateCalls++
	return s.allocateOK
}
func (s *stubCapital) ReleaseCapital(positionID string, realizedPnL decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseCalls++
	s.releasedPnL = append(s.releasedPnL, realizedPnL)
}
func (s *stubCapital) UpdateBalances(balanceA, balanceB decimal.Decimal) {}
func (s *stubCapital) ResetDailyMetrics()                                {}
func (s *stubCapital) PortfolioState() domain.PortfolioState             { return s.portfolio }
func (s *stubCapital) NeedsRebalancing() bool                            { return s.needsRebalance }
func (s *stubCapital) RebalanceTargets() domain.RebalanceTargets         { return domain.RebalanceTargets{} }

type stubBreaker struct {
	err error
}

func (s *stubBreaker) Check(decimal.Decimal, decimal.Decimal) error { return s.err }
func (s *stubBreaker) ManualReset()                                 {}
func (s *stubBreaker) IsOpen() bool                                  { return s.err != nil }

type stubExecutor struct {
	result domain.ExecutionResult
}

func (s *stubExecutor) ExecuteArbitrage(context.Context, domain.Opportunity, string) domain.ExecutionResult {
	return s.result
}
func (s *stubExecutor) CheckOrderStatus(context.Context, domain.Venue, string) (domain.OrderStatus, error) {
	return domain.OrderFilled, nil
}

type stubJournal struct {
	savedOpportunities int32
	savedTrades        int32
}

func (s *stubJournal) SaveOpportunity(context.Context, domain.Opportunity, string, domain.ExecutionMode) error {
	atomic.AddInt32(&s.savedOpportunities, 1)
	return nil
}
func (s *stubJournal) SaveTrade(context.Context, domain.ExecutionResult, domain.ExecutionMode) error {
	atomic.AddInt32(&s.savedTrades, 1)
	return nil
}
func (s *stubJournal) ClosePosition(context.Context, string, decimal.Decimal, domain.ExecutionMode) error {
	return nil
}
func (s *stubJournal) SaveBalanceSnapshot(context.Context, domain.PortfolioState, domain.ExecutionMode) error {
	return nil
}
func (s *stubJournal) GetRecentOpportunities(context.Context, int, domain.ExecutionMode) ([]domain.OpportunityLog, error) {
	return nil, nil
}
func (s *stubJournal) GetOpenPositions(context.Context, domain.ExecutionMode) ([]domain.TradeLog, error) {
	return nil, nil
}
func (s *stubJournal) GetPerformanceSummary(context.Context, int, domain.ExecutionMode) (domain.PerformanceSummary, error) {
	return domain.PerformanceSummary{}, nil
}
func (s *stubJournal) GetLatestBalance(context.Context, domain.ExecutionMode) (*domain.BalanceSnapshot, error) {
	return nil, nil
}
func (s *stubJournal) Close() error { return nil }

type stubNotifier struct {
	errorCalls int32
}

func (s *stubNotifier) NotifyOpportunity(context.Context, domain.Opportunity) error { return nil }
func (s *stubNotifier) NotifyExecution(context.Context, domain.ExecutionResult, *domain.Opportunity) error {
	return nil
}
func (s *stubNotifier) NotifyError(context.Context, string, string) error {
	atomic.AddInt32(&s.errorCalls, 1)
	return nil
}
func (s *stubNotifier) NotifyDailySummary(context.Context, domain.PerformanceSummary, domain.PortfolioState) error {
	return nil
}
func (s *stubNotifier) Test(context.Context) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPair() domain.PairedEvent {
	return domain.PairedEvent{
		ListingA: domain.Listing{NativeID: "a1", Venue: domain.VenueA, Question: "Will X happen?"},
		ListingB: domain.Listing{NativeID: "b1", Venue: domain.VenueB, Question: "Will X happen?"},
	}
}

func newTestEngine(venueA, venueB *stubVenue, matcher *stubMatcher, detector *stubDetector, capital *stubCapital, breaker *stubBreaker, executor *stubExecutor, journal *stubJournal, notifier *stubNotifier) *Engine {
	return New(
		Config{PollInterval: time.Hour, MarketLimit: 100, AutoExecute: true, MaxConcurrentTrades: 5, ResetHourUTC: 0},
		venueA, venueB, matcher, detector, capital, breaker, executor, journal, notifier,
		domain.ModePaper, testLogger(),
	)
}

func TestScanAndExecute_CircuitBreakerOpenHaltsCycle(t *testing.T) {
	venueA := &stubVenue{venue: domain.VenueA}
	venueB := &stubVenue{venue: domain.VenueB}
	journal := &stubJournal{}
	notifier := &stubNotifier{}
	e := newTestEngine(venueA, venueB, &stubMatcher{}, &stubDetector{}, &stubCapital{}, &stubBreaker{err: errors.New("tripped")}, &stubExecutor{}, journal, notifier)

	err := e.scanAndExecute(context.Background())
	require.Error(t, err)
	assert.Equal(t, errHalted, err)
	assert.Equal(t, int32(1), notifier.errorCalls)
	assert.Equal(t, int32(0), journal.savedOpportunities)
}

func TestScanAndExecute_NoListingsIsANoop(t *testing.T) {
	venueA := &stubVenue{venue: domain.VenueA}
	venueB := &stubVenue{venue: domain.VenueB}
	e := newTestEngine(venueA, venueB, &stubMatcher{}, &stubDetector{}, &stubCapital{}, &stubBreaker{}, &stubExecutor{}, &stubJournal{}, &stubNotifier{})

	err := e.scanAndExecute(context.Background())
	assert.NoError(t, err)
}

func TestScanAndExecute_CatalogueFetchErrorPropagates(t *testing.T) {
	venueA := &stubVenue{venue: domain.VenueA, listErr: fmt.Errorf("network down")}
	venueB := &stubVenue{venue: domain.VenueB}
	e := newTestEngine(venueA, venueB, &stubMatcher{}, &stubDetector{}, &stubCapital{}, &stubBreaker{}, &stubExecutor{}, &stubJournal{}, &stubNotifier{})

	err := e.scanAndExecute(context.Background())
	require.Error(t, err)
	assert.NotEqual(t, errHalted, err)
}

func TestScanAndExecute_ProfitableOpportunityIsJournaledAlertedAndExecuted(t *testing.T) {
	pair := testPair()
	venueA := &stubVenue{venue: domain.VenueA, listings: []domain.Listing{pair.ListingA}}
	venueB := &stubVenue{venue: domain.VenueB, listings: []domain.Listing{pair.ListingB}}
	matcher := &stubMatcher{pairs: []domain.PairedEvent{pair}}
	opp := domain.Opportunity{
		PairedEvent:       pair,
		PositionSizeQuote: decimal.NewFromInt(100),
		ExpectedProfit:    decimal.NewFromInt(5),
		DetectedAt:        time.Unix(0, 1),
	}
	detector := &stubDetector{opportunities: []domain.Opportunity{opp}}
	capital := &stubCapital{available: decimal.NewFromInt(1000), canOpen: true, allocateOK: true}
	executor := &stubExecutor{result: domain.ExecutionResult{PositionID: "arb_1_a1", Success: true}}
	journal := &stubJournal{}
	notifier := &stubNotifier{}

	e := newTestEngine(venueA, venueB, matcher, detector, capital, &stubBreaker{}, executor, journal, notifier)
	err := e.scanAndExecute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), journal.savedOpportunities)
	assert.Equal(t, int32(1), journal.savedTrades)
	assert.Equal(t, 1, capital.allocateCalls)
	assert.Equal(t, 0, capital.releaseCalls)
}

func TestScanAndExecute_CapsExecutionAtMaxConcurrentTrades(t *testing.T) {
	pair := testPair()
	venueA := &stubVenue{venue: domain.VenueA, listings: []domain.Listing{pair.ListingA}}
	venueB := &stubVenue{venue: domain.VenueB, listings: []domain.Listing{pair.ListingB}}
	matcher := &stubMatcher{pairs: []domain.PairedEvent{pair}}

	var opps []domain.Opportunity
	for i := 0; i < 10; i++ {
		opps = append(opps, domain.Opportunity{
			PairedEvent:       pair,
			PositionSizeQuote: decimal.NewFromInt(100),
			DetectedAt:        time.Unix(0, int64(i+1)),
		})
	}
	detector := &stubDetector{opportunities: opps}
	capital := &stubCapital{available: decimal.NewFromInt(1000), canOpen: true, allocateOK: true}
	executor := &stubExecutor{result: domain.ExecutionResult{Success: true}}
	journal := &stubJournal{}

	e := newTestEngine(venueA, venueB, matcher, detector, capital, &stubBreaker{}, executor, journal, &stubNotifier{})
	require.NoError(t, e.scanAndExecute(context.Background()))

	assert.Equal(t, int32(5), journal.savedOpportunities)
}

func TestExecuteOpportunity_CapitalGateRejectsBeforeAllocating(t *testing.T) {
	capital := &stubCapital{canOpen: false}
	journal := &stubJournal{}
	e := newTestEngine(&stubVenue{venue: domain.VenueA}, &stubVenue{venue: domain.VenueB}, &stubMatcher{}, &stubDetector{}, capital, &stubBreaker{}, &stubExecutor{}, journal, &stubNotifier{})

	e.executeOpportunity(context.Background(), domain.Opportunity{PositionSizeQuote: decimal.NewFromInt(100)}, "pos-1")
	assert.Equal(t, 0, capital.allocateCalls)
	assert.Equal(t, int32(0), journal.savedTrades)
}

func TestExecuteOpportunity_FailedExecutionReleasesCapital(t *testing.T) {
	capital := &stubCapital{canOpen: true, allocateOK: true}
	executor := &stubExecutor{result: domain.ExecutionResult{Success: false, ErrorMessage: "partial fill"}}
	journal := &stubJournal{}
	e := newTestEngine(&stubVenue{venue: domain.VenueA}, &stubVenue{venue: domain.VenueB}, &stubMatcher{}, &stubDetector{}, capital, &stubBreaker{}, executor, journal, &stubNotifier{})

	e.executeOpportunity(context.Background(), domain.Opportunity{PositionSizeQuote: decimal.NewFromInt(100)}, "pos-1")
	assert.Equal(t, 1, capital.allocateCalls)
	assert.Equal(t, 1, capital.releaseCalls)
	require.Len(t, capital.releasedPnL, 1)
	assert.True(t, capital.releasedPnL[0].IsZero())
}

func TestHandleOpportunity_AutoExecuteDisabledSkipsExecution(t *testing.T) {
	capital := &stubCapital{canOpen: true, allocateOK: true}
	journal := &stubJournal{}
	e := newTestEngine(&stubVenue{venue: domain.VenueA}, &stubVenue{venue: domain.VenueB}, &stubMatcher{}, &stubDetector{}, capital, &stubBreaker{}, &stubExecutor{}, journal, &stubNotifier{})
	e.cfg.AutoExecute = false

	e.handleOpportunity(context.Background(), domain.Opportunity{DetectedAt: time.Unix(0, 1), PairedEvent: testPair()})
	assert.Equal(t, int32(1), journal.savedOpportunities)
	assert.Equal(t, int32(0), journal.savedTrades)
	assert.Equal(t, 0, capital.allocateCalls)
}

func TestStop_IsIdempotent(t *testing.T) {
	e := newTestEngine(&stubVenue{venue: domain.VenueA}, &stubVenue{venue: domain.VenueB}, &stubMatcher{}, &stubDetector{}, &stubCapital{}, &stubBreaker{}, &stubExecutor{}, &stubJournal{}, &stubNotifier{})
	e.Stop()
	assert.NotPanics(t, func() { e.Stop() })
}
