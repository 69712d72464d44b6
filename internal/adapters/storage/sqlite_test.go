package storage_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/orion-arb/internal/adapters/storage"
	"github.com/alejandrodnm/orion-arb/internal/domain"
)

func testOpportunity(nativeID string) domain.Opportunity {
	return domain.Opportunity{
		PairedEvent: domain.PairedEvent{
			ListingA:   domain.Listing{NativeID: nativeID, Question: "Will X happen?"},
			ListingB:   domain.Listing{NativeID: nativeID + "-b"},
			Similarity: 0.95,
		},
		Direction:         domain.DirBuyYesANoB,
		PriceLeg1:         decimal.NewFromFloat(0.45),
		PriceLeg2:         decimal.NewFromFloat(0.45),
		Spread:            decimal.NewFromFloat(0.9),
		NetEdge:           decimal.NewFromFloat(0.05),
		PositionSizeQuote: decimal.NewFromInt(100),
		ExpectedProfit:    decimal.NewFromInt(5),
		RiskTier:          domain.RiskLow,
		DetectedAt:        time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveAndGetRecentOpportunities_RoundTrips(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	opp := testOpportunity("market-1")
	require.NoError(t, s.SaveOpportunity(ctx, opp, "pos-1", domain.ModePaper))

	logs, err := s.GetRecentOpportunities(ctx, 10, domain.ModePaper)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "pos-1", logs[0].PositionID)
	assert.Equal(t, domain.OppDetected, logs[0].Status)
	assert.False(t, logs[0].Executed)
}

func TestModeIsolation_PaperAndLiveNeverMix(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("paper-market"), "pos-paper", domain.ModePaper))
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("live-market"), "pos-live", domain.ModeLive))

	paperLogs, err := s.GetRecentOpportunities(ctx, 10, domain.ModePaper)
	require.NoError(t, err)
	liveLogs, err := s.GetRecentOpportunities(ctx, 10, domain.ModeLive)
	require.NoError(t, err)

	require.Len(t, paperLogs, 1)
	require.Len(t, liveLogs, 1)
	assert.Equal(t, "pos-paper", paperLogs[0].PositionID)
	assert.Equal(t, "pos-live", liveLogs[0].PositionID)
}

func TestSaveTrade_MarksParentOpportunityExecuted(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("market-2"), "pos-2", domain.ModePaper))

	result := domain.ExecutionResult{
		PositionID: "pos-2",
		Success:    true,
		Leg1Filled: true,
		Leg2Filled: true,
		ActualCost: decimal.NewFromInt(100),
		ExecutedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveTrade(ctx, result, domain.ModePaper))

	logs, err := s.GetRecentOpportunities(ctx, 10, domain.ModePaper)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Executed)
	assert.Equal(t, domain.OppExecuted, logs[0].Status)
}

func TestSaveTrade_FailureMarksOpportunityFailed(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("market-3"), "pos-3", domain.ModePaper))

	result := domain.ExecutionResult{PositionID: "pos-3", Success: false, ErrorMessage: "partial fill"}
	require.NoError(t, s.SaveTrade(ctx, result, domain.ModePaper))

	logs, err := s.GetRecentOpportunities(ctx, 10, domain.ModePaper)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.OppFailed, logs[0].Status)
}

func TestGetOpenPositions_ExcludesClosedAndFailedTrades(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("open-1"), "pos-open", domain.ModePaper))
	require.NoError(t, s.SaveTrade(ctx, domain.ExecutionResult{
		PositionID: "pos-open", Success: true, Leg1Filled: true, Leg2Filled: true,
	}, domain.ModePaper))
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("failed-1"), "pos-failed", domain.ModePaper))
	require.NoError(t, s.SaveTrade(ctx, domain.ExecutionResult{
		PositionID: "pos-failed", Success: false, ErrorMessage: "leg2 rejected",
	}, domain.ModePaper))

	open, err := s.GetOpenPositions(ctx, domain.ModePaper)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "pos-open", open[0].PositionID)

	require.NoError(t, s.ClosePosition(ctx, "pos-open", decimal.NewFromInt(10), domain.ModePaper))
	open, err = s.GetOpenPositions(ctx, domain.ModePaper)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestSaveAndGetLatestBalance(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	portfolio := domain.PortfolioState{
		BalanceA: decimal.NewFromInt(500), BalanceB: decimal.NewFromInt(500),
	}
	require.NoError(t, s.SaveBalanceSnapshot(ctx, portfolio, domain.ModePaper))

	snap, err := s.GetLatestBalance(ctx, domain.ModePaper)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.Portfolio.BalanceA.Equal(decimal.NewFromInt(500)))
}

func TestGetLatestBalance_NilWhenNoneRecorded(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.GetLatestBalance(context.Background(), domain.ModeLive)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestGetPerformanceSummary_ComputesWinRate(t *testing.T) {
	s, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("perf-1"), "pos-perf-1", domain.ModePaper))
	require.NoError(t, s.SaveOpportunity(ctx, testOpportunity("perf-2"), "pos-perf-2", domain.ModePaper))
	require.NoError(t, s.SaveTrade(ctx, domain.ExecutionResult{PositionID: "pos-perf-1", Success: true, ActualCost: decimal.NewFromInt(100)}, domain.ModePaper))
	require.NoError(t, s.SaveTrade(ctx, domain.ExecutionResult{PositionID: "pos-perf-2", Success: false}, domain.ModePaper))

	summary, err := s.GetPerformanceSummary(ctx, 1, domain.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TradesExecuted)
	assert.Equal(t, 1, summary.TradesSuccessful)
	assert.InDelta(t, 0.5, summary.WinRate, 1e-9)
}

// seedLegacyOpportunitiesTable creates a pre-execution-mode-partitioning
// opportunities table (no execution_mode column) directly against a
// file-backed database, so NewSQLiteStorage can be exercised against it
// afterward. :memory: DSNs are private per-connection in modernc.org/sqlite,
// so a temp file is used to share state across the seeding connection and
// the one NewSQLiteStorage opens.
func seedLegacyOpportunitiesTable(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE opportunities (
			position_id       TEXT PRIMARY KEY,
			venue_a_native_id TEXT NOT NULL,
			venue_b_native_id TEXT NOT NULL,
			question          TEXT NOT NULL,
			direction         TEXT NOT NULL,
			similarity        REAL NOT NULL DEFAULT 0,
			price_leg1        REAL NOT NULL DEFAULT 0,
			price_leg2        REAL NOT NULL DEFAULT 0,
			spread            REAL NOT NULL DEFAULT 0,
			net_edge          REAL NOT NULL DEFAULT 0,
			position_size_usd REAL NOT NULL DEFAULT 0,
			expected_profit   REAL NOT NULL DEFAULT 0,
			expected_roi      REAL NOT NULL DEFAULT 0,
			risk_tier         TEXT NOT NULL DEFAULT '',
			risk_score        REAL NOT NULL DEFAULT 0,
			status            TEXT NOT NULL DEFAULT 'detected',
			executed          INTEGER NOT NULL DEFAULT 0,
			detected_at       DATETIME NOT NULL,
			executed_at       DATETIME,
			opportunity_json  TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO opportunities
			(position_id, venue_a_native_id, venue_b_native_id, question, direction,
			 similarity, price_leg1, price_leg2, spread, net_edge, position_size_usd,
			 expected_profit, expected_roi, risk_tier, risk_score, status, executed,
			 detected_at, opportunity_json)
		VALUES
			('pos-legacy-1', 'legacy-market', 'legacy-market-b', 'Will legacy happen?', 'buy_yes_a_no_b',
			 0.9, 0.4, 0.4, 0.8, 0.06, 50, 3, 0.06, 'low', 0.1, 'detected', 0,
			 '2025-01-01 00:00:00', '{}')
	`)
	require.NoError(t, err)
}

func TestNewSQLiteStorage_MigratesLegacyOpportunitiesWithoutDataLoss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	seedLegacyOpportunitiesTable(t, path)

	s, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	logs, err := s.GetRecentOpportunities(context.Background(), 10, domain.ModePaper)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "pos-legacy-1", logs[0].PositionID)
}

func TestNewSQLiteStorage_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	seedLegacyOpportunitiesTable(t, path)

	s1, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s2.Close()

	logs, err := s2.GetRecentOpportunities(context.Background(), 10, domain.ModePaper)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}
