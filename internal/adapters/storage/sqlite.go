// Package storage implements ports.Journal on SQLite (pure Go, no CGo),
// partitioning every row by execution mode so paper and live runs never
// read or aggregate each other's history.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
    position_id       TEXT PRIMARY KEY,
    execution_mode    TEXT NOT NULL,
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
);

CREATE TABLE IF NOT EXISTS trades (
    position_id       TEXT PRIMARY KEY,
    execution_mode    TEXT NOT NULL,
    leg1_order_id     TEXT NOT NULL DEFAULT '',
    leg2_order_id     TEXT NOT NULL DEFAULT '',
    leg1_filled       INTEGER NOT NULL DEFAULT 0,
    leg2_filled       INTEGER NOT NULL DEFAULT 0,
    actual_cost       REAL NOT NULL DEFAULT 0,
    success           INTEGER NOT NULL DEFAULT 0,
    error_message     TEXT NOT NULL DEFAULT '',
    unwind_attempted  INTEGER NOT NULL DEFAULT 0,
    unwind_succeeded  INTEGER NOT NULL DEFAULT 0,
    status            TEXT NOT NULL DEFAULT 'pending',
    created_at        DATETIME NOT NULL,
    closed_at         DATETIME,
    realized_pnl      REAL,
    FOREIGN KEY (position_id) REFERENCES opportunities(position_id)
);

CREATE TABLE IF NOT EXISTS balance_snapshots (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    execution_mode      TEXT NOT NULL,
    balance_a           REAL NOT NULL,
    balance_b           REAL NOT NULL,
    locked_capital      REAL NOT NULL,
    open_positions      INTEGER NOT NULL,
    daily_start_balance REAL NOT NULL,
    peak_balance        REAL NOT NULL,
    realized_pnl        REAL NOT NULL,
    unrealized_pnl      REAL NOT NULL,
    daily_pnl           REAL NOT NULL,
    snapshot_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opp_mode_detected   ON opportunities(execution_mode, detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_mode_created ON trades(execution_mode, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_mode_status   ON trades(execution_mode, status);
CREATE INDEX IF NOT EXISTS idx_balance_mode_at       ON balance_snapshots(execution_mode, snapshot_at DESC);
`

// SQLiteStorage implements ports.Journal.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at path, migrating any
// pre-existing schema that predates execution-mode partitioning.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrateLegacySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: migrate: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	if err := backfillLegacyOpportunities(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: backfill legacy rows: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// migrateLegacySchema renames an opportunities table from before
// execution-mode partitioning out of the way, so the partitioned schema
// below can create a fresh opportunities table in its place. The legacy
// rows themselves are copied forward by backfillLegacyOpportunities.
func migrateLegacySchema(db *sql.DB) error {
	row := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='opportunities'`)
	var count int
	if err := row.Scan(&count); err != nil || count == 0 {
		return nil
	}

	rows, err := db.Query(`PRAGMA table_info(opportunities)`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	hasExecutionMode := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == "execution_mode" {
			hasExecutionMode = true
		}
	}
	if hasExecutionMode {
		return nil
	}

	_, err = db.Exec(`ALTER TABLE opportunities RENAME TO opportunities_legacy_v1`)
	return err
}

// backfillLegacyOpportunities copies every row out of a renamed
// pre-partitioning opportunities_legacy_v1 table into the new partitioned
// opportunities table, defaulting execution_mode to "paper" (§4.8: legacy
// rows predate live trading support, so they can only ever have been paper
// runs). Idempotent via INSERT OR IGNORE keyed on position_id, so running
// it again against an already-backfilled database is a no-op.
func backfillLegacyOpportunities(db *sql.DB) error {
	row := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='opportunities_legacy_v1'`)
	var count int
	if err := row.Scan(&count); err != nil || count == 0 {
		return nil
	}

	_, err := db.Exec(`
		INSERT OR IGNORE INTO opportunities
			(position_id, execution_mode, venue_a_native_id, venue_b_native_id, question,
			 direction, similarity, price_leg1, price_leg2, spread, net_edge,
			 position_size_usd, expected_profit, expected_roi, risk_tier, risk_score,
			 status, executed, detected_at, executed_at, opportunity_json)
		SELECT
			position_id, 'paper', venue_a_native_id, venue_b_native_id, question,
			direction, similarity, price_leg1, price_leg2, spread, net_edge,
			position_size_usd, expected_profit, expected_roi, risk_tier, risk_score,
			status, executed, detected_at, executed_at, opportunity_json
		FROM opportunities_legacy_v1
	`)
	if err != nil {
		return fmt.Errorf("copy legacy rows: %w", err)
	}
	return nil
}

// SaveOpportunity inserts one detected-opportunity row. On a duplicate
// position id it updates only the existing row's status, executed flag and
// stored opportunity JSON.
func (s *SQLiteStorage) SaveOpportunity(ctx context.Context, opp domain.Opportunity, positionID string, mode domain.ExecutionMode) error {
	blob, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("storage.SaveOpportunity: marshal: %w", err)
	}

	positionSize, _ := opp.PositionSizeQuote.Float64()
	expectedProfit, _ := opp.ExpectedProfit.Float64()
	expectedROI, _ := opp.ExpectedROI.Float64()
	netEdge, _ := opp.NetEdge.Float64()
	spread, _ := opp.Spread.Float64()
	priceLeg1, _ := opp.PriceLeg1.Float64()
	priceLeg2, _ := opp.PriceLeg2.Float64()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO opportunities
			(position_id, execution_mode, venue_a_native_id, venue_b_native_id, question,
			 direction, similarity, price_leg1, price_leg2, spread, net_edge,
			 position_size_usd, expected_profit, expected_roi, risk_tier, risk_score,
			 status, executed, detected_at, opportunity_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(position_id) DO UPDATE SET
			status           = excluded.status,
			executed         = excluded.executed,
			opportunity_json = excluded.opportunity_json
	`,
		positionID, string(mode),
		opp.PairedEvent.ListingA.NativeID, opp.PairedEvent.ListingB.NativeID, opp.PairedEvent.ListingA.Question,
		string(opp.Direction), opp.PairedEvent.Similarity, priceLeg1, priceLeg2, spread, netEdge,
		positionSize, expectedProfit, expectedROI, string(opp.RiskTier), opp.RiskScore,
		string(domain.OppDetected), 0, opp.DetectedAt.UTC(), string(blob),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOpportunity: exec: %w", err)
	}
	return nil
}

// SaveTrade writes the trade row and marks its parent opportunity executed
// in the same transaction, so a crash never leaves one written without
// the other.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, result domain.ExecutionResult, mode domain.ExecutionMode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	actualCost, _ := result.ActualCost.Float64()
	status := "filled"
	if !result.Success {
		status = "failed"
	} else if !result.Leg1Filled || !result.Leg2Filled {
		status = "partial"
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trades
			(position_id, execution_mode, leg1_order_id, leg2_order_id, leg1_filled, leg2_filled,
			 actual_cost, success, error_message, unwind_attempted, unwind_succeeded, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(position_id) DO UPDATE SET
			leg1_order_id    = excluded.leg1_order_id,
			leg2_order_id    = excluded.leg2_order_id,
			leg1_filled      = excluded.leg1_filled,
			leg2_filled      = excluded.leg2_filled,
			actual_cost      = excluded.actual_cost,
			success          = excluded.success,
			error_message    = excluded.error_message,
			unwind_attempted = excluded.unwind_attempted,
			unwind_succeeded = excluded.unwind_succeeded,
			status           = excluded.status
	`,
		result.PositionID, string(mode), result.Leg1OrderID, result.Leg2OrderID,
		boolToInt(result.Leg1Filled), boolToInt(result.Leg2Filled),
		actualCost, boolToInt(result.Success), result.ErrorMessage,
		boolToInt(result.UnwindAttempted), boolToInt(result.UnwindSucceeded), status, now,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: insert trade: %w", err)
	}

	execStatus := string(domain.OppExecuted)
	if !result.Success {
		execStatus = string(domain.OppFailed)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE opportunities SET status = ?, executed = 1, executed_at = ?
		WHERE position_id = ? AND execution_mode = ?
	`, execStatus, now, result.PositionID, string(mode))
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: update opportunity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveTrade: commit: %w", err)
	}
	return nil
}

// ClosePosition records the realized P&L and close timestamp for a trade.
func (s *SQLiteStorage) ClosePosition(ctx context.Context, positionID string, pnl decimal.Decimal, mode domain.ExecutionMode) error {
	pnlF, _ := pnl.Float64()
	_, err := s.db.ExecContext(ctx, `
		UPDATE trades SET status = 'closed', closed_at = ?, realized_pnl = ?
		WHERE position_id = ? AND execution_mode = ?
	`, time.Now().UTC(), pnlF, positionID, string(mode))
	if err != nil {
		return fmt.Errorf("storage.ClosePosition: %w", err)
	}
	return nil
}

// SaveBalanceSnapshot appends a portfolio snapshot row.
func (s *SQLiteStorage) SaveBalanceSnapshot(ctx context.Context, portfolio domain.PortfolioState, mode domain.ExecutionMode) error {
	balA, _ := portfolio.BalanceA.Float64()
	balB, _ := portfolio.BalanceB.Float64()
	locked, _ := portfolio.LockedCapital.Float64()
	dailyStart, _ := portfolio.DailyStartBalance.Float64()
	peak, _ := portfolio.PeakBalance.Float64()
	realized, _ := portfolio.RealizedPnL.Float64()
	unrealized, _ := portfolio.UnrealizedPnL.Float64()
	dailyPnL, _ := portfolio.DailyPnL.Float64()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balance_snapshots
			(execution_mode, balance_a, balance_b, locked_capital, open_positions,
			 daily_start_balance, peak_balance, realized_pnl, unrealized_pnl, daily_pnl, snapshot_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(mode), balA, balB, locked, portfolio.OpenPositions,
		dailyStart, peak, realized, unrealized, dailyPnL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.SaveBalanceSnapshot: %w", err)
	}
	return nil
}

// GetRecentOpportunities returns the most recently detected opportunities
// for mode, newest first.
func (s *SQLiteStorage) GetRecentOpportunities(ctx context.Context, limit int, mode domain.ExecutionMode) ([]domain.OpportunityLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position_id, status, executed, detected_at, executed_at, opportunity_json
		FROM opportunities
		WHERE execution_mode = ?
		ORDER BY detected_at DESC
		LIMIT ?
	`, string(mode), limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRecentOpportunities: query: %w", err)
	}
	defer rows.Close()

	var logs []domain.OpportunityLog
	for rows.Next() {
		var positionID, status, oppJSON string
		var executed int
		var detectedAt time.Time
		var executedAt sql.NullTime

		if err := rows.Scan(&positionID, &status, &executed, &detectedAt, &executedAt, &oppJSON); err != nil {
			return nil, fmt.Errorf("storage.GetRecentOpportunities: scan: %w", err)
		}

		var opp domain.Opportunity
		if err := json.Unmarshal([]byte(oppJSON), &opp); err != nil {
			return nil, fmt.Errorf("storage.GetRecentOpportunities: unmarshal %s: %w", positionID, err)
		}

		log := domain.OpportunityLog{
			PositionID:    positionID,
			ExecutionMode: mode,
			Opportunity:   opp,
			Status:        domain.OpportunityStatus(status),
			Executed:      executed == 1,
			DetectedAt:    detectedAt,
		}
		if executedAt.Valid {
			t := executedAt.Time
			log.ExecutedAt = &t
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// GetOpenPositions returns the trades for mode whose status is filled or
// partial; closed and failed trades are excluded.
func (s *SQLiteStorage) GetOpenPositions(ctx context.Context, mode domain.ExecutionMode) ([]domain.TradeLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position_id, leg1_order_id, leg2_order_id, leg1_filled, leg2_filled,
		       actual_cost, success, error_message, unwind_attempted, unwind_succeeded,
		       status, created_at, closed_at, realized_pnl
		FROM trades
		WHERE execution_mode = ? AND status IN ('filled', 'partial')
		ORDER BY created_at DESC
	`, string(mode))
	if err != nil {
		return nil, fmt.Errorf("storage.GetOpenPositions: query: %w", err)
	}
	defer rows.Close()

	var logs []domain.TradeLog
	for rows.Next() {
		var positionID, leg1ID, leg2ID, errMsg, status string
		var leg1Filled, leg2Filled, success, unwindAttempted, unwindSucceeded int
		var actualCost float64
		var createdAt time.Time
		var closedAt sql.NullTime
		var realizedPnL sql.NullFloat64

		if err := rows.Scan(&positionID, &leg1ID, &leg2ID, &leg1Filled, &leg2Filled,
			&actualCost, &success, &errMsg, &unwindAttempted, &unwindSucceeded,
			&status, &createdAt, &closedAt, &realizedPnL); err != nil {
			return nil, fmt.Errorf("storage.GetOpenPositions: scan: %w", err)
		}

		tl := domain.TradeLog{
			PositionID:    positionID,
			ExecutionMode: mode,
			Status:        status,
			CreatedAt:     createdAt,
			Result: domain.ExecutionResult{
				PositionID:      positionID,
				Success:         success == 1,
				Leg1OrderID:     leg1ID,
				Leg2OrderID:     leg2ID,
				Leg1Filled:      leg1Filled == 1,
				Leg2Filled:      leg2Filled == 1,
				ActualCost:      decimal.NewFromFloat(actualCost),
				ErrorMessage:    errMsg,
				UnwindAttempted: unwindAttempted == 1,
				UnwindSucceeded: unwindSucceeded == 1,
			},
		}
		if closedAt.Valid {
			t := closedAt.Time
			tl.ClosedAt = &t
		}
		if realizedPnL.Valid {
			v := decimal.NewFromFloat(realizedPnL.Float64)
			tl.RealizedPnL = &v
		}
		logs = append(logs, tl)
	}
	return logs, rows.Err()
}

// GetPerformanceSummary aggregates trade counts and P&L over the trailing
// `days` window for mode.
func (s *SQLiteStorage) GetPerformanceSummary(ctx context.Context, days int, mode domain.ExecutionMode) (domain.PerformanceSummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	var opportunitiesFound int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM opportunities WHERE execution_mode = ? AND detected_at >= ?`,
		string(mode), since,
	).Scan(&opportunitiesFound); err != nil {
		return domain.PerformanceSummary{}, fmt.Errorf("storage.GetPerformanceSummary: opportunities: %w", err)
	}

	var tradesExecuted, tradesSuccessful, tradesClosed int
	var totalPnL, totalVolume sql.NullFloat64
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'closed' THEN 1 ELSE 0 END),
			SUM(COALESCE(realized_pnl, 0)),
			SUM(actual_cost)
		FROM trades WHERE execution_mode = ? AND created_at >= ?
	`, string(mode), since)
	if err := row.Scan(&tradesExecuted, &tradesSuccessful, &tradesClosed, &totalPnL, &totalVolume); err != nil {
		return domain.PerformanceSummary{}, fmt.Errorf("storage.GetPerformanceSummary: trades: %w", err)
	}

	summary := domain.PerformanceSummary{
		PeriodDays:         days,
		OpportunitiesFound: opportunitiesFound,
		TradesExecuted:     tradesExecuted,
		TradesSuccessful:   tradesSuccessful,
		TradesClosed:       tradesClosed,
		TotalPnL:           decimal.NewFromFloat(totalPnL.Float64),
		TotalVolume:        decimal.NewFromFloat(totalVolume.Float64),
	}
	if tradesExecuted > 0 {
		summary.WinRate = float64(tradesSuccessful) / float64(tradesExecuted)
		summary.AvgProfit = summary.TotalPnL.Div(decimal.NewFromInt(int64(tradesExecuted)))
	}
	return summary, nil
}

// GetLatestBalance returns the most recent balance snapshot for mode, or
// nil if none has been recorded yet.
func (s *SQLiteStorage) GetLatestBalance(ctx context.Context, mode domain.ExecutionMode) (*domain.BalanceSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT balance_a, balance_b, locked_capital, open_positions,
		       daily_start_balance, peak_balance, realized_pnl, unrealized_pnl, daily_pnl, snapshot_at
		FROM balance_snapshots
		WHERE execution_mode = ?
		ORDER BY snapshot_at DESC
		LIMIT 1
	`, string(mode))

	var balA, balB, locked, dailyStart, peak, realized, unrealized, dailyPnL float64
	var openPositions int
	var snapshotAt time.Time

	if err := row.Scan(&balA, &balB, &locked, &openPositions, &dailyStart, &peak, &realized, &unrealized, &dailyPnL, &snapshotAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("storage.GetLatestBalance: %w", err)
	}

	return &domain.BalanceSnapshot{
		ExecutionMode: mode,
		SnapshotAt:    snapshotAt,
		Portfolio: domain.PortfolioState{
			BalanceA:          decimal.NewFromFloat(balA),
			BalanceB:          decimal.NewFromFloat(balB),
			LockedCapital:     decimal.NewFromFloat(locked),
			OpenPositions:     openPositions,
			DailyStartBalance: decimal.NewFromFloat(dailyStart),
			PeakBalance:       decimal.NewFromFloat(peak),
			RealizedPnL:       decimal.NewFromFloat(realized),
			UnrealizedPnL:     decimal.NewFromFloat(unrealized),
			DailyPnL:          decimal.NewFromFloat(dailyPnL),
			LastUpdated:       snapshotAt,
		},
	}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
