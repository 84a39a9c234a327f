package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS scan_runs (
  id TEXT PRIMARY KEY,
  started_at INTEGER NOT NULL,
  finished_at INTEGER NOT NULL,
  exchanges INTEGER NOT NULL,
  quotes INTEGER NOT NULL,
  candidates INTEGER NOT NULL,
  opportunities INTEGER NOT NULL,
  skipped TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at);

CREATE TABLE IF NOT EXISTS funding_quotes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  exchange TEXT NOT NULL,
  symbol TEXT NOT NULL,
  funding_rate REAL NOT NULL,
  next_funding_ms INTEGER NOT NULL,
  observed_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quotes_run ON funding_quotes(run_id);
CREATE INDEX IF NOT EXISTS idx_quotes_symbol ON funding_quotes(symbol);

CREATE TABLE IF NOT EXISTS opportunities (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  target_hour INTEGER NOT NULL,
  long_exchange TEXT NOT NULL,
  long_rate REAL NOT NULL,
  long_next_ms INTEGER NOT NULL,
  long_interval REAL NOT NULL,
  long_volume_1m REAL NOT NULL,
  long_taker REAL NOT NULL,
  long_maker REAL NOT NULL,
  short_exchange TEXT NOT NULL,
  short_rate REAL NOT NULL,
  short_next_ms INTEGER NOT NULL,
  short_interval REAL NOT NULL,
  short_volume_1m REAL NOT NULL,
  short_taker REAL NOT NULL,
  short_maker REAL NOT NULL,
  spread REAL NOT NULL,
  asymmetric INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_run ON opportunities(run_id);
CREATE INDEX IF NOT EXISTS idx_opps_symbol ON opportunities(symbol);
`)
	return err
}

func (r *Repo) SaveRun(ctx context.Context, run model.ScanRun) error {
	skipped, err := json.Marshal(run.Skipped)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scan_runs(id, started_at, finished_at, exchanges, quotes, candidates, opportunities, skipped)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		finished_at=excluded.finished_at, quotes=excluded.quotes, candidates=excluded.candidates,
		opportunities=excluded.opportunities, skipped=excluded.skipped
	`, run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Exchanges,
		run.Quotes, run.Candidates, run.Opportunities, string(skipped))
	return err
}

func (r *Repo) SaveQuotes(ctx context.Context, runID string, quotes []model.FundingQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	return r.inTx(ctx, `INSERT INTO funding_quotes(run_id, exchange, symbol, funding_rate, next_funding_ms, observed_ms) VALUES(?, ?, ?, ?, ?, ?)`,
		func(stmt *sql.Stmt) error {
			for _, q := range quotes {
				if _, err := stmt.ExecContext(ctx, runID, q.Exchange, q.Symbol, q.FundingRate, q.NextFundingTime, q.ObservedAt.UnixMilli()); err != nil {
					return err
				}
			}
			return nil
		})
}

func (r *Repo) SaveOpportunities(ctx context.Context, runID string, opps []model.EnrichedOpportunity) error {
	if len(opps) == 0 {
		return nil
	}
	return r.inTx(ctx, `
		INSERT INTO opportunities(run_id, symbol, target_hour,
		  long_exchange, long_rate, long_next_ms, long_interval, long_volume_1m, long_taker, long_maker,
		  short_exchange, short_rate, short_next_ms, short_interval, short_volume_1m, short_taker, short_maker,
		  spread, asymmetric)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(stmt *sql.Stmt) error {
			for _, o := range opps {
				if _, err := stmt.ExecContext(ctx, runID, o.Symbol, o.TargetHour,
					o.LongExchange, o.LongRate, o.LongNextFunding, o.LongInterval, o.LongVolume1m, o.LongFee.Taker, o.LongFee.Maker,
					o.ShortExchange, o.ShortRate, o.ShortNextFunding, o.ShortInterval, o.ShortVolume1m, o.ShortFee.Taker, o.ShortFee.Maker,
					o.Spread, boolInt(o.Asymmetric)); err != nil {
					return err
				}
			}
			return nil
		})
}

// LatestOpportunities 最近保存的机会，按写入倒序
func (r *Repo) LatestOpportunities(ctx context.Context, limit int) ([]model.EnrichedOpportunity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, target_hour,
		  long_exchange, long_rate, long_next_ms, long_interval, long_volume_1m, long_taker, long_maker,
		  short_exchange, short_rate, short_next_ms, short_interval, short_volume_1m, short_taker, short_maker,
		  spread, asymmetric
		FROM opportunities ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EnrichedOpportunity
	for rows.Next() {
		var o model.EnrichedOpportunity
		var asym int
		if err := rows.Scan(&o.Symbol, &o.TargetHour,
			&o.LongExchange, &o.LongRate, &o.LongNextFunding, &o.LongInterval, &o.LongVolume1m, &o.LongFee.Taker, &o.LongFee.Maker,
			&o.ShortExchange, &o.ShortRate, &o.ShortNextFunding, &o.ShortInterval, &o.ShortVolume1m, &o.ShortFee.Taker, &o.ShortFee.Maker,
			&o.Spread, &asym); err != nil {
			return nil, err
		}
		o.Asymmetric = asym != 0
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountQuotes 某次扫描保存的报价数
func (r *Repo) CountQuotes(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM funding_quotes WHERE run_id=?`, runID).Scan(&n)
	return n, err
}

func (r *Repo) inTx(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite batch insert: %w", err)
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ port.OpportunityRepository = (*Repo)(nil)
