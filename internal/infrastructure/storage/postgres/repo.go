package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r, err := NewWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewWithDB 使用已打开的连接并建表
func NewWithDB(db *sql.DB) (*Repo, error) {
	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS scan_runs (
  id TEXT PRIMARY KEY,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  exchanges INTEGER NOT NULL,
  quotes INTEGER NOT NULL,
  candidates INTEGER NOT NULL,
  opportunities INTEGER NOT NULL,
  skipped JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS funding_quotes (
  id BIGSERIAL PRIMARY KEY,
  run_id TEXT NOT NULL,
  exchange TEXT NOT NULL,
  symbol TEXT NOT NULL,
  funding_rate DOUBLE PRECISION NOT NULL,
  next_funding_ms BIGINT NOT NULL,
  observed_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quotes_run ON funding_quotes(run_id);

CREATE TABLE IF NOT EXISTS opportunities (
  id BIGSERIAL PRIMARY KEY,
  run_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  target_hour INTEGER NOT NULL,
  long_exchange TEXT NOT NULL,
  long_rate DOUBLE PRECISION NOT NULL,
  long_next_ms BIGINT NOT NULL,
  long_interval DOUBLE PRECISION NOT NULL,
  long_volume_1m DOUBLE PRECISION NOT NULL,
  long_taker DOUBLE PRECISION NOT NULL,
  long_maker DOUBLE PRECISION NOT NULL,
  short_exchange TEXT NOT NULL,
  short_rate DOUBLE PRECISION NOT NULL,
  short_next_ms BIGINT NOT NULL,
  short_interval DOUBLE PRECISION NOT NULL,
  short_volume_1m DOUBLE PRECISION NOT NULL,
  short_taker DOUBLE PRECISION NOT NULL,
  short_maker DOUBLE PRECISION NOT NULL,
  spread DOUBLE PRECISION NOT NULL,
  asymmetric BOOLEAN NOT NULL
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
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(id) DO UPDATE SET
		finished_at=EXCLUDED.finished_at, quotes=EXCLUDED.quotes, candidates=EXCLUDED.candidates,
		opportunities=EXCLUDED.opportunities, skipped=EXCLUDED.skipped
	`, run.ID, run.StartedAt, run.FinishedAt, run.Exchanges, run.Quotes, run.Candidates, run.Opportunities, string(skipped))
	return err
}

func (r *Repo) SaveQuotes(ctx context.Context, runID string, quotes []model.FundingQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range quotes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO funding_quotes(run_id, exchange, symbol, funding_rate, next_funding_ms, observed_ms) VALUES($1, $2, $3, $4, $5, $6)`,
			runID, q.Exchange, q.Symbol, q.FundingRate, q.NextFundingTime, q.ObservedAt.UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres insert quote: %w", err)
		}
	}
	return tx.Commit()
}

func (r *Repo) SaveOpportunities(ctx context.Context, runID string, opps []model.EnrichedOpportunity) error {
	if len(opps) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, o := range opps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO opportunities(run_id, symbol, target_hour,
			  long_exchange, long_rate, long_next_ms, long_interval, long_volume_1m, long_taker, long_maker,
			  short_exchange, short_rate, short_next_ms, short_interval, short_volume_1m, short_taker, short_maker,
			  spread, asymmetric)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			runID, o.Symbol, o.TargetHour,
			o.LongExchange, o.LongRate, o.LongNextFunding, o.LongInterval, o.LongVolume1m, o.LongFee.Taker, o.LongFee.Maker,
			o.ShortExchange, o.ShortRate, o.ShortNextFunding, o.ShortInterval, o.ShortVolume1m, o.ShortFee.Taker, o.ShortFee.Maker,
			o.Spread, o.Asymmetric); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres insert opportunity: %w", err)
		}
	}
	return tx.Commit()
}

var _ port.OpportunityRepository = (*Repo)(nil)
