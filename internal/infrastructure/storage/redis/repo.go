package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "fundarb"

	// stream / channel 未配置时的后缀
	StreamSuffix  = ":opportunities"
	ChannelSuffix = ":opportunities:pub"
)

type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyQuotes string // prefix + ":quotes"
	oppStream string
	oppChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, oppStream, oppChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	if strings.TrimSpace(oppStream) == "" {
		oppStream = prefix + StreamSuffix
	}
	if strings.TrimSpace(oppChan) == "" {
		oppChan = prefix + ChannelSuffix
	}
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyQuotes: prefix + ":quotes",
		oppStream: oppStream,
		oppChan:   oppChan,
	}
}

// QuotesKey 最新资金费率 hash
func (r *Repo) QuotesKey() string { return r.keyQuotes }

// RunKey 单次扫描摘要
func (r *Repo) RunKey(runID string) string { return r.prefix + ":run:" + runID }

func (r *Repo) Stream() string  { return r.oppStream }
func (r *Repo) Channel() string { return r.oppChan }

// QuoteField hash 字段: "binance:BTC/USDT:USDT"
func QuoteField(q model.FundingQuote) string {
	return fmt.Sprintf("%s:%s", q.Exchange, q.Symbol)
}

func (r *Repo) SaveRun(ctx context.Context, run model.ScanRun) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.RunKey(run.ID), string(b), r.ttl).Err()
}

func (r *Repo) SaveQuotes(ctx context.Context, runID string, quotes []model.FundingQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	fields := make(map[string]any, len(quotes))
	for _, q := range quotes {
		b, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal quote %s: %w", QuoteField(q), err)
		}
		fields[QuoteField(q)] = string(b)
	}

	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyQuotes, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyQuotes, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) SaveOpportunities(ctx context.Context, runID string, opps []model.EnrichedOpportunity) error {
	for _, o := range opps {
		payload, err := json.Marshal(o)
		if err != nil {
			return err
		}

		// 1) Stream: XADD <stream> * run_id symbol spread payload
		if _, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: r.oppStream,
			Values: StreamValues(runID, o, string(payload)),
		}).Result(); err != nil {
			return err
		}

		// 2) PubSub: PUBLISH <channel> json
		if err := r.rdb.Publish(ctx, r.oppChan, string(payload)).Err(); err != nil {
			return err
		}
	}
	return nil
}

// StreamValues XADD 字段
func StreamValues(runID string, o model.EnrichedOpportunity, payload string) map[string]any {
	return map[string]any{
		"run_id":  runID,
		"symbol":  o.Symbol,
		"long":    o.LongExchange,
		"short":   o.ShortExchange,
		"spread":  o.Spread,
		"payload": payload,
	}
}

// Close client 由调用方持有
func (r *Repo) Close() error { return nil }

var _ port.OpportunityRepository = (*Repo)(nil)
