package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultPath 入口固定读取工作目录下的配置文件
const DefaultPath = "config.toml"

// DefaultExchanges 未配置 [exchanges] 时启用的交易所
var DefaultExchanges = []string{"binance", "bybit", "okx", "gateio", "mexc", "bitget"}

type ExchangeConfig struct {
	Enabled       *bool   `toml:"enabled"`
	BaseURL       string  `toml:"base_url"`
	ForceSingular bool    `toml:"force_singular"`
	RatePerSec    float64 `toml:"rate_per_sec"`
}

// IsEnabled 未显式关闭即视为启用
func (e ExchangeConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
		LogFile  string `toml:"log_file"`
	} `toml:"app"`

	Scan struct {
		Symbols           []string `toml:"symbols"`
		SpreadThreshold   float64  `toml:"spread_threshold"`
		TargetHours       []int    `toml:"target_hours"`
		UTCOffsetHours    *int     `toml:"utc_offset_hours"`
		MinVolume1m       float64  `toml:"min_volume_1m"`
		SingularCeiling   int      `toml:"singular_ceiling"`
		RequestTimeoutSec int      `toml:"request_timeout_sec"`
		PositionSize      float64  `toml:"position_size"`
		Leverage          int      `toml:"leverage"`
		CSVPath           string   `toml:"csv_path"`
		PreviewRows       int      `toml:"preview_rows"`
	} `toml:"scan"`

	History struct {
		Path      string  `toml:"path"`
		MinVolume float64 `toml:"min_volume"`
		TopN      int     `toml:"top_n"`
	} `toml:"history"`

	Exchanges map[string]ExchangeConfig `toml:"exchanges"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		TTLSeconds int    `toml:"ttl_seconds"`
		Stream     string `toml:"stream"`  // 为空时由 redis 仓储按 prefix 生成
		Channel    string `toml:"channel"` // 同上
	} `toml:"redis"`

	Notify struct {
		WebhookURL string `toml:"webhook_url"`
		TopN       int    `toml:"top_n"`
	} `toml:"notify"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// LoadOrDefault 配置文件不存在时使用默认值
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	return Load(path)
}

func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("FUNDARB_WEBHOOK")); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("FUNDARB_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("FUNDARB_POSTGRES_DSN")); v != "" {
		cfg.Postgres.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}

	if cfg.Scan.SpreadThreshold <= 0 {
		cfg.Scan.SpreadThreshold = 0.004
	}
	if len(cfg.Scan.TargetHours) == 0 {
		cfg.Scan.TargetHours = []int{7, 11, 15, 19, 23}
	}
	if cfg.Scan.UTCOffsetHours == nil {
		offset := -5
		cfg.Scan.UTCOffsetHours = &offset
	}
	if cfg.Scan.MinVolume1m <= 0 {
		cfg.Scan.MinVolume1m = 10
	}
	if cfg.Scan.SingularCeiling <= 0 {
		cfg.Scan.SingularCeiling = 20
	}
	if cfg.Scan.RequestTimeoutSec <= 0 {
		cfg.Scan.RequestTimeoutSec = 15
	}
	if cfg.Scan.PositionSize <= 0 {
		cfg.Scan.PositionSize = 500
	}
	if cfg.Scan.Leverage <= 0 {
		cfg.Scan.Leverage = 10
	}
	if cfg.Scan.CSVPath == "" {
		cfg.Scan.CSVPath = "advanced_opportunities.csv"
	}
	if cfg.Scan.PreviewRows <= 0 {
		cfg.Scan.PreviewRows = 10
	}

	if cfg.History.Path == "" {
		cfg.History.Path = "scan_history.md"
	}
	if cfg.History.MinVolume <= 0 {
		cfg.History.MinVolume = 5000
	}
	if cfg.History.TopN <= 0 {
		cfg.History.TopN = 3
	}

	if len(cfg.Exchanges) == 0 {
		cfg.Exchanges = make(map[string]ExchangeConfig, len(DefaultExchanges))
		for _, name := range DefaultExchanges {
			cfg.Exchanges[name] = ExchangeConfig{}
		}
	}

	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/fundarb.db"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "fundarb"
	}
	if cfg.Redis.TTLSeconds <= 0 {
		cfg.Redis.TTLSeconds = 3600
	}

	if cfg.Notify.TopN <= 0 {
		cfg.Notify.TopN = 5
	}
}

func validate(cfg *Config) error {
	cfg.Scan.Symbols = normalizeSymbols(cfg.Scan.Symbols)

	for _, h := range cfg.Scan.TargetHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("scan.target_hours: %d out of range", h)
		}
	}
	slices.Sort(cfg.Scan.TargetHours)
	cfg.Scan.TargetHours = slices.Compact(cfg.Scan.TargetHours)

	if off := *cfg.Scan.UTCOffsetHours; off < -12 || off > 14 {
		return fmt.Errorf("scan.utc_offset_hours: %d out of range", off)
	}

	if len(cfg.GetEnabledExchanges()) == 0 {
		return errors.New("exchanges: none enabled")
	}
	for name, ex := range cfg.Exchanges {
		if ex.RatePerSec < 0 {
			return fmt.Errorf("exchanges.%s.rate_per_sec must be >= 0", name)
		}
	}

	if cfg.SQLite.Enabled && strings.TrimSpace(cfg.SQLite.Path) == "" {
		return errors.New("sqlite.path empty but enabled")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	return nil
}

// GetEnabledExchanges 已启用的交易所名，小写排序
func (c *Config) GetEnabledExchanges() []string {
	out := make([]string, 0, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		if !ex.IsEnabled() {
			continue
		}
		out = append(out, strings.ToLower(strings.TrimSpace(name)))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Exchange 按名称取交易所配置
func (c *Config) Exchange(name string) ExchangeConfig {
	for k, v := range c.Exchanges {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return v
		}
	}
	return ExchangeConfig{}
}

// ForceSingular 强制逐个拉取的交易所
func (c *Config) ForceSingular() map[string]bool {
	out := map[string]bool{}
	for name, ex := range c.Exchanges {
		if ex.ForceSingular {
			out[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}
	return out
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
