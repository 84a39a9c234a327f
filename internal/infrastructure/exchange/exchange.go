package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultRatePerSec = 10.0
	userAgent         = "fundarb/1.0"
)

// GatewayConfig 构建 gateway 的参数
type GatewayConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64 // 0 表示使用默认值
}

// RESTClient 公共行情 REST 客户端：单次超时、客户端限速、不重试
type RESTClient struct {
	name    string
	client  *resty.Client
	limiter *rate.Limiter
}

func NewRESTClient(name, defaultBaseURL string, cfg GatewayConfig) *RESTClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &RESTClient{
		name:    name,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
	}
}

// BaseURL 实际使用的地址
func (c *RESTClient) BaseURL() string { return c.client.BaseURL }

// GetJSON GET 请求并解析 JSON 响应体
func (c *RESTClient) GetJSON(ctx context.Context, path string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req := c.client.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%s GET %s: %w", c.name, path, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%s api error: %d %s", c.name, resp.StatusCode(), truncate(string(BytesTrimSpace(resp.Body())), 256))
	}
	return ParseJSON(resp.Body(), out)
}

// BytesTrimSpace trims whitespace from byte slice
func BytesTrimSpace(b []byte) []byte {
	i := 0
	j := len(b) - 1
	for i <= j && (b[i] == ' ' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t') {
		i++
	}
	for j >= i && (b[j] == ' ' || b[j] == '\n' || b[j] == '\r' || b[j] == '\t') {
		j--
	}
	if i > j {
		return []byte{}
	}
	return b[i : j+1]
}

// ParseJSON safely parses JSON
func ParseJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

// ParseFloat 解析交易所返回的数字字符串，空串视为错误
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty number")
	}
	return strconv.ParseFloat(s, 64)
}

// ParseInt 解析毫秒时间戳等整数字符串，空串返回 0
func ParseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FloatPtr 解析失败返回 nil
func FloatPtr(s string) *float64 {
	v, err := ParseFloat(s)
	if err != nil {
		return nil
	}
	return &v
}

// AnyFloat K线数组中混合的数字或字符串
func AnyFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return ParseFloat(t)
	case json.Number:
		return t.Float64()
	case nil:
		return 0, errors.New("null number")
	default:
		return 0, fmt.Errorf("unexpected number type %T", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
