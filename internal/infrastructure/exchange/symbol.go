package exchange

import (
	"strings"
)

// UnifiedSymbol BTC/USDT:USDT
func UnifiedSymbol(base, quote, settle string) string {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	settle = strings.ToUpper(strings.TrimSpace(settle))
	if base == "" || quote == "" {
		return ""
	}
	if settle == "" {
		return base + "/" + quote
	}
	return base + "/" + quote + ":" + settle
}

// SplitUnified BTC/USDT:USDT -> BTC, USDT, USDT
func SplitUnified(symbol string) (base, quote, settle string, ok bool) {
	pair, settle, _ := strings.Cut(strings.TrimSpace(symbol), ":")
	base, quote, found := strings.Cut(pair, "/")
	if !found || base == "" || quote == "" {
		return "", "", "", false
	}
	return base, quote, settle, true
}

// SymbolConverter 原生合约 ID 与统一符号互转
type SymbolConverter interface {
	// ToUnified 例: BTCUSDT -> BTC/USDT:USDT, BTC-USDT-SWAP -> BTC/USDT:USDT
	ToUnified(id string) string
	// ToNative 例: BTC/USDT:USDT -> BTCUSDT
	ToNative(symbol string) string
}

// SuffixConverter 拼接式 ID，例如 BTCUSDT、BTC_USDT、BTC-USDT-SWAP
type SuffixConverter struct {
	quote  string
	sep    string
	suffix string
}

// NewSuffixConverter quote 为计价币，sep 为币种间分隔符，suffix 为尾缀
func NewSuffixConverter(quote, sep, suffix string) *SuffixConverter {
	return &SuffixConverter{
		quote:  strings.ToUpper(strings.TrimSpace(quote)),
		sep:    sep,
		suffix: strings.ToUpper(suffix),
	}
}

func (c *SuffixConverter) ToUnified(id string) string {
	sym := strings.ToUpper(strings.TrimSpace(id))
	if sym == "" {
		return ""
	}
	sym = strings.TrimSuffix(sym, c.suffix)
	tail := c.sep + c.quote
	if !strings.HasSuffix(sym, tail) {
		return ""
	}
	base := strings.TrimSuffix(sym, tail)
	if base == "" {
		return ""
	}
	return UnifiedSymbol(base, c.quote, c.quote)
}

func (c *SuffixConverter) ToNative(symbol string) string {
	base, quote, _, ok := SplitUnified(strings.ToUpper(symbol))
	if !ok {
		return ""
	}
	return base + c.sep + quote + c.suffix
}
