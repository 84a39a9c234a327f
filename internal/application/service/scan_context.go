package service

import (
	"slices"
	"sync"
	"time"

	"fundarb/internal/application/port"
)

// ScanContext 单次扫描的运行状态，扫描结束后丢弃
type ScanContext struct {
	RunID     string
	StartedAt time.Time

	gateways map[string]port.Gateway
	names    []string

	mu      sync.Mutex
	skipped []string
}

// NewScanContext 创建扫描上下文，同名 gateway 以后者为准
func NewScanContext(runID string, startedAt time.Time, gateways []port.Gateway) *ScanContext {
	m := make(map[string]port.Gateway, len(gateways))
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		m[gw.Name()] = gw
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	return &ScanContext{
		RunID:     runID,
		StartedAt: startedAt,
		gateways:  m,
		names:     names,
	}
}

// Gateway 按交易所名查找
func (sc *ScanContext) Gateway(name string) (port.Gateway, bool) {
	gw, ok := sc.gateways[name]
	return gw, ok
}

// Gateways 按交易所名排序
func (sc *ScanContext) Gateways() []port.Gateway {
	out := make([]port.Gateway, 0, len(sc.names))
	for _, name := range sc.names {
		out = append(out, sc.gateways[name])
	}
	return out
}

// Names 交易所名，已排序
func (sc *ScanContext) Names() []string { return slices.Clone(sc.names) }

// MarkSkipped 记录被跳过的交易所，例如 "okx (312 symbols)"
func (sc *ScanContext) MarkSkipped(entry string) {
	sc.mu.Lock()
	sc.skipped = append(sc.skipped, entry)
	sc.mu.Unlock()
}

// Skipped 跳过列表，按字典序
func (sc *ScanContext) Skipped() []string {
	sc.mu.Lock()
	out := slices.Clone(sc.skipped)
	sc.mu.Unlock()
	slices.Sort(out)
	return out
}
