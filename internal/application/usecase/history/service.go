package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	dsvc "fundarb/internal/domain/service"
	"fundarb/internal/infrastructure/report"
)

// ErrInputNotFound 扫描结果 CSV 不存在
var ErrInputNotFound = errors.New("scan report not found")

type ServiceDeps struct {
	CSVPath     string
	Log         *report.HistoryLog
	TargetHours []int
	Location    *time.Location
	Sink        port.Sink
	Now         func() time.Time
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if len(deps.TargetHours) == 0 {
		deps.TargetHours = dsvc.DefaultTargetHours
	}
	return &Service{deps: deps}
}

// Run 把最新扫描的前 N 名追加到历史文件，返回写入的排名行。
// 只有表头的 CSV 表示本次扫描没有机会，同样记一行占位。
func (s *Service) Run(ctx context.Context) ([]report.Record, error) {
	d := s.deps
	records, err := report.ReadCSV(d.CSVPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, d.CSVPath)
	}
	if errors.Is(err, report.ErrNoHeader) {
		_ = d.Sink.WriteLine("[history] CSV is empty. Nothing to log.")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := d.Now().In(d.Location)
	label := dsvc.NearestTargetLabel(now, d.TargetHours)
	top, err := d.Log.Append(records, now, label)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", d.Log.Path()).Str("label", label).Int("rows", len(top)).Msg("history appended")

	if len(top) == 0 {
		_ = d.Sink.WriteLine(fmt.Sprintf("[history] No opportunities meet the volume filter (>= %s).", report.FormatThreshold(d.Log.MinVolume())))
	}
	_ = d.Sink.WriteLine(fmt.Sprintf("[history] ✅ Logged %d opportunities for %s on %s", len(top), label, now.Format("2006-01-02")))
	for i, r := range top {
		_ = d.Sink.WriteLine(fmt.Sprintf("  #%d: %s | Spread: %s | %s → %s", i+1, r.Pair, report.FormatPct(r.Spread), r.LongExchange, r.ShortExchange))
	}
	return top, nil
}
