package scan

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/application/service"
	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"
	"fundarb/internal/infrastructure/report"
)

type ServiceDeps struct {
	Gateways    []port.Gateway
	Unsupported []string // 已配置但没有适配器的交易所

	Collector *service.RateCollector
	Detector  *dsvc.SpreadDetector
	Enricher  service.EnricherOptions

	CSVPath      string
	PositionSize float64
	Leverage     int
	PreviewRows  int

	Sink     port.Sink
	Repo     port.OpportunityRepository
	Notifier port.Notifier

	Now      func() time.Time
	NewRunID func() string
}

type Service struct {
	deps ServiceDeps
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	if deps.Repo == nil {
		deps.Repo = NewNoopRepo()
	}
	if deps.Notifier == nil {
		deps.Notifier = NewNoopNotifier()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &Service{deps: deps, fmt: NewFormatter()}
}

// Run 执行一次扫描。没有机会不算错误。
func (s *Service) Run(ctx context.Context) (model.ScanRun, error) {
	d := s.deps
	started := d.Now()
	sc := service.NewScanContext(d.NewRunID(), started, d.Gateways)
	for _, name := range d.Unsupported {
		sc.MarkSkipped(name + " (unsupported)")
	}

	run := model.ScanRun{ID: sc.RunID, StartedAt: started, Exchanges: len(sc.Names())}
	loc := d.Detector.Location()

	_ = d.Sink.WriteLine(fmt.Sprintf("Starting Advanced Scan for target hours (%s): %v", loc.String(), d.Detector.TargetHours()))
	_ = d.Sink.WriteLine("Fetching funding rates...")
	quotes := d.Collector.Collect(ctx, sc)
	run.Quotes = len(quotes)

	var opps []model.EnrichedOpportunity
	if len(quotes) == 0 {
		_ = d.Sink.WriteLine("No data fetched.")
	} else {
		_ = d.Sink.WriteLine(fmt.Sprintf("Analyzing %d pairs...", len(dsvc.GroupBySymbol(quotes))))
		candidates := d.Detector.Detect(quotes)
		run.Candidates = len(candidates)

		opps = service.NewEnricher(sc, d.Enricher).Enrich(ctx, candidates)
		for _, o := range opps {
			_ = d.Sink.WriteLine(s.fmt.Found(o))
		}
	}
	run.Opportunities = len(opps)
	run.Skipped = sc.Skipped()
	run.FinishedAt = d.Now()

	s.persist(ctx, run, quotes, opps)

	// 每次扫描都覆盖 CSV，空结果只留表头
	meta := report.Meta{ScanTime: started, Location: loc, PositionSize: d.PositionSize, Leverage: d.Leverage}
	records := make([]report.Record, 0, len(opps))
	for _, o := range opps {
		records = append(records, report.NewRecord(o, meta))
	}
	if err := report.WriteCSV(d.CSVPath, records); err != nil {
		return run, fmt.Errorf("write report: %w", err)
	}

	if len(opps) == 0 {
		_ = d.Sink.WriteLine("No opportunities found matching criteria and time slots.")
		s.warnSkipped(run.Skipped)
		return run, nil
	}

	_ = d.Sink.NewLine()
	_ = d.Sink.WriteLine("Saved to " + d.CSVPath)

	if err := d.Notifier.Notify(ctx, RankBySpread(opps)); err != nil {
		log.Error().Err(err).Msg("notify failed")
	}

	_ = d.Sink.WriteTable(PreviewHeaders, s.fmt.PreviewRows(records, d.PreviewRows))
	s.warnSkipped(run.Skipped)
	return run, nil
}

// persist 存储失败只记日志
func (s *Service) persist(ctx context.Context, run model.ScanRun, quotes []model.FundingQuote, opps []model.EnrichedOpportunity) {
	repo := s.deps.Repo
	if err := repo.SaveRun(ctx, run); err != nil {
		log.Error().Err(err).Str("run", run.ID).Msg("save scan run failed")
	}
	if err := repo.SaveQuotes(ctx, run.ID, quotes); err != nil {
		log.Error().Err(err).Str("run", run.ID).Msg("save funding quotes failed")
	}
	if err := repo.SaveOpportunities(ctx, run.ID, opps); err != nil {
		log.Error().Err(err).Str("run", run.ID).Msg("save opportunities failed")
	}
}

func (s *Service) warnSkipped(skipped []string) {
	for _, line := range s.fmt.SkippedBanner(skipped) {
		_ = s.deps.Sink.WriteLine(line)
	}
}

// RankBySpread 按价差降序的副本
func RankBySpread(opps []model.EnrichedOpportunity) []model.EnrichedOpportunity {
	out := slices.Clone(opps)
	slices.SortStableFunc(out, func(a, b model.EnrichedOpportunity) int {
		return cmp.Compare(b.Spread, a.Spread)
	})
	return out
}
