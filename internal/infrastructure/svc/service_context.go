package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/application/service"
	"fundarb/internal/application/usecase/history"
	"fundarb/internal/application/usecase/scan"
	domainservice "fundarb/internal/domain/service"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/factory"
	"fundarb/internal/infrastructure/notify"
	"fundarb/internal/infrastructure/report"
	"fundarb/internal/infrastructure/storage/composite"
	postgresrepo "fundarb/internal/infrastructure/storage/postgres"
	redisrepo "fundarb/internal/infrastructure/storage/redis"
	sqliterepo "fundarb/internal/infrastructure/storage/sqlite"
	"fundarb/internal/interfaces/console"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 存储层，按需初始化
	redisClient  *redisclient.Client
	redisRepo    *redisrepo.Repo
	sqliteRepo   *sqliterepo.Repo
	postgresRepo *postgresrepo.Repo

	// 输出端口
	Sink port.Sink

	location *time.Location

	// 资源管理
	closerChain []func() error
}

// New 创建 ServiceContext，只做无 IO 的准备工作
func New(ctx context.Context, cfg *config.Config) *ServiceContext {
	return &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Sink:        console.NewSink(),
		location:    domainservice.ReferenceZone(*cfg.Scan.UTCOffsetHours),
		closerChain: make([]func() error, 0),
	}
}

// Location 参考时区
func (sc *ServiceContext) Location() *time.Location { return sc.location }

// BuildScanServiceDeps 构建扫描所需依赖。存储初始化失败只记录日志，扫描照常进行。
func (sc *ServiceContext) BuildScanServiceDeps() (scan.ServiceDeps, error) {
	cfg := sc.Config

	gateways, unsupported := factory.NewGateways(cfg)
	if len(gateways) == 0 {
		return scan.ServiceDeps{}, ErrNoGateways
	}

	sc.initializeStorage()

	return scan.ServiceDeps{
		Gateways:    gateways,
		Unsupported: unsupported,
		Collector: service.NewRateCollector(service.CollectorOptions{
			Symbols:         cfg.Scan.Symbols,
			SingularCeiling: cfg.Scan.SingularCeiling,
			ForceSingular:   cfg.ForceSingular(),
		}),
		Detector: domainservice.NewSpreadDetector(cfg.Scan.SpreadThreshold, cfg.Scan.TargetHours, sc.location),
		Enricher: service.EnricherOptions{
			MinVolume1m: cfg.Scan.MinVolume1m,
		},
		CSVPath:      cfg.Scan.CSVPath,
		PositionSize: cfg.Scan.PositionSize,
		Leverage:     cfg.Scan.Leverage,
		PreviewRows:  cfg.Scan.PreviewRows,
		Sink:         sc.Sink,
		Repo:         sc.repository(),
		Notifier:     sc.notifier(),
	}, nil
}

// BuildHistoryServiceDeps 构建历史记录所需依赖
func (sc *ServiceContext) BuildHistoryServiceDeps() history.ServiceDeps {
	cfg := sc.Config
	return history.ServiceDeps{
		CSVPath:     cfg.Scan.CSVPath,
		Log:         report.NewHistoryLog(cfg.History.Path, cfg.History.MinVolume, cfg.History.TopN),
		TargetHours: cfg.Scan.TargetHours,
		Location:    sc.location,
		Sink:        sc.Sink,
	}
}

// initializeStorage 依次初始化 Redis / SQLite / Postgres
func (sc *ServiceContext) initializeStorage() {
	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			log.Error().Err(err).Msg("redis initialization failed, continuing without it")
		}
	}
	if sc.Config.SQLite.Enabled {
		if err := sc.initSQLite(); err != nil {
			log.Error().Err(err).Msg("sqlite initialization failed, continuing without it")
		}
	}
	if sc.Config.Postgres.Enabled {
		if err := sc.initPostgres(); err != nil {
			log.Error().Err(err).Msg("postgres initialization failed, continuing without it")
		}
	}
}

// initRedis 初始化 Redis 连接
func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	ttl := time.Duration(sc.Config.Redis.TTLSeconds) * time.Second

	sc.redisRepo = redisrepo.New(
		rdb,
		sc.Config.Redis.Prefix,
		ttl,
		sc.Config.Redis.Stream,
		sc.Config.Redis.Channel,
	)

	// 注册关闭回调
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Msg("✓ Redis initialized")

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (sc *ServiceContext) initSQLite() error {
	repo, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("sqlite repo creation failed: %w", err)
	}
	sc.sqliteRepo = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", sc.Config.SQLite.Path).
		Msg("✓ SQLite initialized")

	return nil
}

// initPostgres 初始化 Postgres
func (sc *ServiceContext) initPostgres() error {
	repo, err := postgresrepo.New(sc.Config.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("postgres repo creation failed: %w", err)
	}
	sc.postgresRepo = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("✓ Postgres initialized")
	return nil
}

// repository 组合已初始化的后端，一个都没有时返回 noop
func (sc *ServiceContext) repository() port.OpportunityRepository {
	var repos []port.OpportunityRepository
	if sc.sqliteRepo != nil {
		repos = append(repos, sc.sqliteRepo)
	}
	if sc.postgresRepo != nil {
		repos = append(repos, sc.postgresRepo)
	}
	if sc.redisRepo != nil {
		repos = append(repos, sc.redisRepo)
	}
	if len(repos) == 0 {
		return scan.NewNoopRepo()
	}
	return composite.New(repos...)
}

func (sc *ServiceContext) notifier() port.Notifier {
	wh := notify.NewWebhook(sc.Config.Notify.WebhookURL, sc.Config.Notify.TopN)
	if !wh.Enabled() {
		return scan.NewNoopNotifier()
	}
	log.Info().Msg("✓ Webhook notifier enabled")
	return wh
}

// GetSQLiteRepo 获取 SQLite 仓储
func (sc *ServiceContext) GetSQLiteRepo() *sqliterepo.Repo {
	return sc.sqliteRepo
}

// Close 按初始化的相反顺序关闭资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
