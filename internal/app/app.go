package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/db"
	apphttp "github.com/yungbote/scripture-study-backend/internal/http"
	"github.com/yungbote/scripture-study-backend/internal/observability"
	"github.com/yungbote/scripture-study-backend/internal/platform/envutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/realtime"
	"github.com/yungbote/scripture-study-backend/internal/realtime/bus"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Server   *apphttp.Server
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	dbService    *db.Service
	clients      Clients
	bus          bus.Bus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New builds the whole object graph. Optional backends (redis, GCS, Google
// sign-in, SendGrid) fall back to local behavior when unconfigured.
func New(ctx context.Context, configDir string) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log, configDir)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelCfg := observability.OtelConfigFromEnv(cfg.OtelServiceName, cfg.Environment, cfg.ServiceVersion)
	otelShutdown := observability.InitOTel(ctx, log, otelCfg)

	dbService, err := OpenDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	theDB := dbService.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	store := querycache.NewMemoryStore()
	if clients.Redis != nil {
		store = querycache.NewRedisStore(clients.Redis)
	}
	cache := querycache.New(log, store, querycache.WithObserver(metrics.IncCache))

	hub := realtime.NewSSEHub(log)
	var (
		emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
		sseBus  bus.Bus
	)
	if clients.Redis != nil {
		sseBus, err = bus.NewRedisBus(log, clients.Redis, cfg.RedisChannel)
		if err != nil {
			clients.Close()
			_ = dbService.Close()
			return nil, fmt.Errorf("init SSE bus: %w", err)
		}
		emitter = &services.RedisEmitter{Bus: sseBus, Log: log}
	}
	notify := services.NewNotifier(emitter)

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, cache, notify)
	if err != nil {
		clients.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	server := wireServer(theDB, log, cfg, serviceset, clients, hub, metrics, otelCfg.Enabled)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		SSEHub:       hub,
		Metrics:      metrics,
		dbService:    dbService,
		clients:      clients,
		bus:          sseBus,
		otelShutdown: otelShutdown,
	}, nil
}

// OpenDB connects with the configured driver and migrates the schema.
func OpenDB(log *logger.Logger, cfg Config) (*db.Service, error) {
	var (
		svc *db.Service
		err error
	)
	switch cfg.DBDriver {
	case db.DriverSQLite:
		svc, err = db.NewSQLiteService(log, cfg.SQLitePath)
	default:
		svc, err = db.NewPostgresService(log, db.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			Name:     cfg.PostgresName,
			SSLMode:  cfg.PostgresSSLMode,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.DBDriver, err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%s automigrate: %w", cfg.DBDriver, err)
	}
	return svc, nil
}

// Start launches the background workers: the SSE bus forwarder and the DB pool sampler.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.bus != nil {
		if err := a.bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB, 0)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Lesson != nil {
		a.Services.Lesson.Wait()
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	a.clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
