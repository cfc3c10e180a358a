package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/audit"
	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/bank"
	"github.com/chappie1998/jetson/internal/config"
	cronrunner "github.com/chappie1998/jetson/internal/cron"
	"github.com/chappie1998/jetson/internal/db"
	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/handler"
	"github.com/chappie1998/jetson/internal/logger"
	"github.com/chappie1998/jetson/internal/metrics"
	gormrepository "github.com/chappie1998/jetson/internal/repository/gorm"
	"github.com/chappie1998/jetson/internal/risk"
	"github.com/chappie1998/jetson/internal/service"

	_ "github.com/chappie1998/jetson/docs"
)

const version = "0.1.0"

func main() {
	cfgPath := os.Getenv("JETSON_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("JETSON_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default feature switches failed", zap.Error(err))
	}

	registry := metrics.Init(logger)

	hub := events.NewHub(logger, cfg.Events.BufferSize)
	metrics.RegisterHubDepth(registry, func() float64 { return float64(hub.Dropped()) })

	var redisClient *redis.Client
	if cfg.Events.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Events.Redis.Addr,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
		})
	}

	trail := &audit.Trail{
		Agent:  "jetsond",
		Logger: logger,
		Redis:  redisClient,
	}

	deriver := auth.Deriver{Secret: []byte(cfg.Derivation.Secret)}
	ledgerBank := &bank.Bank{Repo: store, Logger: logger, Clock: db.NowUTC}
	riskAdvisor := &risk.Advisor{Config: cfg.Risk, Repo: store, Logger: logger}

	swapSvc := &service.SwapService{
		Repo:      store,
		Engine:    ledgerBank,
		Registrar: ledgerBank,
		Hub:       hub,
		Deriver:   deriver,
		Flags:     settingsSvc,
		Logger:    logger,
		Clock:     db.NowUTC,
	}
	strategySvc := &service.StrategyService{
		Repo:    store,
		Hub:     hub,
		Deriver: deriver,
		Flags:   settingsSvc,
		Risk:    riskAdvisor,
		Logger:  logger,
		Clock:   db.NowUTC,
	}
	treasurySvc := &service.TreasuryService{
		Repo:   store,
		Hub:    hub,
		Flags:  settingsSvc,
		Logger: logger,
		Clock:  db.NowUTC,
	}
	snapshotSvc := &service.SnapshotService{
		Repo:   store,
		Flags:  settingsSvc,
		Logger: logger,
		Clock:  db.NowUTC,
	}
	reconciler := &service.StatsReconciler{
		Repo:   store,
		Flags:  settingsSvc,
		Logger: logger,
	}

	jwt := auth.JWT{
		Secret:   []byte(cfg.Auth.Secret),
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(auth.Middleware(cfg.Auth.Enabled, jwt))
	engine.Use(audit.InjectTrailMiddleware(trail))
	engine.Use(audit.WriteAuditMiddleware(trail, logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, App: "jetson", Version: version}
	healthHandler.Register(engine)
	systemHandler := &handler.SystemHandler{
		Repo:     store,
		Swaps:    swapSvc,
		Settings: settingsSvc,
		JWT:      jwt,
		DevToken: !cfg.Auth.Enabled || strings.EqualFold(cfg.App.Env, "dev"),
	}
	systemHandler.Register(engine)
	swapHandler := &handler.SwapHandler{Swaps: swapSvc}
	swapHandler.Register(engine)
	accountHandler := &handler.AccountHandler{Repo: store, Bank: ledgerBank}
	accountHandler.Register(engine)
	strategyHandler := &handler.StrategyHandler{Repo: store, Strategies: strategySvc}
	strategyHandler.Register(engine)
	treasuryHandler := &handler.TreasuryHandler{
		Repo:       store,
		Treasury:   treasurySvc,
		Risk:       riskAdvisor,
		Snapshots:  snapshotSvc,
		Reconciler: reconciler,
	}
	treasuryHandler.Register(engine)
	eventsHandler := &handler.EventsHandler{Repo: store, Hub: hub, Logger: logger}
	eventsHandler.Register(engine)

	engine.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseCtx := audit.WithTrail(ctx, trail)

	if cfg.Events.LogSink {
		logSink := &events.LogSink{Hub: hub, Logger: logger}
		go func() {
			if err := logSink.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("event log sink stopped", zap.Error(err))
			}
		}()
	}
	if redisClient != nil {
		redisSink := &events.RedisSink{
			Hub:    hub,
			Client: redisClient,
			Stream: cfg.Events.Redis.Stream,
			MaxLen: cfg.Events.Redis.MaxStream,
			Logger: logger,
		}
		go func() {
			if err := redisSink.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("event redis sink stopped", zap.Error(err))
			}
		}()
	}

	cronRunner := cronrunner.New(logger, baseCtx)
	if cfg.Cron.Enabled {
		if cfg.Snapshot.Enabled {
			_, err := cronRunner.Add("treasury_snapshot", cfg.Snapshot.Schedule, func(ctx context.Context) error {
				_, err := snapshotSvc.RunOnce(ctx)
				return err
			})
			if err != nil {
				logger.Warn("cron register treasury snapshot failed", zap.Error(err))
			}
		}
		if cfg.Reconcile.Enabled {
			_, err := cronRunner.Add("stats_reconcile", cfg.Reconcile.Schedule, func(ctx context.Context) error {
				drift, err := reconciler.RunOnce(ctx)
				if err != nil {
					return err
				}
				if drift > 0 {
					logger.Warn("stats drift detected", zap.Int("rows", drift))
				}
				return nil
			})
			if err != nil {
				logger.Warn("cron register stats reconcile failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Jetson-Address,X-Jetson-Role")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
