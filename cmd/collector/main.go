package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/cache"
	"github.com/nakatash/pokeca-search/internal/config"
	"github.com/nakatash/pokeca-search/internal/connector/registry"
	cronrunner "github.com/nakatash/pokeca-search/internal/cron"
	"github.com/nakatash/pokeca-search/internal/db"
	"github.com/nakatash/pokeca-search/internal/handler"
	"github.com/nakatash/pokeca-search/internal/logger"
	"github.com/nakatash/pokeca-search/internal/middleware"
	gormrepository "github.com/nakatash/pokeca-search/internal/repository/gorm"
	"github.com/nakatash/pokeca-search/internal/service"

	_ "github.com/nakatash/pokeca-search/docs"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}

	cfgPath := os.Getenv("PC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PC_ENV_ONLY"); envOnlyRaw != "" {
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
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	var rankingCache service.RankingCache
	redisClient, err := db.ConnectRedis(context.Background(), cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, ranking cache disabled", zap.Error(err))
	} else if redisClient != nil {
		defer redisClient.Close()
		rankingCache = cache.NewRankingCache(redisClient, cfg.Redis.CacheTTL, logger)
	}

	connectors := registry.New(cfg, logger)
	ingestSvc := &service.IngestionService{
		Store: store,
		Policy: service.InsertionPolicy{
			StockChangeThreshold: cfg.Ingestion.StockChangeThreshold,
			Staleness:            cfg.Ingestion.Staleness,
			DefaultCondition:     cfg.Ingestion.DefaultCondition,
		},
		Logger: logger,
	}
	rankingSvc := &service.RankingService{
		Store:         store,
		Cache:         rankingCache,
		Logger:        logger,
		TopN:          cfg.Ranking.TopN,
		CurrentWindow: cfg.Ranking.CurrentWindow,
		WindowMargin:  cfg.Ranking.WindowMargin,
		DefaultLimit:  cfg.Ranking.DefaultLimit,
	}
	querySvc := &service.CardQueryService{Repo: store, Connectors: connectors}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	collectorSvc := &service.CollectorService{
		Registry:  connectors,
		Ingestion: ingestSvc,
		Rankings:  rankingSvc,
		Runs:      store,
		Settings:  settingsSvc,
		Scheduler: cronRunner,
		Config:    cfg.Collector,
		Logger:    logger,
	}

	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Rankings, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeatureRankings, true) {
				return
			}
			for _, res := range rankingSvc.UpdateAllRankings(ctx) {
				if res.Error != "" {
					logger.Warn("cron ranking update failed",
						zap.String("type", res.Type),
						zap.String("error", res.Error),
					)
					continue
				}
				logger.Info("cron ranking update ok",
					zap.String("type", res.Type),
					zap.Int("count", res.Count),
				)
			}
		})
		if err != nil {
			logger.Warn("cron register rankings failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()
	defer collectorSvc.Stop()

	if cfg.Collector.AutoStart {
		go func() {
			if _, err := collectorSvc.Start(ctx); err != nil {
				logger.Warn("auto-start collection failed", zap.Error(err))
			}
		}()
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog(logger))

	auth := middleware.RequireCronSecret(cfg.Auth, cfg.App.IsProduction(), logger)

	(&handler.HealthHandler{Store: store}).Register(engine)
	(&handler.CollectorHandler{Collector: collectorSvc, Runs: store, Auth: auth, Logger: logger}).Register(engine)
	(&handler.RankingHandler{Service: rankingSvc, Auth: auth, Logger: logger}).Register(engine)
	(&handler.CardHandler{Query: querySvc, Logger: logger}).Register(engine)
	(&handler.SystemSettingsHandler{Repo: store, Settings: settingsSvc, Auth: auth}).Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
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
