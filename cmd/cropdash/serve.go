package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crop-dashboard/internal/api"
	"crop-dashboard/internal/common/camunda"
	"crop-dashboard/internal/common/config"
	"crop-dashboard/internal/common/database"
	"crop-dashboard/internal/common/observability"
	"crop-dashboard/internal/dashboard"
	"crop-dashboard/internal/export"
	"crop-dashboard/internal/localization"
	"crop-dashboard/internal/market"
	"crop-dashboard/internal/models"
	"crop-dashboard/internal/prediction"
	"crop-dashboard/internal/weather"
	"crop-dashboard/pkg/registry"

	dm "crop-dashboard/internal/workers/dashboard/derive-metrics"
	mt "crop-dashboard/internal/workers/enrichment/market-trend"
	wa "crop-dashboard/internal/workers/enrichment/weather-autofill"
	py "crop-dashboard/internal/workers/prediction/predict-yield"
	rc "crop-dashboard/internal/workers/prediction/recommend-crop"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API and, when enabled, the job workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLog.Info("Starting crop dashboard...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, log)
	defer obs.Shutdown()

	var checks []api.Checker

	// --- Redis (optional response cache) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err := retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			return err
		}
		defer redis.Close()
		checks = append(checks, api.CheckFunc{Label: "redis", Fn: redis.Ping})
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch (market price history) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled || cfg.Services.Market.Source == "elasticsearch" {
		err := retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return err
		}
		checks = append(checks, api.CheckFunc{Label: "elasticsearch", Fn: func(context.Context) error { return esClient.Ping() }})
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Domain services ---
	resolver, err := localization.Load(models.LanguageCode(cfg.Localization.BaseLanguage), cfg.Localization.OverlayDir, log)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	predictor := prediction.NewClient(cfg.Services.Prediction.BaseURL, config.GetDuration(cfg.Services.Prediction.Timeout), obs, log)

	var weatherCache weather.Cache
	if redis != nil {
		weatherCache = redis
	}
	weatherSource := weather.NewFetcher(&weather.Config{
		BaseURL:  cfg.Services.Weather.BaseURL,
		APIKey:   cfg.Services.Weather.APIKey,
		Timeout:  config.GetDuration(cfg.Services.Weather.Timeout),
		CacheTTL: config.GetDuration(cfg.Services.Weather.CacheTTL),
	}, weatherCache, obs, log)

	marketSource := newMarketSource(esClient, redis)

	reg, err := registry.Default()
	if err != nil {
		return err
	}
	validator, err := reg.Validator(py.TaskType)
	if err != nil {
		return err
	}
	recommendValidator, err := reg.Validator(rc.TaskType)
	if err != nil {
		return err
	}

	hub := api.NewHub(log)
	defer hub.Close()

	store := dashboard.NewStore(&dashboard.Deps{
		Predictor:          predictor,
		Recommender:        predictor,
		Weather:            weatherSource,
		Market:             marketSource,
		MarketState:        cfg.Services.Market.State,
		Resolver:           resolver,
		Validator:          validator,
		RecommendValidator: recommendValidator,
		Notifier:           hub,
		FetchTimeout:       config.GetDuration(cfg.Server.FetchTimeout),
		Obs:                obs,
		Logger:             log,
	}, config.GetDuration(cfg.Server.SessionTTL))
	defer store.Close()
	go store.Run(ctx, sweepInterval)

	var exporter *export.Exporter
	if cfg.Export.Enabled {
		exporter = export.NewExporter(export.NewRodRenderer(&export.Config{
			ChromeBin: cfg.Export.ChromeBin,
			Headless:  cfg.Export.Headless,
			Timeout:   config.GetDuration(cfg.Export.Timeout),
		}), cfg.Server.PublicBaseURL, cfg.Export.FileName, log)
	}

	// --- Job workers ---
	if cfg.Camunda.Enabled {
		zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			RetryConfig:            camunda.DefaultRetryConfig,
		})
		if err != nil {
			return fmt.Errorf("zeebe client failed: %w", err)
		}
		defer zeebe.Close()
		checks = append(checks, api.CheckFunc{Label: "zeebe", Fn: zeebe.HealthCheck})

		workers, err := startWorkers(zeebe, reg, predictor, weatherSource, marketSource, resolver, obs)
		if err != nil {
			return err
		}
		defer func() {
			for _, w := range workers {
				w.Close()
				w.AwaitClose()
			}
		}()
	}

	// --- HTTP ---
	gin.SetMode(cfg.Server.GinMode)
	router := api.NewRouter(api.NewHandler(store, hub, exporter, resolver, checks, log), log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, stopping...")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Crop dashboard stopped gracefully")
	return nil
}

// newMarketSource picks the configured price backend and puts the Redis
// cache in front of it when available.
func newMarketSource(es *database.ElasticsearchClient, redis *database.RedisClient) market.Source {
	var src market.Source
	switch cfg.Services.Market.Source {
	case "elasticsearch":
		src = market.NewESSource(es, cfg.Services.Market.Index)
	default:
		src = market.NewHTTPSource(cfg.Services.Market.BaseURL, config.GetDuration(cfg.Services.Market.Timeout))
	}
	if redis != nil {
		src = market.NewCachedSource(src, redis, config.GetDuration(cfg.Services.Market.CacheTTL), log)
	}
	return src
}

func startWorkers(
	zeebe *camunda.Client,
	reg *registry.ActivityRegistry,
	predictor *prediction.Client,
	weatherSource weather.Source,
	marketSource market.Source,
	resolver *localization.Resolver,
	obs *observability.Observability,
) ([]worker.JobWorker, error) {
	var workers []worker.JobWorker
	start := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if w := camunda.StartWorker(zeebe.Raw(), taskType, wcfg, handler, obs, log); w != nil {
			workers = append(workers, w)
		}
	}
	timeout := func(taskType string, fallback time.Duration) time.Duration {
		if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
			return config.GetDuration(ms)
		}
		return fallback
	}

	pyCfg := py.LoadConfig()
	pyCfg.Timeout = timeout(py.TaskType, pyCfg.Timeout)
	pyHandler, err := py.NewHandler(pyCfg, reg, predictor, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s handler: %w", py.TaskType, err)
	}
	start(py.TaskType, pyHandler)

	rcCfg := rc.LoadConfig()
	rcCfg.Timeout = timeout(rc.TaskType, rcCfg.Timeout)
	rcHandler, err := rc.NewHandler(rcCfg, reg, predictor, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s handler: %w", rc.TaskType, err)
	}
	start(rc.TaskType, rcHandler)

	dmCfg := dm.LoadConfig()
	dmCfg.Timeout = timeout(dm.TaskType, dmCfg.Timeout)
	dmHandler, err := dm.NewHandler(dmCfg, reg, resolver, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s handler: %w", dm.TaskType, err)
	}
	start(dm.TaskType, dmHandler)

	waCfg := wa.LoadConfig()
	waCfg.Timeout = timeout(wa.TaskType, waCfg.Timeout)
	waHandler, err := wa.NewHandler(waCfg, reg, weatherSource, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s handler: %w", wa.TaskType, err)
	}
	start(wa.TaskType, waHandler)

	mtCfg := mt.LoadConfig()
	mtCfg.Timeout = timeout(mt.TaskType, mtCfg.Timeout)
	mtCfg.State = cfg.Services.Market.State
	mtHandler, err := mt.NewHandler(mtCfg, reg, marketSource, obs, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s handler: %w", mt.TaskType, err)
	}
	start(mt.TaskType, mtHandler)

	zapLog.Info("Job workers registered", zap.Int("count", len(workers)))
	return workers, nil
}
