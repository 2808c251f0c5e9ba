package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/synaptica-ai/noshow/pkg/common/config"
	"github.com/synaptica-ai/noshow/pkg/common/database"
	"github.com/synaptica-ai/noshow/pkg/common/kafka"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/gateway/middleware"
	"github.com/synaptica-ai/noshow/pkg/ingestion"
	"github.com/synaptica-ai/noshow/pkg/observability/metrics"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
	"github.com/synaptica-ai/noshow/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	runner, err := pipeline.NewRunnerFromConfig(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid feature configuration")
	}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	batches := ingestion.NewRepository(db)
	if err := batches.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate batch tables")
	}
	features := storage.NewFeatureTable(db)
	if err := features.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate feature tables")
	}

	var cache ingestion.FeatureCache
	if cfg.FeatureCacheEnabled {
		cache = storage.NewFeatureStore(database.GetRedis(cfg), cfg.FeatureCacheTTL, cfg.FeatureCachePrefix)
		defer database.CloseRedis()
	}

	var publisher ingestion.Publisher
	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(cfg, cfg.KafkaFeaturesTopic)
		defer producer.Close()
		publisher = producer
	}

	validator := ingestion.NewValidator(cfg.AllowedSources, cfg.MaxBatchRecords)
	svc := ingestion.NewService(validator, runner, batches, features, cache, publisher)
	handler := ingestion.NewHTTPHandler(svc, cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":           cfg.ServerHost,
			"port":           cfg.ServerPort,
			"history_years":  cfg.HistoryYears,
			"exclusion_days": cfg.ExclusionDays,
		}).Info("Feature Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	if cfg.KafkaEnabled {
		consumer := kafka.NewConsumer(cfg, cfg.KafkaBatchTopic, "")
		defer consumer.Close()
		go func() {
			if err := consumer.Consume(ctx, svc.HandleEvent); err != nil && ctx.Err() == nil {
				logger.Log.WithError(err).Error("extract consumer stopped")
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := batches.CleanupExpired(ctx, cfg.BatchRetention); err != nil {
					logger.Log.WithError(err).Warn("cleanup job failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Feature Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Feature Service stopped")
}
