// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-recommender/internal/common/aws"
	"job-recommender/internal/common/camunda"
	"job-recommender/internal/common/config"
	"job-recommender/internal/common/database"
	"job-recommender/internal/common/embedding"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/observability"
	"job-recommender/internal/common/resilience"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/cf"
	"job-recommender/internal/recommender/content"
	"job-recommender/internal/recommender/embedcache"
	"job-recommender/internal/recommender/hybrid"
	"job-recommender/internal/recommender/indexer"
	"job-recommender/internal/recommender/interactions"
	"job-recommender/internal/recommender/latentfactor"
	"job-recommender/internal/recommender/memorycf"
	"job-recommender/internal/recommender/modelstore"
	"job-recommender/internal/recommender/postings"
	"job-recommender/internal/recommender/trainer"
	"job-recommender/internal/recommender/vectorindex"
	"job-recommender/pkg/registry"

	gce "job-recommender/internal/workers/recommendation/get-cf-embedding"
	gms "job-recommender/internal/workers/recommendation/get-model-stats"
	ijp "job-recommender/internal/workers/recommendation/index-job-postings"
	rcf "job-recommender/internal/workers/recommendation/recommend-cf"
	rj "job-recommender/internal/workers/recommendation/rank-jobs"
	tcm "job-recommender/internal/workers/recommendation/train-cf-model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": cfg.App.Name})

	log.Info("starting worker manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio); err != nil {
		log.Warn("tracing disabled", map[string]interface{}{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Connections ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("Zeebe client connected successfully", nil)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres config invalid", zap.Error(err))
	}
	defer pg.Close()
	if err := resilience.RetryWithBackoff(ctx, "PostgreSQL connection", 15, 2*time.Second, log, pg.Ping); err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	log.Info("PostgreSQL connected successfully", nil)

	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch config invalid", zap.Error(err))
	}
	if err := resilience.RetryWithBackoff(ctx, "Elasticsearch connection", 15, 2*time.Second, log, esClient.Ping); err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	log.Info("Elasticsearch connected successfully", nil)

	// Redis only backs the embedding cache; without it vectors are read from the model.
	var cacheClient redis.Cmdable
	if cfg.Database.Redis.Address != "" {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err == nil {
			err = resilience.RetryWithBackoff(ctx, "Redis connection", 5, time.Second, log, rc.Ping)
		}
		if err != nil {
			log.Warn("embedding cache disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer rc.Close()
			cacheClient = rc.Client
			log.Info("Redis connected successfully", nil)
		}
	}

	// --- Recommender components ---
	weights, err := models.NewFeedbackWeights(cfg.Recommender.FeedbackWeights)
	if err != nil {
		zapLog.Fatal("invalid feedback weights", zap.Error(err))
	}

	embedder := embedding.NewClient(cfg.Embedding, cfg.Recommender.Breaker, log)
	index := vectorindex.NewStore(esClient.Client, cfg.Database.Elasticsearch, cfg.Recommender.Breaker, log)
	if err := index.EnsureIndex(ctx); err != nil {
		log.Warn("vector index not ready", map[string]interface{}{"error": err.Error()})
	}

	postingRepo := postings.NewRepository(pg.DB, cfg.Recommender.ActiveStatuses, log)
	interactionStore := interactions.NewStore(pg.DB, weights, log)
	bundles := modelstore.New(cfg.ModelStore, log)

	handle := latentfactor.NewHandle(bundles, log)
	if err := handle.Load(ctx); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeModelNotFound) {
			log.Info("no trained model yet; collaborative scores fall back to memory CF", nil)
		} else {
			log.Warn("failed to load model bundle", map[string]interface{}{"error": err.Error()})
		}
	}
	go handle.Watch(ctx, config.GetDuration(cfg.ModelStore.ReloadInterval))

	cache := embedcache.New(cacheClient, cfg.Cache, log)
	latent := cf.NewLatent(handle, cache, postingRepo, log)
	cfChain := cf.NewChain(log,
		latent,
		cf.NewMemory(memorycf.New(interactionStore, postingRepo, log)),
	)
	ranker := hybrid.NewRanker(content.NewScorer(embedder, index, cfg.Recommender, log), cfChain, cfg.Recommender, log)

	var notifier trainer.Notifier
	if sns := cfg.Notifications.SNS; sns.Enabled && sns.TopicARN != "" {
		client, err := aws.NewSNSClient(ctx, sns.Region, sns.TopicARN)
		if err != nil {
			log.Warn("training notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			notifier = client
		}
	}
	modelTrainer := trainer.New(interactionStore, bundles, handle, cache, notifier, cfg.Training, log)
	jobIndexer := indexer.New(postingRepo, index, embedder, cfg.Indexer, log)

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		log.Warn("activity registry unavailable; using built-in schemas", map[string]interface{}{
			"path":  cfg.Registry.Path,
			"error": err.Error(),
		})
	}

	// --- Workers ---
	workers := camunda.NewWorkerGroup(zeebe.Zeebe(), log)

	rankHandler, err := rj.NewHandler(rj.ConfigFromApp(cfg, reg.InputSchema(rj.TaskType)), ranker, obs, log)
	if err != nil {
		zapLog.Fatal("failed to create rank-jobs handler", zap.Error(err))
	}
	workers.Start(rj.TaskType, config.GetWorkerConfig(cfg, rj.TaskType), rankHandler.Handle)

	trainHandler, err := tcm.NewHandler(tcm.ConfigFromApp(cfg, reg.InputSchema(tcm.TaskType)), modelTrainer, obs, log)
	if err != nil {
		zapLog.Fatal("failed to create train-cf-model handler", zap.Error(err))
	}
	workers.Start(tcm.TaskType, config.GetWorkerConfig(cfg, tcm.TaskType), trainHandler.Handle)

	statsHandler, err := gms.NewHandler(gms.ConfigFromApp(cfg), modelTrainer, log)
	if err != nil {
		zapLog.Fatal("failed to create get-model-stats handler", zap.Error(err))
	}
	workers.Start(gms.TaskType, config.GetWorkerConfig(cfg, gms.TaskType), statsHandler.Handle)

	indexHandler, err := ijp.NewHandler(ijp.ConfigFromApp(cfg, reg.InputSchema(ijp.TaskType)), jobIndexer, log)
	if err != nil {
		zapLog.Fatal("failed to create index-job-postings handler", zap.Error(err))
	}
	workers.Start(ijp.TaskType, config.GetWorkerConfig(cfg, ijp.TaskType), indexHandler.Handle)

	cfHandler, err := rcf.NewHandler(rcf.ConfigFromApp(cfg, reg.InputSchema(rcf.TaskType)), cfChain, log)
	if err != nil {
		zapLog.Fatal("failed to create recommend-cf handler", zap.Error(err))
	}
	workers.Start(rcf.TaskType, config.GetWorkerConfig(cfg, rcf.TaskType), cfHandler.Handle)

	embeddingHandler, err := gce.NewHandler(gce.ConfigFromApp(cfg, reg.InputSchema(gce.TaskType)), latent, log)
	if err != nil {
		zapLog.Fatal("failed to create get-cf-embedding handler", zap.Error(err))
	}
	workers.Start(gce.TaskType, config.GetWorkerConfig(cfg, gce.TaskType), embeddingHandler.Handle)

	log.Info("workers registered", map[string]interface{}{"taskTypes": workers.TaskTypes()})

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr: cfg.Server.Address,
		Handler: newHealthMux(map[string]readinessCheck{
			"zeebe":         zeebe.HealthCheck,
			"postgres":      pg.Ping,
			"elasticsearch": esClient.Ping,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("error stopping health server", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("error closing Zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped gracefully", nil)
}
