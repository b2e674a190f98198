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

	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/config"
	"github.com/kailas-cloud/eshoplite/internal/db"
	dbRedis "github.com/kailas-cloud/eshoplite/internal/db/redis"
	"github.com/kailas-cloud/eshoplite/internal/domain"
	logpkg "github.com/kailas-cloud/eshoplite/internal/logger"
	"github.com/kailas-cloud/eshoplite/internal/metrics"
	"github.com/kailas-cloud/eshoplite/internal/repository/embcache"
	"github.com/kailas-cloud/eshoplite/internal/repository/memindex"
	"github.com/kailas-cloud/eshoplite/internal/repository/postgres"
	"github.com/kailas-cloud/eshoplite/internal/repository/productcache"
	"github.com/kailas-cloud/eshoplite/internal/repository/qdrantindex"
	"github.com/kailas-cloud/eshoplite/internal/repository/redisindex"
	"github.com/kailas-cloud/eshoplite/internal/repository/seed"
	"github.com/kailas-cloud/eshoplite/internal/repository/sqlite"
	"github.com/kailas-cloud/eshoplite/internal/transport/agents"
	chiTransport "github.com/kailas-cloud/eshoplite/internal/transport/chi"
	"github.com/kailas-cloud/eshoplite/internal/transport/kafka"
	openaiTransport "github.com/kailas-cloud/eshoplite/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/eshoplite/internal/usecase/catalog"
	embeddinguc "github.com/kailas-cloud/eshoplite/internal/usecase/embedding"
	"github.com/kailas-cloud/eshoplite/internal/usecase/enrichment"
	healthuc "github.com/kailas-cloud/eshoplite/internal/usecase/health"
	"github.com/kailas-cloud/eshoplite/internal/usecase/insights"
	searchuc "github.com/kailas-cloud/eshoplite/internal/usecase/search"
	"github.com/kailas-cloud/eshoplite/internal/version"
)

// catalogStore is what both SQL backends provide.
type catalogStore interface {
	Ping(ctx context.Context) error
	Close() error
	Count(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (domain.Product, error)
	FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id int64) error
	SaveEmbedding(ctx context.Context, id int64, vec []float32) error
	SaveInsight(ctx context.Context, in *domain.QuestionInsight) error
	ListInsights(ctx context.Context, limit int) ([]domain.QuestionInsight, error)
}

// productCatalog is the catalog surface shared by the store and its cache.
type productCatalog interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (domain.Product, error)
	FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id int64) error
	SaveEmbedding(ctx context.Context, id int64, vec []float32) error
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting eshoplite API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_driver", cfg.Catalog.Driver),
		zap.String("vector_index", cfg.VectorIndex.Driver),
	)

	ctx := context.Background()
	metrics.RegisterAIMetrics()

	store, err := openCatalog(ctx, cfg.Catalog, logger)
	if err != nil {
		logger.Fatal("Failed to open catalog", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	if cfg.Catalog.Seed {
		if _, err := seed.Load(ctx, store, logger); err != nil {
			logger.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	// Redis: rueidis for the FT index and embedding cache, go-redis for the product cache.
	// Both clients are built from the same connection config.
	redisCfg := dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	var redisStore db.Store
	if cfg.Redis.Enabled() {
		rs, err := dbRedis.NewStore(redisCfg)
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer rs.Close()
		if err := rs.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		redisStore = rs
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
	}

	var catalog productCatalog = store
	if cfg.Cache.Products {
		rdb, err := dbRedis.NewUniversalClient(redisCfg)
		if err != nil {
			logger.Fatal("Failed to create product cache client", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		catalog = productcache.New(store, rdb, time.Duration(cfg.Cache.ProductTTLSec)*time.Second,
			metrics.ProductCacheTotal, logger)
	}

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := buildEmbedder(baseEmbedder, cfg, redisStore, logger)

	chat := newChat(cfg.Chat, cfg.Chat.Model, logger)
	var reasoner domain.ChatCompleter
	if cfg.Chat.ReasoningModel != "" {
		reasoner = newChat(cfg.Chat, cfg.Chat.ReasoningModel, logger)
	}

	index, closeIndex, err := openVectorIndex(cfg, redisStore)
	if err != nil {
		logger.Fatal("Failed to open vector index", zap.Error(err))
	}
	defer closeIndex()

	searchSvc := searchuc.New(index, catalog, embedder, chat, reasoner, searchuc.Config{
		TopK:       cfg.Search.TopK,
		Threshold:  *cfg.Search.Threshold,
		Dimensions: cfg.Embedding.Dimensions,
	}, logger)

	agentClient := agents.New(agents.Config{
		InventoryURL:  cfg.Enrichment.InventoryURL,
		PromotionsURL: cfg.Enrichment.PromotionsURL,
		ResearcherURL: cfg.Enrichment.ResearcherURL,
	})
	orchestrator := enrichment.New(catalog, agentClient, enrichment.Config{
		MaxCandidates: cfg.Enrichment.MaxCandidates,
		Concurrency:   cfg.Enrichment.Concurrency,
		CallTimeout:   time.Duration(cfg.Enrichment.TimeoutSec) * time.Second,
	}, logger)

	deps := chiTransport.Deps{
		Catalog:        cataloguc.New(catalog),
		Semantic:       searchSvc,
		Orchestrator:   orchestrator,
		Health:         healthuc.New(store, baseEmbedder, searchSvc),
		RecordSearches: cfg.Insights.RecordSearches,
	}

	if cfg.Insights.Enabled {
		var publisher insights.Publisher
		if len(cfg.Insights.Kafka.Brokers) > 0 {
			p := kafka.NewPublisher(cfg.Insights.Kafka.Brokers, cfg.Insights.Kafka.Topic, logger)
			defer func() { _ = p.Close() }()
			publisher = p
		}
		deps.Insights = insights.New(store, chat, publisher,
			time.Duration(cfg.Insights.TimeoutSec)*time.Second, logger)
	}

	router := chiTransport.NewRouter(chiTransport.NewServer(deps, logger), cfg.Auth.APIKeys, logger)

	// Warm the index in the background; a failure is retried on the first search.
	go func() {
		if err := searchSvc.Initialize(ctx); err != nil {
			logger.Warn("Vector index warm-up failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func openCatalog(ctx context.Context, cfg config.CatalogConfig, logger *zap.Logger) (catalogStore, error) {
	switch cfg.Driver {
	case "postgres":
		if err := postgres.Migrate(cfg.PostgresDSN, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return s, nil
	default:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, nil
	}
}

func openVectorIndex(cfg config.Config, redisStore db.Store) (searchuc.VectorIndex, func(), error) {
	noop := func() {}
	switch cfg.VectorIndex.Driver {
	case "qdrant":
		ix, client, err := qdrantindex.Dial(qdrantindex.Config{
			Host:       cfg.VectorIndex.Qdrant.Host,
			Port:       cfg.VectorIndex.Qdrant.Port,
			APIKey:     cfg.VectorIndex.Qdrant.APIKey,
			UseTLS:     cfg.VectorIndex.Qdrant.UseTLS,
			Collection: cfg.VectorIndex.Collection,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, noop, err
		}
		return ix, func() { _ = client.Close() }, nil
	case "redis":
		var opts []redisindex.Option
		if cfg.VectorIndex.Redis.Algorithm == "hnsw" {
			opts = append(opts, redisindex.WithHNSW(cfg.VectorIndex.Redis.HNSWM))
		}
		return redisindex.New(redisStore, cfg.VectorIndex.Collection, cfg.Embedding.Dimensions, opts...), noop, nil
	default:
		return memindex.New(cfg.Embedding.Dimensions), noop, nil
	}
}

func newChat(cfg config.ChatConfig, model string, logger *zap.Logger) *openaiTransport.Chat {
	return openaiTransport.NewChat(&openaiTransport.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    model,
		Provider: cfg.Provider,
		Logger:   logger,
	})
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(base domain.Embedder, cfg config.Config, redisStore db.Store, logger *zap.Logger) domain.Embedder {
	embedder := base
	if cfg.Cache.Embeddings && redisStore != nil {
		embedder = embcache.New(base, redisStore, cfg.Embedding.Model,
			time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}
	return embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger,
	)
}
