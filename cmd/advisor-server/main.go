// cmd/advisor-server/main.go
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

	"climate-risk-advisor/internal/api"
	"climate-risk-advisor/internal/common/audit"
	"climate-risk-advisor/internal/common/config"
	"climate-risk-advisor/internal/common/database"
	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/common/logger"
	"climate-risk-advisor/internal/common/observability"
	"climate-risk-advisor/internal/common/replies"
	"climate-risk-advisor/internal/common/retrieval"
	"climate-risk-advisor/internal/common/session"
	"climate-risk-advisor/internal/common/websearch"
	"climate-risk-advisor/internal/models"
	"climate-risk-advisor/internal/pipeline"
)

const serviceName = "climate-risk-advisor"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting climate risk advisor...",
		zap.String("llmBackend", cfg.LLM.Backend),
		zap.String("retrievalBackend", cfg.Retrieval.Backend),
		zap.String("sessionStore", cfg.Session.Store),
	)

	obs := observability.New(serviceName, observability.Options{
		TracingEnabled: cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	defer obs.Shutdown()

	ctx := context.Background()
	checks := make(map[string]api.Check)

	// --- Retrieval backends ---
	var backends retrieval.Backends
	switch cfg.Retrieval.Backend {
	case "elasticsearch":
		err = retryWithBackoff(func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			backends.Elasticsearch = es
			return nil
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = backends.Elasticsearch.Ping
		zapLog.Info("Elasticsearch connected successfully")

	case "weaviate":
		err = retryWithBackoff(func() error {
			wv, err := database.NewWeaviate(cfg.Weaviate)
			if err != nil {
				return err
			}
			if err := wv.Ping(ctx); err != nil {
				return err
			}
			backends.Weaviate = wv
			return nil
		}, 10, 2*time.Second, zapLog, "Weaviate connection")
		if err != nil {
			zapLog.Fatal("weaviate failed after retries", zap.Error(err))
		}
		checks["weaviate"] = backends.Weaviate.Ping
		zapLog.Info("Weaviate connected successfully")

	default:
		zapLog.Warn("No retrieval backend configured, local documents disabled")
	}

	retrievers, err := retrieval.ForTopics(cfg.Retrieval, backends)
	if err != nil {
		zapLog.Fatal("retrieval setup failed", zap.Error(err))
	}

	// --- Session store ---
	var store session.Store = session.NewMemoryStore(config.GetDuration(cfg.Session.TTL))
	if cfg.Session.Store == "redis" {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(ctx, cfg.Database.Redis)
			return err
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		store = session.NewRedisStore(rc.Client, config.GetDuration(cfg.Session.TTL))
		checks["redis"] = rc.Ping
		zapLog.Info("Redis connected successfully")
	}
	sessions := session.NewManager(store, historyWindow(cfg.Pipeline.HistoryWindow), log)

	// --- Audit log ---
	var turns models.TurnRepository
	if cfg.Audit.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
			return err
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		recorder := audit.NewPostgresRecorder(pg.DB, log)
		if err := recorder.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("audit schema setup failed", zap.Error(err))
		}
		turns = recorder
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL audit log enabled")
	}

	// --- Collaborators ---
	generator, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		zapLog.Fatal("llm client failed", zap.Error(err))
	}

	catalog, err := loadReplies()
	if err != nil {
		zapLog.Fatal("replies load failed", zap.Error(err))
	}

	if cfg.WebSearch.APIKey == "" {
		zapLog.Warn("Serper API key not configured, web search disabled")
	}

	advisor := pipeline.Build(cfg, pipeline.Components{
		Generator:     llm.NewTracedGenerator(generator, obs.Tracer(), cfg.LLM.Backend),
		Retrievers:    retrievers,
		Searcher:      websearch.NewSerperClient(cfg.WebSearch),
		Sessions:      sessions,
		Replies:       catalog,
		Audit:         turns,
		Observability: obs,
		Logger:        log,
	})

	srv, err := api.NewServer(api.Options{
		ServiceName: serviceName,
		Pipeline:    advisor,
		Sessions:    sessions,
		Audit:       turns,
		Checks:      checks,
		Logger:      log,
	})
	if err != nil {
		zapLog.Fatal("api setup failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during HTTP shutdown", zap.Error(err))
	}

	zapLog.Info("Climate risk advisor stopped gracefully")
}

// historyWindow maps the configured window onto the session's: a
// negative value means every turn.
func historyWindow(configured int) int {
	if configured < 0 {
		return 0
	}
	return configured
}

// loadReplies reads REPLIES_FILE when set, else the built-in catalog.
func loadReplies() (*replies.Catalog, error) {
	if path := os.Getenv("REPLIES_FILE"); path != "" {
		return replies.LoadFile(path)
	}
	return replies.Default()
}
