package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/chunker"
	"github.com/dochelper/ragcore/internal/config"
	"github.com/dochelper/ragcore/internal/db"
	dbRedis "github.com/dochelper/ragcore/internal/db/redis"
	"github.com/dochelper/ragcore/internal/domain"
	logpkg "github.com/dochelper/ragcore/internal/logger"
	"github.com/dochelper/ragcore/internal/metrics"
	"github.com/dochelper/ragcore/internal/provider"
	"github.com/dochelper/ragcore/internal/repository/conversation"
	"github.com/dochelper/ragcore/internal/repository/embcache"
	"github.com/dochelper/ragcore/internal/repository/memindex"
	chiTransport "github.com/dochelper/ragcore/internal/transport/chi"
	chatuc "github.com/dochelper/ragcore/internal/usecase/chat"
	embeddinguc "github.com/dochelper/ragcore/internal/usecase/embedding"
	healthuc "github.com/dochelper/ragcore/internal/usecase/health"
	ingestuc "github.com/dochelper/ragcore/internal/usecase/ingest"
	retrieveuc "github.com/dochelper/ragcore/internal/usecase/retrieve"
	"github.com/dochelper/ragcore/internal/version"
	"github.com/dochelper/ragcore/internal/watcher"
)

func main() {
	// .env is optional; real deployments set variables in the environment.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragcore API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("chat_provider", cfg.Chat.Provider),
	)

	ctx := context.Background()

	// Optional key-value store: embedding cache and Redis conversation memory.
	var store db.Store
	if cfg.Store.Driver == "redis" {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Store.Addrs,
			Password: cfg.Store.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Store not ready", zap.Error(err))
		}
		logger.Info("Connected to store", zap.Strings("addrs", cfg.Store.Addrs))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRAGMetrics()

	// Embedder chains — composition root. Documents and queries may carry
	// different instruction prefixes for instruction-tuned models.
	docEmbedder, docProvider, err := buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, store, logger)
	if err != nil {
		logger.Fatal("Failed to create document embedder", zap.Error(err))
	}
	queryEmbedder, _, err := buildEmbedder(cfg, cfg.Embedding.QueryInstruction, store, logger)
	if err != nil {
		logger.Fatal("Failed to create query embedder", zap.Error(err))
	}
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Chat models: the default is validated now, per-key models on demand.
	chatFactory, err := provider.NewChatFactory(cfg.Chat, logger)
	if err != nil {
		logger.Fatal("Failed to create chat model factory", zap.Error(err))
	}

	splitter, err := chunker.New(chunker.Config{
		MaxChunkSize: cfg.Ingest.ChunkSize,
		Overlap:      cfg.Ingest.ChunkOverlap,
	})
	if err != nil {
		logger.Fatal("Invalid chunker config", zap.Error(err))
	}

	index := memindex.New()

	memory, err := buildMemory(cfg, store)
	if err != nil {
		logger.Fatal("Failed to create conversation memory", zap.Error(err))
	}

	ingestSvc := ingestuc.New(splitter, docEmbedder, index, logger)

	retrieveSvc, err := retrieveuc.New(queryEmbedder, index, retrieveuc.Config{
		TopK:     cfg.Retrieval.TopK,
		MinScore: *cfg.Retrieval.MinScore,
	})
	if err != nil {
		logger.Fatal("Invalid retrieval config", zap.Error(err))
	}

	chatSvc := chatuc.New(retrieveSvc, memory, chatFactory.Default(), chatuc.Config{
		SystemInstruction: cfg.Chat.SystemInstruction,
		Temperature:       *cfg.Chat.Temperature,
		MetadataKeys:      cfg.Chat.MetadataKeys,
	}, logger)

	healthSvc := healthuc.New(storePinger(store), embeddingHealthChecker(docProvider))

	server := chiTransport.NewServer(ingestSvc, chatSvc, chatFactory, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	// Optional directory watcher for drop-in ingestion.
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Ingest.WatchDir != "" {
		w, err := watcher.New(cfg.Ingest.WatchDir, nil, ingestSvc, logger)
		if err != nil {
			logger.Fatal("Failed to create file watcher", zap.Error(err))
		}
		defer w.Close()
		go w.Run(watchCtx)
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
// The bare provider is returned alongside the chain for health checks.
func buildEmbedder(
	cfg config.Config,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) (domain.Embedder, domain.Embedder, error) {
	// Base provider (with transport metrics built-in)
	base, err := provider.NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		return nil, nil, err
	}

	// Cached
	var embedder domain.Embedder = base
	if cfg.Embedding.Cache && store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (logging + batching)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), base, nil
	}

	return embedder, base, nil
}

func buildMemory(cfg config.Config, store db.Store) (chatuc.Memory, error) {
	if cfg.Memory.Driver == "redis" {
		return conversation.NewRedisStore(
			store, cfg.Memory.WindowSize, time.Duration(cfg.Memory.TTLSec)*time.Second,
		)
	}
	return conversation.NewMemoryStore(cfg.Memory.WindowSize, cfg.Memory.MaxConversations)
}

// storePinger avoids the typed-nil interface gotcha: a nil db.Store stays a
// nil health.StorePinger.
func storePinger(store db.Store) healthuc.StorePinger {
	if store == nil {
		return nil
	}
	return store
}

// embeddingHealthChecker narrows the bare provider to the health contract;
// decorators never implement domain.HealthChecker.
func embeddingHealthChecker(embedder domain.Embedder) healthuc.ProviderChecker {
	if hc, ok := embedder.(domain.HealthChecker); ok {
		return hc
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
