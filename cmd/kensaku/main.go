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
	"go.uber.org/zap"

	"github.com/kensaku-io/kensaku/internal/config"
	"github.com/kensaku-io/kensaku/internal/db"
	"github.com/kensaku-io/kensaku/internal/dictionary"
	logpkg "github.com/kensaku-io/kensaku/internal/logger"
	"github.com/kensaku-io/kensaku/internal/metrics"
	backendrepo "github.com/kensaku-io/kensaku/internal/repository/backend"
	"github.com/kensaku-io/kensaku/internal/repository/embcache"
	greprepo "github.com/kensaku-io/kensaku/internal/repository/grep"
	chiTransport "github.com/kensaku-io/kensaku/internal/transport/chi"
	openaiEmb "github.com/kensaku-io/kensaku/internal/transport/openai"
	expanduc "github.com/kensaku-io/kensaku/internal/usecase/expand"
	healthuc "github.com/kensaku-io/kensaku/internal/usecase/health"
	searchuc "github.com/kensaku-io/kensaku/internal/usecase/search"
	"github.com/kensaku-io/kensaku/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting kensaku API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("build_date", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("backend_addrs", cfg.Backend.Addrs),
		zap.String("notes_root", cfg.TextSearch.Root),
	)

	store, err := db.NewStore(db.Config{
		Addrs:    cfg.Backend.Addrs,
		Password: cfg.Backend.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Backend.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Backend not ready", zap.Error(err))
	}
	logger.Info("Connected to backend")

	if err := store.CheckIndex(ctx, cfg.Backend.Index); err != nil {
		logger.Warn("Search index not available, backend searches will fail until it is created",
			zap.String("index", cfg.Backend.Index),
			zap.Error(err),
		)
	}

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Embedder chain: OpenAI provider wrapped in a Redis-backed cache.
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	embedder := embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)

	// Compound-term dictionary. A missing or broken file degrades to an
	// empty dictionary: expansion still produces direct and script variants.
	dict, err := dictionary.Load(cfg.Dictionary.Path)
	if err != nil {
		logger.Warn("Dictionary unavailable, using empty dictionary",
			zap.String("path", cfg.Dictionary.Path),
			zap.Error(err),
		)
		dict = dictionary.Empty()
	} else {
		logger.Info("Dictionary loaded",
			zap.String("path", cfg.Dictionary.Path),
			zap.Int("entries", dict.Len()),
		)
	}

	expander := expanduc.New(dict)
	backend := backendrepo.New(store, embedder, cfg.Backend.Index)
	textSearch := greprepo.New(cfg.TextSearch.Root, cfg.TextSearch.MaxMatches, logger)

	searchSvc := searchuc.New(backend, textSearch, expander, logger).
		WithTimeouts(
			time.Duration(cfg.Backend.TimeoutSec)*time.Second,
			time.Duration(cfg.TextSearch.TimeoutSec)*time.Second,
		)
	healthSvc := healthuc.New(store, base)

	server := chiTransport.NewServer(searchSvc, healthSvc)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
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
						"error":   "internal_error",
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

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
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
