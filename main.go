package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/glaucoma-agent/internal/config"
	"github.com/example/glaucoma-agent/internal/handlers"
	"github.com/example/glaucoma-agent/internal/inference"
	"github.com/example/glaucoma-agent/internal/logging"
	"github.com/example/glaucoma-agent/internal/session"
	"github.com/example/glaucoma-agent/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	store := initSessionStore(cfg, logger)
	client := inference.NewHTTPClient(cfg.PredictTimeout, logger)
	uc := usecase.NewAnalysisUseCase(store, session.NewGuard(), client, logger)
	tokens := session.NewTokens(cfg.SessionSecret, cfg.SessionTTL)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(logger.Named("http")))
	r.MaxMultipartMemory = handlers.MaxUploadSize

	if err := handlers.RegisterRoutes(r, uc, session.Middleware(tokens, logger.Named("session")), logger); err != nil {
		logger.Fatal("failed to register routes", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("glaucoma agent listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("default_server_url", cfg.DefaultServerURL),
		zap.Duration("predict_timeout", cfg.PredictTimeout),
	)
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// initSessionStore uses Redis when REDIS_ADDR is set so replicas share
// sessions, and falls back to process memory otherwise.
func initSessionStore(cfg *config.Config, logger *zap.Logger) session.Store {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(cfg.DefaultServerURL, cfg.SessionTTL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err), zap.String("addr", cfg.RedisAddr))
	}
	logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	return session.NewRedisStore(session.NewRedisKV(client), cfg.DefaultServerURL, cfg.SessionTTL, logger)
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
