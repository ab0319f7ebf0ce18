package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/ravematch/internal/app"
	"github.com/oggyb/ravematch/internal/cache"
	"github.com/oggyb/ravematch/internal/config"
	"github.com/oggyb/ravematch/internal/db"
	"github.com/oggyb/ravematch/internal/logger"
	"github.com/oggyb/ravematch/internal/seed"
	"github.com/oggyb/ravematch/internal/server"
	"github.com/oggyb/ravematch/internal/service/swipe"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}
	defer redisCache.Close()

	// Inject logger into app context
	appCtx, err := app.New(cfg, database, redisCache, log)
	if err != nil {
		log.Error("failed to init app", "err", err)
		return
	}

	if cfg.App.ENV == "development" {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		if _, err := seed.SeedTestData(context.Background(), appCtx, r); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	grpcServer := server.NewGRPCServer(log, appCtx.Verifier, swipe.NewRegistrar(appCtx))
	httpServer := server.NewHTTPServer(cfg,
		server.NewHTTPHandler(cfg, swipe.NewSwipeService(appCtx), appCtx.Verifier, log))

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		errCh <- server.StartGRPCServer(cfg, grpcServer)
	}()
	go func() {
		log.Info("starting HTTP gateway", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error("server stopped", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()
}
