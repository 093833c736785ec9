package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aihub/loganomaly/app/bootstrap"
	"github.com/aihub/loganomaly/app/router"
	"github.com/aihub/loganomaly/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "path to a YAML/JSON/TOML config file (overrides CONFIG_FILE)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Init(ctx, *configFile)
	if err != nil {
		log.Printf("failed to bootstrap application: %v", err)
		return 1
	}
	defer app.Shutdown()

	err = router.Init(web.BeeApp.Handlers, router.Dependencies{
		Checker:  app.Service,
		Baseline: app.Service,
		Metrics:  app.Metrics.Handler(),
	})
	if err != nil {
		logger.Error("Failed to register routes", zap.Error(err))
		return 1
	}

	listener, err := net.Listen("tcp", app.Config.Server.BindAddress)
	if err != nil {
		logger.Error("Failed to bind listener", zap.String("address", app.Config.Server.BindAddress), zap.Error(err))
		return 1
	}
	logger.Info("listening on", zap.String("address", listener.Addr().String()))

	server := &http.Server{
		Handler:           web.BeeApp.Handlers,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
			return 1
		}
	}

	timeout := app.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		return 1
	}
	logger.Info("Server stopped")
	return 0
}
