package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/ytfetch/api"
	"github.com/yourusername/ytfetch/internal/app"
	"github.com/yourusername/ytfetch/pkg/logger"
)

// Set via -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting ytfetch server",
		zap.String("version", version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("output_dir", config.Download.OutputDir))

	rt, err := app.NewRuntime(config, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.RecoverInterrupted()

	if err := rt.Tools.CheckYTDLP(); err != nil {
		log.Warn("yt-dlp is not available; downloads will fail until it is installed", zap.Error(err))
	}

	router := api.SetupRouter(api.RouterDeps{
		DownloadMgr: rt.Manager,
		Events:      rt.Events,
		Clipboard:   rt.Clipboard,
		Tools:       rt.Tools,
		Config:      config,
		Logger:      log,
		Version:     version,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := rt.Manager.Shutdown(shutdownCtx); err != nil {
			log.Error("Active download did not stop", zap.Error(err))
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info("Server exited")
	return err
}
