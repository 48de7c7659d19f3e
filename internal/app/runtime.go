package app

import (
	"fmt"

	"github.com/yourusername/ytfetch/internal/domain"
	"github.com/yourusername/ytfetch/internal/infrastructure"
	"github.com/yourusername/ytfetch/pkg/logger"
	"go.uber.org/zap"
)

// Runtime holds the wired components shared by the CLI and the server
type Runtime struct {
	Config    *domain.Config
	Logger    *zap.Logger
	Repo      *infrastructure.SQLiteDownloadRepository
	Tools     *infrastructure.ToolChecker
	Browsers  *infrastructure.CookieBrowserDetector
	Clipboard *infrastructure.ClipboardReader
	Builder   *infrastructure.OptionBuilder
	Events    *EventBus
	Manager   *DownloadManager
}

// NewRuntime opens the history database and wires the download manager.
// Extra sinks receive every session event alongside the event bus.
func NewRuntime(config *domain.Config, log *zap.Logger, sinks ...domain.EventSink) (*Runtime, error) {
	repo, err := infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	rt := &Runtime{
		Config:    config,
		Logger:    log,
		Repo:      repo,
		Tools:     infrastructure.NewToolChecker(config.Tools),
		Browsers:  infrastructure.NewCookieBrowserDetector(),
		Clipboard: infrastructure.NewClipboardReader(),
		Builder:   infrastructure.NewOptionBuilder(config.Download, config.Tools),
		Events:    NewEventBus(),
	}

	sink := domain.MultiSink{rt.Events}
	for _, s := range sinks {
		sink = append(sink, s)
	}

	transcript := logger.NewTranscript(config.Download.LogsDir)
	runner := infrastructure.NewYTDLPRunner(transcript, log)

	opts := []Option{
		WithEventSink(sink),
		WithFFmpegChecker(rt.Tools),
		WithBrowserDetector(rt.Browsers),
	}
	if config.Notification.Enabled {
		opts = append(opts, WithNotifier(infrastructure.NewNotificationService(&config.Notification, log)))
	}

	rt.Manager = NewDownloadManager(repo, runner, rt.Builder, config, log, opts...)
	return rt, nil
}

// RecoverInterrupted marks records left processing by a previous run as
// failed so they can be retried
func (rt *Runtime) RecoverInterrupted() {
	n, err := rt.Repo.MarkInterrupted()
	if err != nil {
		rt.Logger.Warn("Failed to recover interrupted downloads", zap.Error(err))
		return
	}
	if n > 0 {
		rt.Logger.Info("Marked interrupted downloads as failed", zap.Int64("count", n))
	}
}

// Close releases the history database
func (rt *Runtime) Close() error {
	return rt.Repo.Close()
}
