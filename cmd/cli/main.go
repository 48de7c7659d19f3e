package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/ytfetch/internal/app"
	"github.com/yourusername/ytfetch/internal/domain"
	"github.com/yourusername/ytfetch/pkg/logger"
)

// Set via -ldflags "-X main.version=..."
var version = "dev"

// Exit status for a download stopped by the user, as a shell reports SIGINT
const exitCancelled = 130

var (
	configPath string
	verbose    bool
	rootCmd    = &cobra.Command{
		Use:           "ytfetch",
		Short:         "ytfetch - resilient yt-dlp downloads",
		Long:          `Download videos with yt-dlp, retrying without browser cookies and with a fallback format when an attempt fails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and builds the CLI logger. Console
// logs stay at warn unless --verbose so they don't fight the progress line.
func loadConfig() (*domain.Config, *zap.Logger, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      cliLogLevel(config.Logging.Level, verbose),
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return config, log, nil
}

func cliLogLevel(configured string, verbose bool) string {
	if verbose {
		return "debug"
	}
	switch configured {
	case "", "debug", "info":
		return "warn"
	}
	return configured
}

// openRuntime wires the download stack with extra event sinks
func openRuntime(sinks ...domain.EventSink) (*app.Runtime, error) {
	config, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewRuntime(config, log, sinks...)
}

// newTerminalRenderer draws progress on stdout, in place when it is a terminal
func newTerminalRenderer(quiet bool) *progressRenderer {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return newProgressRenderer(os.Stdout, quiet, !tty)
}

// exitCode maps a command error onto the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrCancelled):
		return exitCancelled
	case domain.IsUserError(err):
		return 2
	default:
		return 1
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
