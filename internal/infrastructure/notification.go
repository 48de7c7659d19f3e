package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/ytfetch/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications about finished downloads
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	execFn func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		execFn: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var name string
	var args []string
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
		if n.config.Sound {
			script += ` sound name "Glass"`
		}
		name, args = "osascript", []string{"-e", script}
	case "notify-send":
		name, args = "notify-send", []string{"--app-name=ytfetch", title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.execFn(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyDownloadCompleted sends notification when a download completes
func (n *NotificationService) NotifyDownloadCompleted(download *domain.Download) {
	message := fmt.Sprintf("Saved %s to %s", truncateString(download.URL, 40), download.OutputDir)
	if download.Stage != "" && download.Stage != domain.StagePrimary {
		message += fmt.Sprintf(" (via %s)", download.Stage)
	}
	n.Send("Download Completed", message)
}

// NotifyDownloadFailed sends notification when a download fails
func (n *NotificationService) NotifyDownloadFailed(download *domain.Download, err error) {
	message := fmt.Sprintf("Failed: %s", truncateString(download.URL, 40))
	if err != nil {
		message += "\n" + truncateString(err.Error(), 120)
	}
	n.Send("Download Failed", message)
}

// NotifyBatchFinished summarizes a batch run
func (n *NotificationService) NotifyBatchFinished(succeeded, failed int) {
	n.Send("Batch Finished", fmt.Sprintf("%d succeeded, %d failed", succeeded, failed))
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
