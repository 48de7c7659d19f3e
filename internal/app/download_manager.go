package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/yourusername/ytfetch/internal/domain"
	"go.uber.org/zap"
)

// Notifier reports finished downloads to the desktop
type Notifier interface {
	NotifyDownloadCompleted(download *domain.Download)
	NotifyDownloadFailed(download *domain.Download, err error)
	NotifyBatchFinished(succeeded, failed int)
}

// FFmpegChecker verifies ffmpeg is installed
type FFmpegChecker interface {
	CheckFFmpeg() error
}

// BrowserDetector picks a browser to read cookies from. An empty result
// means none was found.
type BrowserDetector interface {
	Detect() string
}

// DownloadManager runs download sessions one at a time and keeps their
// history
type DownloadManager struct {
	repo     domain.DownloadRepository
	runner   domain.Runner
	policy   *FallbackPolicy
	notifier Notifier
	tools    FFmpegChecker
	browsers BrowserDetector
	sink     domain.EventSink
	config   *domain.Config
	logger   *zap.Logger

	slot    chan struct{} // holds a token while a session runs
	mu      sync.RWMutex
	current *Session
}

// Option customizes a DownloadManager
type Option func(*DownloadManager)

// WithNotifier sets the desktop notifier
func WithNotifier(n Notifier) Option {
	return func(dm *DownloadManager) { dm.notifier = n }
}

// WithFFmpegChecker enables the ffmpeg preflight check
func WithFFmpegChecker(c FFmpegChecker) Option {
	return func(dm *DownloadManager) { dm.tools = c }
}

// WithBrowserDetector enables cookie browser auto-detection
func WithBrowserDetector(d BrowserDetector) Option {
	return func(dm *DownloadManager) { dm.browsers = d }
}

// WithEventSink sets where session events are forwarded
func WithEventSink(s domain.EventSink) Option {
	return func(dm *DownloadManager) { dm.sink = s }
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	repo domain.DownloadRepository,
	runner domain.Runner,
	builder SpecBuilder,
	config *domain.Config,
	logger *zap.Logger,
	opts ...Option,
) *DownloadManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	dm := &DownloadManager{
		repo:   repo,
		runner: runner,
		policy: NewFallbackPolicy(DefaultStages(config.Download.FallbackFormat), builder, logger),
		sink:   domain.DiscardSink,
		config: config,
		logger: logger,
		slot:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

// Prepare applies defaults to req and checks everything that can be
// checked before yt-dlp is started. The returned request is what a
// session freezes.
func (dm *DownloadManager) Prepare(req domain.DownloadRequest) (domain.DownloadRequest, error) {
	req.RawURL = strings.TrimSpace(req.RawURL)
	req = req.WithDefaults(dm.config)

	if err := domain.ValidateURL(req.NormalizedURL()); err != nil {
		return req, err
	}
	if err := req.Validate(); err != nil {
		return req, err
	}

	if dm.tools != nil && !dm.config.Tools.SkipFFmpeg {
		if err := dm.tools.CheckFFmpeg(); err != nil {
			return req, err
		}
	}

	if req.UseCookies && req.CookieBrowser == "" {
		if dm.browsers != nil {
			req.CookieBrowser = dm.browsers.Detect()
		}
		if req.CookieBrowser == "" {
			dm.logger.Warn("No supported browser found for cookies, continuing without them")
			req.UseCookies = false
		}
	}
	return req, nil
}

// Start prepares req and launches a session in the background. Only one
// session runs at a time; a second Start fails with
// ErrDownloadInProgress. The session lives until ctx is done, it is
// cancelled, or it finishes.
func (dm *DownloadManager) Start(ctx context.Context, req domain.DownloadRequest) (*Session, error) {
	prepared, err := dm.Prepare(req)
	if err != nil {
		return nil, err
	}

	select {
	case dm.slot <- struct{}{}:
	default:
		return nil, domain.ErrDownloadInProgress
	}

	download := domain.NewDownload(prepared)

	if prev, err := dm.repo.FindByURL(download.URL, []domain.DownloadStatus{domain.StatusCompleted}); err == nil && prev != nil {
		dm.logger.Info("URL was downloaded before",
			zap.String("url", download.URL),
			zap.String("previous_id", prev.ID),
			zap.Time("completed_at", prev.UpdatedAt))
	}

	if err := os.MkdirAll(prepared.OutputDir, 0755); err != nil {
		<-dm.slot
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	download.MarkProcessing()
	if err := dm.repo.Create(download); err != nil {
		<-dm.slot
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if timeout := dm.config.Download.Timeout; timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}

	sess := newSession(runCtx, cancel, download.ID, prepared, dm.sink, dm.config.Download.OutputTailLines)

	dm.mu.Lock()
	dm.current = sess
	dm.mu.Unlock()

	dm.logger.Info("Starting download",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.String("quality", string(prepared.Quality)),
		zap.Bool("audio_only", prepared.AudioOnly),
		zap.Bool("cookies", prepared.UseCookies),
		zap.String("output_dir", prepared.OutputDir))

	go dm.run(sess, download)
	return sess, nil
}

func (dm *DownloadManager) run(sess *Session, download *domain.Download) {
	res := dm.policy.Execute(sess.Context(), sess, dm.runner)

	for _, a := range sess.Attempts() {
		download.RecordAttempt(a.Stage)
	}
	download.SetProcessLog(sess.Tail())

	switch res.Result.Outcome {
	case domain.OutcomeSuccess:
		download.MarkCompleted(res.Stage)
		dm.logger.Info("Download completed",
			zap.String("id", download.ID),
			zap.String("url", download.URL),
			zap.String("stage", string(res.Stage)),
			zap.Int("attempts", res.Attempts))
	case domain.OutcomeCancelled:
		download.MarkCancelled(res.Stage)
		dm.logger.Info("Download cancelled",
			zap.String("id", download.ID),
			zap.String("stage", string(res.Stage)))
	default:
		download.MarkFailed(res.Stage, res.Err)
		dm.logger.Error("Download failed",
			zap.String("id", download.ID),
			zap.String("url", download.URL),
			zap.String("stage", string(res.Stage)),
			zap.Int("attempts", res.Attempts),
			zap.Error(res.Err))
	}

	if err := dm.repo.Update(download); err != nil {
		dm.logger.Error("Failed to update download status", zap.Error(err))
	}

	if dm.notifier != nil {
		switch res.Result.Outcome {
		case domain.OutcomeSuccess:
			dm.notifier.NotifyDownloadCompleted(download)
		case domain.OutcomeFailedFatal, domain.OutcomeFailedRetryable:
			dm.notifier.NotifyDownloadFailed(download, res.Err)
		}
	}

	// Free the slot before Done fires.
	dm.mu.Lock()
	if dm.current == sess {
		dm.current = nil
	}
	dm.mu.Unlock()
	<-dm.slot

	sess.finish(download, res.Err)
}

// Download runs req to completion and returns the final record. The
// error is nil on success and wraps ErrCancelled, ErrFatal or
// ErrAllAttemptsFailed otherwise.
func (dm *DownloadManager) Download(ctx context.Context, req domain.DownloadRequest) (*domain.Download, error) {
	sess, err := dm.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	<-sess.Done()
	return sess.Result()
}

// Current returns the running session, if any
func (dm *DownloadManager) Current() *Session {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.current
}

// Cancel cancels the running session
func (dm *DownloadManager) Cancel() error {
	sess := dm.Current()
	if sess == nil {
		return fmt.Errorf("%w: no download is running", domain.ErrNotFound)
	}
	sess.Cancel()
	dm.logger.Info("Download cancellation requested", zap.String("id", sess.ID()))
	return nil
}

// CancelDownload cancels the download with the given ID if it is the
// running one
func (dm *DownloadManager) CancelDownload(id string) error {
	if sess := dm.Current(); sess != nil && sess.ID() == id {
		sess.Cancel()
		dm.logger.Info("Download cancellation requested", zap.String("id", id))
		return nil
	}

	download, err := dm.repo.FindByID(id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: download already in terminal state: %s", domain.ErrInvalidRequest, download.Status)
}

// RetryDownload starts a new session from the request of a failed or
// cancelled download. The old record is kept.
func (dm *DownloadManager) RetryDownload(ctx context.Context, id string) (*Session, error) {
	download, err := dm.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if !download.CanRetry() {
		return nil, fmt.Errorf("%w: download is not in failed or cancelled state: %s", domain.ErrInvalidRequest, download.Status)
	}

	dm.logger.Info("Retrying download", zap.String("id", id), zap.String("url", download.URL))
	return dm.Start(ctx, download.Request())
}

// GetDownload returns a download by ID
func (dm *DownloadManager) GetDownload(id string) (*domain.Download, error) {
	return dm.repo.FindByID(id)
}

// ListDownloads returns history matching filter, newest first
func (dm *DownloadManager) ListDownloads(filter domain.DownloadFilter) ([]*domain.Download, error) {
	if filter.Status != "" && !domain.ValidateStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, filter.Status)
	}
	return dm.repo.FindAll(filter)
}

// DeleteDownload removes a finished download from the history
func (dm *DownloadManager) DeleteDownload(id string) error {
	if sess := dm.Current(); sess != nil && sess.ID() == id {
		return domain.ErrDownloadInProgress
	}
	return dm.repo.Delete(id)
}

// Stats returns history statistics
func (dm *DownloadManager) Stats() (*domain.DownloadStats, error) {
	return dm.repo.GetStats()
}

// Shutdown cancels the running session and waits for it to record its
// result
func (dm *DownloadManager) Shutdown(ctx context.Context) error {
	sess := dm.Current()
	if sess == nil {
		return nil
	}
	sess.Cancel()
	select {
	case <-sess.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("download %s did not stop: %w", sess.ID(), ctx.Err())
	}
}
