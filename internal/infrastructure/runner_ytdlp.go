package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/yourusername/ytfetch/internal/domain"
	"github.com/yourusername/ytfetch/pkg/logger"
	"go.uber.org/zap"
)

// Error text fragments after which retrying with a reduced configuration
// cannot help.
var fatalPatterns = []string{
	"permission denied",
	"no such file or directory",
	"no space left on device",
	"unsupported url",
}

const defaultWaitDelay = 5 * time.Second

// YTDLPRunner runs yt-dlp as a child process and streams its output
type YTDLPRunner struct {
	transcript *logger.Transcript
	logger     *zap.Logger
	waitDelay  time.Duration
}

// NewYTDLPRunner creates a new runner. transcript may be nil.
func NewYTDLPRunner(transcript *logger.Transcript, log *zap.Logger) *YTDLPRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &YTDLPRunner{
		transcript: transcript,
		logger:     log,
		waitDelay:  defaultWaitDelay,
	}
}

// Run executes spec and blocks until the child exits. Cancelling ctx kills
// the child's whole process group and yields OutcomeCancelled.
func (r *YTDLPRunner) Run(ctx context.Context, spec domain.RunSpec, sink domain.EventSink) domain.AttemptResult {
	if sink == nil {
		sink = domain.DiscardSink
	}

	cmdLine := shellescape.QuoteCommand(spec.CommandLine())
	section, err := r.transcript.Begin(spec.DownloadID, string(spec.Stage), cmdLine)
	if err != nil {
		r.logger.Warn("Transcript unavailable", zap.Error(err))
		section = &logger.TranscriptSection{}
	}

	r.logger.Debug("Starting yt-dlp",
		zap.String("download_id", spec.DownloadID),
		zap.String("stage", string(spec.Stage)),
		zap.String("command", cmdLine))

	capture := newOutputCapture(spec.Stage, sink, section)

	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = r.waitDelay

	stdout := newLineWriter(func(line string) { capture.handle(line, false) })
	stderr := newLineWriter(func(line string) { capture.handle(line, true) })
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		result := startFailure(ctx, err)
		section.End(false, result.ErrorText)
		r.logResult(spec, result, time.Since(start))
		return result
	}

	waitErr := cmd.Wait()
	stdout.Flush()
	stderr.Flush()

	result := classify(ctx, waitErr, capture)
	section.End(result.Outcome == domain.OutcomeSuccess, footerMessage(result))
	r.logResult(spec, result, time.Since(start))
	return result
}

func (r *YTDLPRunner) logResult(spec domain.RunSpec, result domain.AttemptResult, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("download_id", spec.DownloadID),
		zap.String("stage", string(spec.Stage)),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("elapsed", elapsed),
	}
	if result.ErrorText != "" {
		fields = append(fields, zap.String("error", result.ErrorText))
	}

	if result.Outcome == domain.OutcomeSuccess {
		r.logger.Info("yt-dlp finished", fields...)
	} else {
		r.logger.Warn("yt-dlp finished", fields...)
	}
}

func startFailure(ctx context.Context, err error) domain.AttemptResult {
	if ctx.Err() != nil {
		return domain.AttemptResult{Outcome: domain.OutcomeCancelled, ExitCode: -1, ErrorText: ctx.Err().Error()}
	}
	return domain.AttemptResult{
		Outcome:   domain.OutcomeFailedFatal,
		ExitCode:  -1,
		ErrorText: fmt.Sprintf("failed to start yt-dlp: %v", err),
	}
}

func classify(ctx context.Context, waitErr error, capture *outputCapture) domain.AttemptResult {
	if waitErr == nil {
		return domain.AttemptResult{Outcome: domain.OutcomeSuccess}
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	text := capture.errorText()

	if ctx.Err() != nil {
		if text == "" {
			text = ctx.Err().Error()
		}
		return domain.AttemptResult{Outcome: domain.OutcomeCancelled, ExitCode: exitCode, ErrorText: text}
	}

	if text == "" {
		text = waitErr.Error()
	}

	outcome := domain.OutcomeFailedRetryable
	if IsFatalErrorText(text) {
		outcome = domain.OutcomeFailedFatal
	}
	return domain.AttemptResult{Outcome: outcome, ExitCode: exitCode, ErrorText: text}
}

// IsFatalErrorText reports whether error output names a failure that no
// fallback stage can recover from
func IsFatalErrorText(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range fatalPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func footerMessage(result domain.AttemptResult) string {
	if result.Outcome == domain.OutcomeSuccess {
		return "exit status 0"
	}
	msg := fmt.Sprintf("%s (exit %d)", result.Outcome, result.ExitCode)
	if result.ErrorText != "" {
		msg += ": " + result.ErrorText
	}
	return msg
}

// outputCapture routes each output line to the sink and the transcript and
// remembers the last error line.
type outputCapture struct {
	mu         sync.Mutex
	stage      domain.Stage
	sink       domain.EventSink
	section    *logger.TranscriptSection
	lastError  string
	lastStderr string
}

func newOutputCapture(stage domain.Stage, sink domain.EventSink, section *logger.TranscriptSection) *outputCapture {
	return &outputCapture{stage: stage, sink: sink, section: section}
}

func (c *outputCapture) handle(line string, fromStderr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.section.WriteLine(line)

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if ev, ok := ParseProgressLine(trimmed); ok {
		c.sink.Publish(domain.Event{Kind: domain.EventProgress, Stage: c.stage, Progress: &ev})
		return
	}

	isError := strings.HasPrefix(trimmed, "ERROR:")
	if isError {
		c.lastError = trimmed
	}
	if fromStderr {
		c.lastStderr = trimmed
	}

	c.sink.Publish(domain.Event{Kind: domain.EventLog, Stage: c.stage, Line: line})
}

func (c *outputCapture) errorText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastError != "" {
		return c.lastError
	}
	return c.lastStderr
}

// lineWriter is an io.Writer that splits its input into lines on \n or \r
// and hands each one to fn.
type lineWriter struct {
	mu  sync.Mutex
	buf []byte
	fn  func(string)
}

func newLineWriter(fn func(string)) *lineWriter {
	return &lineWriter{fn: fn}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		advance, token, _ := ScanOutputLines(w.buf, false)
		if advance == 0 {
			break
		}
		w.fn(string(token))
		w.buf = w.buf[advance:]
	}
	return len(p), nil
}

// Flush emits whatever is left after the last line break
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.buf) > 0 {
		advance, token, _ := ScanOutputLines(w.buf, true)
		if advance == 0 {
			break
		}
		w.fn(string(token))
		w.buf = w.buf[advance:]
	}
	w.buf = nil
}
