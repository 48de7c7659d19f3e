package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch/internal/domain"
	"github.com/yourusername/ytfetch/pkg/logger"
)

type eventCollector struct {
	mu     sync.Mutex
	events []domain.Event
	onLine func(string)
}

func (c *eventCollector) Publish(e domain.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	onLine := c.onLine
	c.mu.Unlock()
	if onLine != nil && e.Kind == domain.EventLog {
		onLine(e.Line)
	}
}

func (c *eventCollector) progress() []domain.ProgressEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.ProgressEvent
	for _, e := range c.events {
		if e.Kind == domain.EventProgress {
			out = append(out, *e.Progress)
		}
	}
	return out
}

func (c *eventCollector) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		if e.Kind == domain.EventLog {
			out = append(out, e.Line)
		}
	}
	return out
}

// fakeYTDLP writes an executable shell script standing in for yt-dlp
func fakeYTDLP(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a unix shell")
	}

	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func runSpec(binary string, args ...string) domain.RunSpec {
	return domain.RunSpec{
		DownloadID: "dl-test",
		Stage:      domain.StagePrimary,
		Binary:     binary,
		Args:       args,
	}
}

func TestYTDLPRunner_Success(t *testing.T) {
	bin := fakeYTDLP(t, `
echo "[youtube] abc123: Downloading webpage"
echo "[download] Destination: Title [abc123].mp4"
echo "[download]  45.2% of   10.00MiB at    1.23MiB/s ETA 00:05"
echo "[download] 100% of   10.00MiB in 00:00:03 at 3.00MiB/s"
exit 0`)

	logsDir := t.TempDir()
	runner := NewYTDLPRunner(logger.NewTranscript(logsDir), nil)
	sink := &eventCollector{}

	result := runner.Run(context.Background(), runSpec(bin, "--", "https://www.youtube.com/watch?v=abc123"), sink)

	assert.Equal(t, domain.OutcomeSuccess, result.Outcome)
	assert.Zero(t, result.ExitCode)

	progress := sink.progress()
	require.Len(t, progress, 2)
	assert.InDelta(t, 45.2, progress[0].Percent, 0.001)
	assert.Equal(t, "1.23MiB/s", progress[0].Speed)
	assert.Equal(t, "00:05", progress[0].ETA)
	assert.InDelta(t, 100, progress[1].Percent, 0.001)

	assert.Equal(t, []string{
		"[youtube] abc123: Downloading webpage",
		"[download] Destination: Title [abc123].mp4",
	}, sink.lines())

	lines, err := logger.NewTranscriptReader(logsDir).Tail(time.Now(), 0)
	require.NoError(t, err)
	assert.Contains(t, lines, "[download] Destination: Title [abc123].mp4")
	assert.Contains(t, lines, "=== END ===")
}

func TestYTDLPRunner_EventsCarryStage(t *testing.T) {
	bin := fakeYTDLP(t, `echo "hello"`)
	sink := &eventCollector{}

	spec := runSpec(bin)
	spec.Stage = domain.StageFallbackFormat
	NewYTDLPRunner(nil, nil).Run(context.Background(), spec, sink)

	require.NotEmpty(t, sink.events)
	assert.Equal(t, domain.StageFallbackFormat, sink.events[0].Stage)
}

func TestYTDLPRunner_CarriageReturnProgress(t *testing.T) {
	bin := fakeYTDLP(t, `printf '[download]  10.0%% of 1.00MiB\r[download]  20.0%% of 1.00MiB\r[download] 100%% of 1.00MiB\n'`)
	sink := &eventCollector{}

	result := NewYTDLPRunner(nil, nil).Run(context.Background(), runSpec(bin), sink)

	assert.Equal(t, domain.OutcomeSuccess, result.Outcome)
	assert.Len(t, sink.progress(), 3)
	assert.Empty(t, sink.lines())
}

func TestYTDLPRunner_ArgumentsPassedVerbatim(t *testing.T) {
	bin := fakeYTDLP(t, `for a in "$@"; do echo "arg:$a"; done`)
	sink := &eventCollector{}

	result := NewYTDLPRunner(nil, nil).Run(context.Background(),
		runSpec(bin, "-P", "/home/me/My Videos", "-o", "%(title).200B [%(id)s].%(ext)s"), sink)

	assert.Equal(t, domain.OutcomeSuccess, result.Outcome)
	assert.Equal(t, []string{
		"arg:-P",
		"arg:/home/me/My Videos",
		"arg:-o",
		"arg:%(title).200B [%(id)s].%(ext)s",
	}, sink.lines())
}

func TestYTDLPRunner_RetryableFailure(t *testing.T) {
	bin := fakeYTDLP(t, `
echo "[youtube] abc123: Downloading webpage"
echo "WARNING: something odd" >&2
echo "ERROR: [youtube] abc123: HTTP Error 403: Forbidden" >&2
exit 1`)
	sink := &eventCollector{}

	result := NewYTDLPRunner(nil, nil).Run(context.Background(), runSpec(bin), sink)

	assert.Equal(t, domain.OutcomeFailedRetryable, result.Outcome)
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "ERROR: [youtube] abc123: HTTP Error 403: Forbidden", result.ErrorText)
	assert.Contains(t, sink.lines(), "ERROR: [youtube] abc123: HTTP Error 403: Forbidden")
}

func TestYTDLPRunner_StderrWithoutErrorPrefix(t *testing.T) {
	bin := fakeYTDLP(t, `
echo "Traceback (most recent call last):" >&2
echo "KeyError: 'formats'" >&2
exit 2`)

	result := NewYTDLPRunner(nil, nil).Run(context.Background(), runSpec(bin), nil)

	assert.Equal(t, domain.OutcomeFailedRetryable, result.Outcome)
	assert.Equal(t, 2, result.ExitCode)
	assert.Equal(t, "KeyError: 'formats'", result.ErrorText)
}

func TestYTDLPRunner_FatalFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unsupported url", `echo "ERROR: Unsupported URL: https://example.com/" >&2; exit 1`},
		{"permission denied", `echo "ERROR: unable to open for writing: [Errno 13] Permission denied: '/videos/x.mp4'" >&2; exit 1`},
		{"disk full", `echo "ERROR: [Errno 28] No space left on device" >&2; exit 1`},
		{"last error line is fatal", `echo "ERROR: giving up on format 22" >&2; echo "ERROR: Permission denied" >&2; exit 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := fakeYTDLP(t, tt.body)

			result := NewYTDLPRunner(nil, nil).Run(context.Background(), runSpec(bin), nil)

			assert.Equal(t, domain.OutcomeFailedFatal, result.Outcome)
			assert.NotEmpty(t, result.ErrorText)
		})
	}
}

func TestYTDLPRunner_WarningDoesNotMakeFailureFatal(t *testing.T) {
	bin := fakeYTDLP(t, `
echo "WARNING: Writing cache to '/root/.cache/yt-dlp' failed: [Errno 13] Permission denied" >&2
echo "ERROR: [youtube] abc123: HTTP Error 403: Forbidden" >&2
exit 1`)

	result := NewYTDLPRunner(nil, nil).Run(context.Background(), runSpec(bin), nil)

	assert.Equal(t, domain.OutcomeFailedRetryable, result.Outcome)
	assert.Contains(t, result.ErrorText, "HTTP Error 403")
}

func TestYTDLPRunner_EarlierFatalErrorDoesNotOverrideLast(t *testing.T) {
	bin := fakeYTDLP(t, `
echo "ERROR: unable to write thumbnail: No such file or directory" >&2
echo "ERROR: [youtube] abc123: Requested format is not available" >&2
exit 1`)

	result := NewYTDLPRunner(nil, nil).Run(context.Background(), runSpec(bin), nil)

	assert.Equal(t, domain.OutcomeFailedRetryable, result.Outcome)
	assert.Contains(t, result.ErrorText, "Requested format is not available")
}

func TestYTDLPRunner_MissingBinary(t *testing.T) {
	spec := runSpec(filepath.Join(t.TempDir(), "does-not-exist"))

	result := NewYTDLPRunner(nil, nil).Run(context.Background(), spec, nil)

	assert.Equal(t, domain.OutcomeFailedFatal, result.Outcome)
	assert.Equal(t, -1, result.ExitCode)
	assert.Contains(t, result.ErrorText, "failed to start yt-dlp")
}

func TestYTDLPRunner_Cancel(t *testing.T) {
	// The child spawns a grandchild that keeps stdout open; only killing the
	// whole process group lets Run return quickly.
	bin := fakeYTDLP(t, `
echo "started"
sleep 30
echo "should never print"`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &eventCollector{onLine: func(line string) {
		if line == "started" {
			cancel()
		}
	}}

	runner := NewYTDLPRunner(nil, nil)
	runner.waitDelay = 20 * time.Second

	start := time.Now()
	result := runner.Run(ctx, runSpec(bin), sink)

	assert.Equal(t, domain.OutcomeCancelled, result.Outcome)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.NotContains(t, sink.lines(), "should never print")
}

func TestYTDLPRunner_AlreadyCancelled(t *testing.T) {
	bin := fakeYTDLP(t, `echo "hello"`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewYTDLPRunner(nil, nil).Run(ctx, runSpec(bin), nil)

	assert.Equal(t, domain.OutcomeCancelled, result.Outcome)
}

func TestIsFatalErrorText(t *testing.T) {
	assert.True(t, IsFatalErrorText("ERROR: Unsupported URL: https://example.com"))
	assert.True(t, IsFatalErrorText("PermissionError: [Errno 13] Permission denied"))
	assert.False(t, IsFatalErrorText("ERROR: HTTP Error 403: Forbidden"))
	assert.False(t, IsFatalErrorText("ERROR: Sign in to confirm you're not a bot"))
	assert.False(t, IsFatalErrorText(`exec: "yt-dlp": executable file not found in $PATH`))
}

func TestLineWriter(t *testing.T) {
	var got []string
	w := newLineWriter(func(s string) { got = append(got, s) })

	w.Write([]byte("first li"))
	w.Write([]byte("ne\nsecond\r"))
	w.Write([]byte("\nthird"))
	w.Flush()

	assert.Equal(t, []string{"first line", "second", "third"}, got)
}
