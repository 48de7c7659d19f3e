package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch/internal/domain"
)

var (
	resultOK        = domain.AttemptResult{Outcome: domain.OutcomeSuccess}
	resultRetryable = domain.AttemptResult{Outcome: domain.OutcomeFailedRetryable, ExitCode: 1, ErrorText: "ERROR: [youtube] abc123: HTTP Error 403: Forbidden"}
	resultFatal     = domain.AttemptResult{Outcome: domain.OutcomeFailedFatal, ExitCode: 1, ErrorText: "ERROR: unable to open for writing: Permission denied"}
)

func newTestSession(t *testing.T, req domain.DownloadRequest, sink domain.EventSink) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return newSession(ctx, cancel, "sess-1", req, sink, 10)
}

func cookieRequest(t *testing.T) domain.DownloadRequest {
	return domain.DownloadRequest{
		RawURL:        "https://youtu.be/abc123",
		Quality:       domain.Quality720,
		UseCookies:    true,
		CookieBrowser: "firefox",
		OutputDir:     t.TempDir(),
	}
}

func TestFallbackPolicy_Sequences(t *testing.T) {
	tests := []struct {
		name        string
		useCookies  bool
		results     []domain.AttemptResult
		wantStages  []domain.Stage
		wantOutcome domain.AttemptOutcome
		wantErr     error
	}{
		{
			name:        "primary succeeds",
			useCookies:  true,
			results:     []domain.AttemptResult{resultOK},
			wantStages:  []domain.Stage{domain.StagePrimary},
			wantOutcome: domain.OutcomeSuccess,
		},
		{
			name:        "fatal stops immediately",
			useCookies:  true,
			results:     []domain.AttemptResult{resultFatal},
			wantStages:  []domain.Stage{domain.StagePrimary},
			wantOutcome: domain.OutcomeFailedFatal,
			wantErr:     domain.ErrFatal,
		},
		{
			name:        "cookies then no cookies then fallback",
			useCookies:  true,
			results:     []domain.AttemptResult{resultRetryable, resultRetryable, resultOK},
			wantStages:  []domain.Stage{domain.StagePrimary, domain.StageNoCookies, domain.StageFallbackFormat},
			wantOutcome: domain.OutcomeSuccess,
		},
		{
			name:        "no cookies skips no_cookies stage",
			useCookies:  false,
			results:     []domain.AttemptResult{resultRetryable, resultOK},
			wantStages:  []domain.Stage{domain.StagePrimary, domain.StageFallbackFormat},
			wantOutcome: domain.OutcomeSuccess,
		},
		{
			name:        "no_cookies succeeds",
			useCookies:  true,
			results:     []domain.AttemptResult{resultRetryable, resultOK},
			wantStages:  []domain.Stage{domain.StagePrimary, domain.StageNoCookies},
			wantOutcome: domain.OutcomeSuccess,
		},
		{
			name:        "all stages exhausted",
			useCookies:  true,
			results:     []domain.AttemptResult{resultRetryable, resultRetryable, resultRetryable},
			wantStages:  []domain.Stage{domain.StagePrimary, domain.StageNoCookies, domain.StageFallbackFormat},
			wantOutcome: domain.OutcomeFailedRetryable,
			wantErr:     domain.ErrAllAttemptsFailed,
		},
		{
			name:        "fatal in second stage stops",
			useCookies:  true,
			results:     []domain.AttemptResult{resultRetryable, resultFatal},
			wantStages:  []domain.Stage{domain.StagePrimary, domain.StageNoCookies},
			wantOutcome: domain.OutcomeFailedFatal,
			wantErr:     domain.ErrFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			req := cookieRequest(t)
			req.UseCookies = tt.useCookies

			runner := newScriptedRunner(tt.results...)
			policy := NewFallbackPolicy(DefaultStages("18"), testBuilder(cfg), nil)
			sess := newTestSession(t, req, nil)

			res := policy.Execute(context.Background(), sess, runner)

			var stages []domain.Stage
			for _, spec := range runner.Specs() {
				stages = append(stages, spec.Stage)
			}
			assert.Equal(t, tt.wantStages, stages)
			assert.Equal(t, tt.wantOutcome, res.Result.Outcome)
			assert.Equal(t, len(tt.wantStages), res.Attempts)
			assert.Equal(t, tt.wantStages[len(tt.wantStages)-1], res.Stage)
			if tt.wantErr == nil {
				assert.NoError(t, res.Err)
			} else {
				assert.True(t, errors.Is(res.Err, tt.wantErr), "got %v", res.Err)
			}
			assert.Len(t, sess.Attempts(), len(tt.wantStages))
		})
	}
}

func TestFallbackPolicy_StageParameters(t *testing.T) {
	cfg := testConfig(t)
	runner := newScriptedRunner(resultRetryable, resultRetryable, resultRetryable)
	policy := NewFallbackPolicy(DefaultStages("18"), testBuilder(cfg), nil)
	sess := newTestSession(t, cookieRequest(t), nil)

	policy.Execute(context.Background(), sess, runner)

	specs := runner.Specs()
	require.Len(t, specs, 3)

	primary, noCookies, fallback := specs[0], specs[1], specs[2]

	assert.True(t, primary.UseCookies)
	assert.True(t, primary.HasArg("--cookies-from-browser"))
	assert.Equal(t, "bv*[height<=720][ext=mp4]+ba[ext=m4a]/bv*[height<=720]+ba/b", primary.Format)

	assert.False(t, noCookies.UseCookies)
	assert.False(t, noCookies.HasArg("--cookies-from-browser"))
	assert.Equal(t, primary.Format, noCookies.Format)

	// Cookies stay off once dropped.
	assert.False(t, fallback.HasArg("--cookies-from-browser"))
	format, ok := fallback.ArgValue("-f")
	require.True(t, ok)
	assert.Equal(t, "18", format)

	for _, spec := range specs {
		assert.Equal(t, "sess-1", spec.DownloadID)
		assert.Equal(t, "https://www.youtube.com/watch?v=abc123", spec.URL)
	}
}

func TestFallbackPolicy_RequestUnchanged(t *testing.T) {
	cfg := testConfig(t)
	req := cookieRequest(t)
	sess := newTestSession(t, req, nil)
	policy := NewFallbackPolicy(DefaultStages("18"), testBuilder(cfg), nil)

	policy.Execute(context.Background(), sess, newScriptedRunner(resultRetryable, resultRetryable, resultOK))

	assert.Equal(t, req, sess.Request())
}

func TestFallbackPolicy_CancelledBeforeStart(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newScriptedRunner(resultOK)
	policy := NewFallbackPolicy(DefaultStages("18"), testBuilder(cfg), nil)
	res := policy.Execute(ctx, newTestSession(t, cookieRequest(t), nil), runner)

	assert.Empty(t, runner.Specs())
	assert.Equal(t, domain.OutcomeCancelled, res.Result.Outcome)
	assert.True(t, domain.IsCancelled(res.Err))
}

func TestFallbackPolicy_CancelDuringAttempt(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Empty outcome blocks until cancelled.
	runner := newScriptedRunner(domain.AttemptResult{}, resultOK, resultOK)
	policy := NewFallbackPolicy(DefaultStages("18"), testBuilder(cfg), nil)

	go func() {
		<-runner.started
		cancel()
	}()

	res := policy.Execute(ctx, newTestSession(t, cookieRequest(t), nil), runner)

	assert.Len(t, runner.Specs(), 1, "no stage may follow a cancelled attempt")
	assert.Equal(t, domain.OutcomeCancelled, res.Result.Outcome)
	assert.True(t, domain.IsCancelled(res.Err))
}

func TestFallbackPolicy_PublishesStageEvents(t *testing.T) {
	cfg := testConfig(t)
	rec := &eventRecorder{}
	sess := newTestSession(t, cookieRequest(t), rec)
	policy := NewFallbackPolicy(DefaultStages("18"), testBuilder(cfg), nil)

	policy.Execute(context.Background(), sess, newScriptedRunner(resultRetryable, resultOK))

	stages := rec.OfKind(domain.EventStage)
	require.Len(t, stages, 2)
	assert.Equal(t, domain.StagePrimary, stages[0].Stage)
	assert.Equal(t, domain.StageNoCookies, stages[1].Stage)
	assert.Equal(t, "retrying without browser cookies", stages[1].Message)

	attempts := rec.OfKind(domain.EventAttempt)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.OutcomeFailedRetryable, attempts[0].Outcome)
	assert.Equal(t, domain.OutcomeSuccess, attempts[1].Outcome)

	for _, e := range rec.events {
		assert.Equal(t, "sess-1", e.DownloadID)
		assert.False(t, e.Time.IsZero())
	}
}

func TestFallbackPolicy_CustomStages(t *testing.T) {
	cfg := testConfig(t)
	stages := []StageDescriptor{DefaultStages("18")[0]}
	runner := newScriptedRunner(resultRetryable, resultOK)
	policy := NewFallbackPolicy(stages, testBuilder(cfg), nil)

	res := policy.Execute(context.Background(), newTestSession(t, cookieRequest(t), nil), runner)

	assert.Len(t, runner.Specs(), 1)
	assert.True(t, errors.Is(res.Err, domain.ErrAllAttemptsFailed))
}
