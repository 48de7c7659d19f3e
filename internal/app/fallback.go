package app

import (
	"context"

	"github.com/yourusername/ytfetch/internal/domain"
	"go.uber.org/zap"
)

// SpecBuilder assembles the invocation for one attempt
type SpecBuilder interface {
	Build(req domain.DownloadRequest, useCookies bool, formatOverride string) domain.RunSpec
}

// PolicyState is what the fallback sequence knows between attempts
type PolicyState struct {
	UseCookies     bool
	FormatOverride string
	Last           domain.AttemptOutcome // empty before the first attempt
}

// StageDescriptor is one step of the fallback sequence. Applies decides
// whether the stage runs given the state after the previous attempt;
// Transform derives the stage's parameters from that state.
type StageDescriptor struct {
	Stage     domain.Stage
	Applies   func(PolicyState) bool
	Transform func(PolicyState) PolicyState
}

// DefaultStages returns primary, no_cookies and fallback_format
func DefaultStages(fallbackFormat string) []StageDescriptor {
	return []StageDescriptor{
		{
			Stage:     domain.StagePrimary,
			Applies:   func(s PolicyState) bool { return s.Last == "" },
			Transform: func(s PolicyState) PolicyState { return s },
		},
		{
			Stage: domain.StageNoCookies,
			Applies: func(s PolicyState) bool {
				return s.Last == domain.OutcomeFailedRetryable && s.UseCookies
			},
			Transform: func(s PolicyState) PolicyState {
				s.UseCookies = false
				return s
			},
		},
		{
			Stage: domain.StageFallbackFormat,
			Applies: func(s PolicyState) bool {
				return s.Last == domain.OutcomeFailedRetryable
			},
			Transform: func(s PolicyState) PolicyState {
				s.FormatOverride = fallbackFormat
				return s
			},
		},
	}
}

// PolicyResult is the overall outcome of a fallback sequence
type PolicyResult struct {
	Stage    domain.Stage
	Result   domain.AttemptResult
	Attempts int
	Err      error
}

// FallbackPolicy drives a session through its stages until one succeeds,
// one fails fatally, the session is cancelled or the stages run out.
type FallbackPolicy struct {
	stages  []StageDescriptor
	builder SpecBuilder
	logger  *zap.Logger
}

// NewFallbackPolicy creates a policy over the given stages
func NewFallbackPolicy(stages []StageDescriptor, builder SpecBuilder, logger *zap.Logger) *FallbackPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackPolicy{stages: stages, builder: builder, logger: logger}
}

// Execute runs the stages for sess. The session's request is never
// modified; each stage gets a freshly built RunSpec.
func (p *FallbackPolicy) Execute(ctx context.Context, sess *Session, runner domain.Runner) PolicyResult {
	req := sess.Request()
	state := PolicyState{UseCookies: req.UseCookies && req.CookieBrowser != ""}

	res := PolicyResult{Stage: domain.StagePrimary}

	for _, sd := range p.stages {
		if !sd.Applies(state) {
			continue
		}

		if err := ctx.Err(); err != nil {
			res.Result = domain.AttemptResult{Outcome: domain.OutcomeCancelled, ExitCode: -1, ErrorText: err.Error()}
			break
		}

		next := sd.Transform(state)
		spec := p.builder.Build(req, next.UseCookies, next.FormatOverride)
		spec.DownloadID = sess.ID()
		spec.Stage = sd.Stage

		if res.Attempts > 0 {
			p.logger.Info("Falling back",
				zap.String("download_id", sess.ID()),
				zap.String("from", string(res.Stage)),
				zap.String("to", string(sd.Stage)),
				zap.Bool("cookies", spec.UseCookies),
				zap.String("format", spec.Format))
		}

		sess.beginStage(spec)
		result := runner.Run(ctx, spec, sess)
		sess.recordAttempt(spec, result)

		res.Attempts++
		res.Stage = sd.Stage
		res.Result = result

		next.Last = result.Outcome
		state = next
	}

	if res.Attempts == 0 && res.Result.Outcome == "" {
		// No stage applied; treat as exhausted rather than success.
		res.Result = domain.AttemptResult{Outcome: domain.OutcomeFailedRetryable, ExitCode: -1}
	}

	res.Err = domain.NewAttemptError(res.Stage, res.Result)
	return res
}
