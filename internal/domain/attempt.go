package domain

import "strings"

// Stage identifies one step of the fallback sequence
type Stage string

const (
	StagePrimary        Stage = "primary"
	StageNoCookies      Stage = "no_cookies"
	StageFallbackFormat Stage = "fallback_format"
)

// AttemptOutcome is the classified result of a single yt-dlp invocation
type AttemptOutcome string

const (
	OutcomeSuccess         AttemptOutcome = "success"
	OutcomeFailedRetryable AttemptOutcome = "failed_retryable"
	OutcomeFailedFatal     AttemptOutcome = "failed_fatal"
	OutcomeCancelled       AttemptOutcome = "cancelled"
)

// Terminal reports whether no further stage may follow this outcome
func (o AttemptOutcome) Terminal() bool {
	return o != OutcomeFailedRetryable
}

// RunSpec is the fully assembled invocation for one attempt
type RunSpec struct {
	DownloadID string   `json:"download_id"`
	Stage      Stage    `json:"stage"`
	Binary     string   `json:"binary"`
	Args       []string `json:"args"`
	URL        string   `json:"url"`
	UseCookies bool     `json:"use_cookies"`
	Format     string   `json:"format"`
}

// CommandLine returns binary and args as a single argv slice
func (s RunSpec) CommandLine() []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, s.Binary)
	return append(argv, s.Args...)
}

// HasArg reports whether the spec carries the given flag
func (s RunSpec) HasArg(flag string) bool {
	for _, a := range s.Args {
		if a == flag {
			return true
		}
	}
	return false
}

// ArgValue returns the value following flag, if present
func (s RunSpec) ArgValue(flag string) (string, bool) {
	for i, a := range s.Args {
		if a == flag && i+1 < len(s.Args) {
			return s.Args[i+1], true
		}
	}
	return "", false
}

// AttemptResult is what the runner reports back for one RunSpec
type AttemptResult struct {
	Outcome   AttemptOutcome `json:"outcome"`
	ExitCode  int            `json:"exit_code"`
	ErrorText string         `json:"error_text,omitempty"`
}

// AttemptRecord is an attempt as remembered by a session
type AttemptRecord struct {
	Stage      Stage          `json:"stage"`
	UseCookies bool           `json:"use_cookies"`
	Format     string         `json:"format,omitempty"`
	Outcome    AttemptOutcome `json:"outcome"`
	ExitCode   int            `json:"exit_code"`
	ErrorText  string         `json:"error_text,omitempty"`
}

// ProgressEvent is one parsed progress line
type ProgressEvent struct {
	Percent float64 `json:"percent"`
	Speed   string  `json:"speed,omitempty"`
	ETA     string  `json:"eta,omitempty"`
}

// Summary renders the optional fields for display
func (p ProgressEvent) Summary() string {
	var parts []string
	if p.Speed != "" {
		parts = append(parts, p.Speed)
	}
	if p.ETA != "" {
		parts = append(parts, "ETA "+p.ETA)
	}
	return strings.Join(parts, " • ")
}
