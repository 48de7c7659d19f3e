package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the download orchestration
var (
	ErrInvalidURL         = errors.New("invalid url")
	ErrInvalidRequest     = errors.New("invalid download request")
	ErrToolMissing        = errors.New("required tool not available")
	ErrDownloadInProgress = errors.New("a download is already in progress")
	ErrAllAttemptsFailed  = errors.New("all download attempts failed")
	ErrFatal              = errors.New("download failed fatally")
	ErrCancelled          = errors.New("download cancelled")
	ErrNotFound           = errors.New("download not found")
)

// AttemptError describes the final attempt of a failed download
type AttemptError struct {
	Stage    Stage
	Outcome  AttemptOutcome
	ExitCode int
	Detail   string
}

func (e *AttemptError) Error() string {
	msg := fmt.Sprintf("%s at stage %s", e.sentinel().Error(), e.Stage)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps the outcome onto its sentinel so callers can use errors.Is
func (e *AttemptError) Unwrap() error {
	return e.sentinel()
}

func (e *AttemptError) sentinel() error {
	switch e.Outcome {
	case OutcomeCancelled:
		return ErrCancelled
	case OutcomeFailedFatal:
		return ErrFatal
	default:
		return ErrAllAttemptsFailed
	}
}

// NewAttemptError builds the error reported for a non-successful result
func NewAttemptError(stage Stage, result AttemptResult) error {
	if result.Outcome == OutcomeSuccess {
		return nil
	}
	return &AttemptError{
		Stage:    stage,
		Outcome:  result.Outcome,
		ExitCode: result.ExitCode,
		Detail:   result.ErrorText,
	}
}

// IsCancelled checks if an error reports a cancelled download
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsUserError checks if an error was caused by the request itself rather
// than by a download attempt
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrInvalidRequest)
}
