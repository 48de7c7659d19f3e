package app

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/ytfetch/internal/domain"
)

// Session is one user-initiated download. It owns the cancellation
// handle for every attempt it makes and is the sink the runner publishes
// to; events are stamped with the session ID and forwarded to observers.
type Session struct {
	id        string
	request   domain.DownloadRequest
	url       string
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	sink   domain.EventSink

	mu        sync.RWMutex
	stage     domain.Stage
	attempts  []domain.AttemptRecord
	progress  *domain.ProgressEvent
	tail      []string
	tailLimit int
	record    *domain.Download
	err       error
	done      chan struct{}
}

func newSession(ctx context.Context, cancel context.CancelFunc, id string, req domain.DownloadRequest, sink domain.EventSink, tailLimit int) *Session {
	if sink == nil {
		sink = domain.DiscardSink
	}
	return &Session{
		id:        id,
		request:   req,
		url:       req.NormalizedURL(),
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		sink:      sink,
		stage:     domain.StagePrimary,
		tailLimit: tailLimit,
		done:      make(chan struct{}),
	}
}

// ID returns the download ID shared with the history record
func (s *Session) ID() string { return s.id }

// Request returns the frozen request
func (s *Session) Request() domain.DownloadRequest { return s.request }

// URL returns the normalized URL
func (s *Session) URL() string { return s.url }

// Context is cancelled when the session is cancelled or times out
func (s *Session) Context() context.Context { return s.ctx }

// Cancel stops the running attempt and prevents further stages. It is
// safe to call more than once and after the session finished.
func (s *Session) Cancel() { s.cancel() }

// Done is closed once the session has a final result
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session finishes or ctx ends
func (s *Session) Wait(ctx context.Context) (*domain.Download, error) {
	select {
	case <-s.done:
		return s.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the final record and error. Only meaningful after Done.
func (s *Session) Result() (*domain.Download, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, s.err
}

// Publish implements domain.EventSink
func (s *Session) Publish(e domain.Event) {
	e.DownloadID = s.id
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	s.mu.Lock()
	switch e.Kind {
	case domain.EventProgress:
		if e.Progress != nil {
			p := *e.Progress
			s.progress = &p
		}
	case domain.EventLog:
		s.appendTail(e.Line)
	}
	s.mu.Unlock()

	s.sink.Publish(e)
}

func (s *Session) appendTail(line string) {
	if s.tailLimit <= 0 {
		return
	}
	s.tail = append(s.tail, line)
	if over := len(s.tail) - s.tailLimit; over > 0 {
		s.tail = append(s.tail[:0], s.tail[over:]...)
	}
}

// Tail returns the most recent output lines
func (s *Session) Tail() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.tail))
	copy(out, s.tail)
	return out
}

// Attempts returns the attempts made so far
func (s *Session) Attempts() []domain.AttemptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptRecord, len(s.attempts))
	copy(out, s.attempts)
	return out
}

func (s *Session) beginStage(spec domain.RunSpec) {
	s.mu.Lock()
	s.stage = spec.Stage
	s.progress = nil
	s.mu.Unlock()

	s.Publish(domain.Event{
		Kind:    domain.EventStage,
		Stage:   spec.Stage,
		Message: stageMessage(spec),
	})
}

func (s *Session) recordAttempt(spec domain.RunSpec, result domain.AttemptResult) {
	s.mu.Lock()
	s.attempts = append(s.attempts, domain.AttemptRecord{
		Stage:      spec.Stage,
		UseCookies: spec.UseCookies,
		Format:     spec.Format,
		Outcome:    result.Outcome,
		ExitCode:   result.ExitCode,
		ErrorText:  result.ErrorText,
	})
	s.mu.Unlock()

	s.Publish(domain.Event{
		Kind:    domain.EventAttempt,
		Stage:   spec.Stage,
		Outcome: result.Outcome,
		Message: result.ErrorText,
	})
}

func (s *Session) finish(record *domain.Download, err error) {
	s.mu.Lock()
	s.record = record
	s.err = err
	stage := s.stage
	s.mu.Unlock()

	e := domain.Event{Kind: domain.EventFinished, Stage: stage}
	if record != nil {
		e.Status = record.Status
	}
	if err != nil {
		e.Message = err.Error()
	}
	s.Publish(e)

	s.cancel()
	close(s.done)
}

func stageMessage(spec domain.RunSpec) string {
	switch spec.Stage {
	case domain.StageNoCookies:
		return "retrying without browser cookies"
	case domain.StageFallbackFormat:
		return "retrying with fallback format " + spec.Format
	}
	if spec.UseCookies {
		return "starting download with browser cookies"
	}
	return "starting download"
}

// SessionSnapshot is a point-in-time view of a session for display
type SessionSnapshot struct {
	ID        string                 `json:"id"`
	URL       string                 `json:"url"`
	Request   domain.DownloadRequest `json:"request"`
	Stage     domain.Stage           `json:"stage"`
	Progress  *domain.ProgressEvent  `json:"progress,omitempty"`
	Attempts  []domain.AttemptRecord `json:"attempts"`
	Tail      []string               `json:"tail"`
	StartedAt time.Time              `json:"started_at"`
	Finished  bool                   `json:"finished"`
	Status    domain.DownloadStatus  `json:"status,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Snapshot copies the session's current state
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := SessionSnapshot{
		ID:        s.id,
		URL:       s.url,
		Request:   s.request,
		Stage:     s.stage,
		Attempts:  append([]domain.AttemptRecord(nil), s.attempts...),
		Tail:      append([]string(nil), s.tail...),
		StartedAt: s.startedAt,
	}
	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	select {
	case <-s.done:
		snap.Finished = true
	default:
	}
	if s.record != nil {
		snap.Status = s.record.Status
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
