package app

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/yourusername/ytfetch/internal/domain"
	"github.com/yourusername/ytfetch/internal/infrastructure"
)

// mockDownloadRepo implements domain.DownloadRepository for testing
type mockDownloadRepo struct {
	mu        sync.Mutex
	downloads map[string]*domain.Download
}

func newMockDownloadRepo() *mockDownloadRepo {
	return &mockDownloadRepo{downloads: make(map[string]*domain.Download)}
}

func (m *mockDownloadRepo) Create(download *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *download
	m.downloads[download.ID] = &cp
	return nil
}

func (m *mockDownloadRepo) Update(download *domain.Download) error {
	return m.Create(download)
}

func (m *mockDownloadRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.downloads[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.downloads, id)
	return nil
}

func (m *mockDownloadRepo) FindByID(id string) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.downloads[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockDownloadRepo) FindByStatus(status domain.DownloadStatus) ([]*domain.Download, error) {
	return m.FindAll(domain.DownloadFilter{Status: status})
}

func (m *mockDownloadRepo) FindByURL(url string, statuses []domain.DownloadStatus) (*domain.Download, error) {
	all, _ := m.FindAll(domain.DownloadFilter{})
	for _, d := range all {
		if d.URL != url {
			continue
		}
		for _, s := range statuses {
			if d.Status == s {
				return d, nil
			}
		}
	}
	return nil, nil
}

func (m *mockDownloadRepo) FindAll(filter domain.DownloadFilter) ([]*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Download
	for _, d := range m.downloads {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.VideoID != "" && d.VideoID != filter.VideoID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockDownloadRepo) GetStats() (*domain.DownloadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.DownloadStats{Total: int64(len(m.downloads))}
	for _, d := range m.downloads {
		switch d.Status {
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
		stats.Attempts += int64(d.Attempts)
	}
	return stats, nil
}

func (m *mockDownloadRepo) Close() error { return nil }

// scriptedRunner returns the scripted results in order and records every
// spec it was given. A result with an empty outcome blocks until the
// context is done.
type scriptedRunner struct {
	mu      sync.Mutex
	results []domain.AttemptResult
	specs   []domain.RunSpec
	started chan domain.RunSpec
}

func newScriptedRunner(results ...domain.AttemptResult) *scriptedRunner {
	return &scriptedRunner{results: results, started: make(chan domain.RunSpec, 8)}
}

func (r *scriptedRunner) Run(ctx context.Context, spec domain.RunSpec, sink domain.EventSink) domain.AttemptResult {
	r.mu.Lock()
	i := len(r.specs)
	r.specs = append(r.specs, spec)
	r.mu.Unlock()

	r.started <- spec
	sink.Publish(domain.Event{Kind: domain.EventLog, Line: "[youtube] " + spec.URL})

	if i >= len(r.results) {
		return domain.AttemptResult{Outcome: domain.OutcomeFailedRetryable, ExitCode: 1}
	}

	result := r.results[i]
	if result.Outcome == "" {
		<-ctx.Done()
		return domain.AttemptResult{Outcome: domain.OutcomeCancelled, ExitCode: -1, ErrorText: ctx.Err().Error()}
	}
	if result.Outcome == domain.OutcomeSuccess {
		sink.Publish(domain.Event{Kind: domain.EventProgress, Progress: &domain.ProgressEvent{Percent: 100}})
	}
	return result
}

func (r *scriptedRunner) Specs() []domain.RunSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RunSpec(nil), r.specs...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	batches   [][2]int
}

func (n *fakeNotifier) NotifyDownloadCompleted(d *domain.Download) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, d.ID)
}

func (n *fakeNotifier) NotifyDownloadFailed(d *domain.Download, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, d.ID)
}

func (n *fakeNotifier) NotifyBatchFinished(succeeded, failed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, [2]int{succeeded, failed})
}

type fakeFFmpegChecker struct{ err error }

func (c fakeFFmpegChecker) CheckFFmpeg() error { return c.err }

type fakeBrowserDetector string

func (d fakeBrowserDetector) Detect() string { return string(d) }

// eventRecorder collects published events
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Publish(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) Kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (r *eventRecorder) OfKind(kind domain.EventKind) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	cfg := domain.DefaultConfig()
	cfg.Download.OutputDir = t.TempDir()
	return cfg
}

func testBuilder(cfg *domain.Config) SpecBuilder {
	return infrastructure.NewOptionBuilder(cfg.Download, cfg.Tools)
}
