package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	transcriptPrefix   = "download-"
	transcriptDateFmt  = "20060102"
	transcriptStampFmt = "2006-01-02 15:04:05"
)

// TranscriptPath returns the raw output log for a given day
func TranscriptPath(logsDir string, date time.Time) string {
	return filepath.Join(logsDir, transcriptPrefix+date.Format(transcriptDateFmt)+".log")
}

// Transcript appends raw external tool output to a daily log file so a
// failed download can be diagnosed by hand.
type Transcript struct {
	logsDir string
	now     func() time.Time
}

// NewTranscript creates a transcript writer rooted at logsDir. An empty
// logsDir disables the transcript.
func NewTranscript(logsDir string) *Transcript {
	return &Transcript{logsDir: logsDir, now: time.Now}
}

// Dir returns the directory the transcript files are written to
func (t *Transcript) Dir() string {
	return t.logsDir
}

// Begin opens today's file and writes the section header for one attempt
func (t *Transcript) Begin(downloadID, stage, cmdLine string) (*TranscriptSection, error) {
	if t == nil || t.logsDir == "" {
		return &TranscriptSection{}, nil
	}

	if err := os.MkdirAll(t.logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	now := t.now()
	file, err := os.OpenFile(TranscriptPath(t.logsDir, now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}

	s := &TranscriptSection{file: file, now: t.now}
	fmt.Fprintf(file, "\n=== [%s] Download: %s (%s) ===\n", now.Format(transcriptStampFmt), downloadID, stage)
	fmt.Fprintf(file, "$ %s\n", cmdLine)
	return s, nil
}

// TranscriptSection is one attempt's slice of the transcript. A zero
// section discards everything.
type TranscriptSection struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// WriteLine appends one line of tool output
func (s *TranscriptSection) WriteLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	fmt.Fprintln(s.file, line)
}

// End writes the footer and closes the file
func (s *TranscriptSection) End(success bool, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}

	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(s.file, "[%s] %s: %s\n", s.now().Format(transcriptStampFmt), status, message)
	fmt.Fprint(s.file, "=== END ===\n")

	err := s.file.Close()
	s.file = nil
	return err
}
