package logger

import (
	"bufio"
	"os"
	"strings"
	"time"
)

// TranscriptReader reads back the daily transcript files
type TranscriptReader struct {
	logsDir string
}

// NewTranscriptReader creates a new transcript reader
func NewTranscriptReader(logsDir string) *TranscriptReader {
	return &TranscriptReader{logsDir: logsDir}
}

// Path returns the transcript file for a date
func (r *TranscriptReader) Path(date time.Time) string {
	return TranscriptPath(r.logsDir, date)
}

// Size returns the size in bytes of a day's transcript, 0 if it is missing
func (r *TranscriptReader) Size(date time.Time) int64 {
	info, err := os.Stat(r.Path(date))
	if err != nil {
		return 0
	}
	return info.Size()
}

// Tail returns the last limit lines of a day's transcript. limit <= 0
// returns everything. A missing file yields no lines and no error.
func (r *TranscriptReader) Tail(date time.Time, limit int) ([]string, error) {
	return r.read(date, limit, nil)
}

// Search returns the last limit lines containing query (case-insensitive)
func (r *TranscriptReader) Search(date time.Time, query string, limit int) ([]string, error) {
	query = strings.ToLower(query)
	return r.read(date, limit, func(line string) bool {
		return strings.Contains(strings.ToLower(line), query)
	})
}

func (r *TranscriptReader) read(date time.Time, limit int, keep func(string) bool) ([]string, error) {
	file, err := os.Open(r.Path(date))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	lines := []string{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if keep != nil && !keep(line) {
			continue
		}
		lines = append(lines, line)
		if limit > 0 && len(lines) > 2*limit {
			lines = append(lines[:0], lines[len(lines)-limit:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}
