package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yourusername/ytfetch/internal/domain"
	"go.uber.org/zap"
)

// BatchEntry is one line of a batch file
type BatchEntry struct {
	Line int
	URL  string
}

// ParseBatch reads one URL per line. Blank lines and lines starting
// with # are skipped; lines that are not valid URLs are reported in
// skipped and left out.
func ParseBatch(r io.Reader) (entries []BatchEntry, skipped []BatchEntry, err error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := domain.ValidateURL(domain.NormalizeURL(line)); err != nil {
			skipped = append(skipped, BatchEntry{Line: lineNo, URL: line})
			continue
		}
		entries = append(entries, BatchEntry{Line: lineNo, URL: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read batch: %w", err)
	}
	return entries, skipped, nil
}

// ReadBatchFile parses the batch file at path
func ReadBatchFile(path string) ([]BatchEntry, []BatchEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()
	return ParseBatch(f)
}

// BatchItemResult is the outcome of one batch entry
type BatchItemResult struct {
	Entry    BatchEntry
	Download *domain.Download
	Err      error
}

// BatchResult summarizes a batch run
type BatchResult struct {
	Items     []BatchItemResult
	Succeeded int
	Failed    int
	Cancelled bool
}

// RunBatch downloads every entry in order, each as its own session
// sharing the options in template. A failed entry does not stop the
// batch; cancellation does.
func (dm *DownloadManager) RunBatch(ctx context.Context, entries []BatchEntry, template domain.DownloadRequest) BatchResult {
	var result BatchResult

	for i, entry := range entries {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		dm.sink.Publish(domain.Event{
			Kind: domain.EventLog,
			Line: fmt.Sprintf("== [%d/%d] %s ==", i+1, len(entries), entry.URL),
		})

		req := template
		req.RawURL = entry.URL
		download, err := dm.Download(ctx, req)

		result.Items = append(result.Items, BatchItemResult{Entry: entry, Download: download, Err: err})
		if err == nil {
			result.Succeeded++
			continue
		}

		result.Failed++
		dm.logger.Warn("Batch entry failed",
			zap.Int("line", entry.Line),
			zap.String("url", entry.URL),
			zap.Error(err))

		if errors.Is(err, domain.ErrCancelled) {
			result.Cancelled = true
			break
		}
	}

	dm.logger.Info("Batch finished",
		zap.Int("total", len(entries)),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Bool("cancelled", result.Cancelled))

	if dm.notifier != nil {
		dm.notifier.NotifyBatchFinished(result.Succeeded, result.Failed)
	}
	return result
}
