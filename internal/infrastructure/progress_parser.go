package infrastructure

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/ytfetch/internal/domain"
)

var (
	progressPercentRegex = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	progressSpeedRegex   = regexp.MustCompile(`\bat\s+(\S+/s)`)
	progressETARegex     = regexp.MustCompile(`\bETA\s+(\S+)`)
)

// ParseProgressLine extracts a progress event from one line of yt-dlp
// output, e.g.
//
//	[download]  45.2% of ~  10.00MiB at    1.23MiB/s ETA 00:05 (frag 3/10)
//
// Rate and ETA are optional; "Unknown" values are dropped.
func ParseProgressLine(line string) (domain.ProgressEvent, bool) {
	line = strings.TrimSpace(line)

	m := progressPercentRegex.FindStringSubmatch(line)
	if m == nil {
		return domain.ProgressEvent{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return domain.ProgressEvent{}, false
	}

	ev := domain.ProgressEvent{Percent: min(percent, 100)}
	if s := progressSpeedRegex.FindStringSubmatch(line); s != nil && !isUnknown(s[1]) {
		ev.Speed = s[1]
	}
	if e := progressETARegex.FindStringSubmatch(line); e != nil && !isUnknown(e[1]) {
		ev.ETA = e[1]
	}
	return ev, true
}

func isUnknown(v string) bool {
	return strings.HasPrefix(strings.ToLower(v), "unknown")
}

// ScanOutputLines is a bufio.SplitFunc that breaks on \n, \r\n and bare \r.
// yt-dlp redraws its progress line with \r when --newline is not honoured.
func ScanOutputLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					advance++
				}
			} else if !atEOF {
				// Need one more byte to know whether this is \r\n.
				return 0, nil, nil
			}
		}
		return advance, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = ScanOutputLines
