package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yourusername/ytfetch/internal/domain"
)

const barWidth = 30

// progressRenderer draws session events on a terminal: one rewritable
// progress line at the bottom with yt-dlp output scrolling above it.
type progressRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	quiet    bool // hide yt-dlp output lines
	inline   int  // width of the progress line currently drawn
	noInline bool // never redraw in place (output is not a terminal)
}

func newProgressRenderer(out io.Writer, quiet, noInline bool) *progressRenderer {
	return &progressRenderer{out: out, quiet: quiet, noInline: noInline}
}

// Publish implements domain.EventSink
func (r *progressRenderer) Publish(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Kind {
	case domain.EventProgress:
		if e.Progress != nil {
			r.drawProgress(*e.Progress)
		}

	case domain.EventLog:
		if r.quiet && !strings.HasPrefix(e.Line, "ERROR:") && !strings.HasPrefix(e.Line, "== [") {
			return
		}
		r.println(e.Line)

	case domain.EventStage:
		r.println("→ " + e.Message)

	case domain.EventAttempt:
		if e.Outcome != domain.OutcomeSuccess && e.Outcome != domain.OutcomeCancelled {
			msg := fmt.Sprintf("✗ %s attempt failed", e.Stage)
			if e.Message != "" {
				msg += ": " + e.Message
			}
			r.println(msg)
		}

	case domain.EventFinished:
		r.clearInline()
	}
}

func (r *progressRenderer) drawProgress(p domain.ProgressEvent) {
	line := renderProgressLine(p)
	if r.noInline {
		return
	}
	width := utf8.RuneCountInString(line)
	pad := ""
	if r.inline > width {
		pad = strings.Repeat(" ", r.inline-width)
	}
	fmt.Fprint(r.out, "\r"+line+pad)
	r.inline = width
}

func (r *progressRenderer) println(line string) {
	r.clearInline()
	fmt.Fprintln(r.out, line)
}

func (r *progressRenderer) clearInline() {
	if r.inline == 0 {
		return
	}
	fmt.Fprint(r.out, "\r"+strings.Repeat(" ", r.inline)+"\r")
	r.inline = 0
}

// renderProgressLine formats a progress bar with rate and ETA
func renderProgressLine(p domain.ProgressEvent) string {
	filled := int(p.Percent / 100 * barWidth)
	filled = max(0, min(filled, barWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("%s %5.1f%%", bar, p.Percent)
	if summary := p.Summary(); summary != "" {
		line += "  " + summary
	}
	return line
}
