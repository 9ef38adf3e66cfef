package render

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	excerptStyle = lipgloss.NewStyle().Faint(true)
)

// Progress is a stream.ProgressSink that keeps a single status line on a
// terminal up to date: `(model) Thinking "...excerpt"`.
type Progress struct {
	out     io.Writer
	title   string
	width   int
	limit   int
	written bool
}

// NewProgress writes status lines to out, truncated to width columns when
// width is positive. limit is the session's excerpt length; an excerpt that
// reaches it is shown with a leading "...".
func NewProgress(out io.Writer, model string, width, limit int) *Progress {
	return &Progress{
		out:   out,
		title: fmt.Sprintf("(%s) Thinking", model),
		width: width,
		limit: limit,
	}
}

// Report implements stream.ProgressSink.
func (p *Progress) Report(excerpt string) error {
	line := titleStyle.Render(p.title) + " " + excerptStyle.Render(Quote(excerpt, p.elided(excerpt)))
	if p.width > 0 {
		line = ansi.Truncate(line, p.width, "…")
	}
	if _, err := fmt.Fprint(p.out, "\r"+ansi.EraseEntireLine+line); err != nil {
		return err
	}
	p.written = true
	return nil
}

func (p *Progress) elided(excerpt string) bool {
	return p.limit > 0 && utf8.RuneCountInString(excerpt) >= p.limit
}

// Done clears the status line, if one was written.
func (p *Progress) Done() {
	if p.written {
		fmt.Fprint(p.out, "\r"+ansi.EraseEntireLine)
		p.written = false
	}
}

// Quote flattens line breaks and tabs in excerpt and wraps it in quotes,
// marking the start as cut off when elided is set.
func Quote(excerpt string, elided bool) string {
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(excerpt)
	if elided {
		flat = "..." + flat
	}
	return `"` + flat + `"`
}
