package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"
)

// TerminalRenderer prints the final completion, as markdown or plain text.
type TerminalRenderer struct {
	markdown  *glamour.TermRenderer
	plainText bool
	out       io.Writer
}

// NewTerminalRenderer builds a renderer writing to out. Markdown rendering
// falls back to plain text when glamour cannot be initialised.
func NewTerminalRenderer(out io.Writer, usePlainText bool, theme string, wrap int) *TerminalRenderer {
	var md *glamour.TermRenderer
	if !usePlainText {
		var err error
		md, err = glamour.NewTermRenderer(
			markdown.WithTheme(theme),
			markdown.WithWrap(wrap),
		)
		if err != nil {
			md = nil
		}
	}

	return &TerminalRenderer{
		markdown:  md,
		plainText: usePlainText || md == nil,
		out:       out,
	}
}

// Render prints content followed by a newline.
func (t *TerminalRenderer) Render(content string) error {
	if t.plainText {
		_, err := fmt.Fprintln(t.out, content)
		return err
	}

	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "#") {
		fmt.Fprintln(t.out)
	}

	mdContent, err := t.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = fmt.Fprintln(t.out, strings.TrimSpace(mdContent))
	return err
}
