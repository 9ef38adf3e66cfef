// Package edit selects a line range of a text file and replaces it with a
// completion.
package edit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Selection is an inclusive, 1-based range of lines.
type Selection struct {
	Start int
	End   int
}

// ParseSelection parses "N" (a single line) or "A:B".
func ParseSelection(s string) (Selection, error) {
	startStr, endStr, isRange := strings.Cut(strings.TrimSpace(s), ":")
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return Selection{}, fmt.Errorf("invalid line %q: %w", startStr, err)
	}
	end := start
	if isRange {
		if end, err = strconv.Atoi(endStr); err != nil {
			return Selection{}, fmt.Errorf("invalid line %q: %w", endStr, err)
		}
	}
	if start < 1 || end < start {
		return Selection{}, fmt.Errorf("invalid line range %q", s)
	}
	return Selection{Start: start, End: end}, nil
}

func (s Selection) String() string {
	if s.Start == s.End {
		return strconv.Itoa(s.Start)
	}
	return fmt.Sprintf("%d:%d", s.Start, s.End)
}

// Document is a text file held in memory as lines.
type Document struct {
	path            string
	mode            os.FileMode
	lines           []string
	trailingNewline bool
}

// Open reads path into a Document.
func Open(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := string(data)
	trailing := strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	return &Document{
		path:            path,
		mode:            info.Mode().Perm(),
		lines:           strings.Split(text, "\n"),
		trailingNewline: trailing,
	}, nil
}

// Lines returns the number of lines.
func (d *Document) Lines() int { return len(d.lines) }

func (d *Document) check(sel Selection) error {
	if sel.Start < 1 || sel.End < sel.Start {
		return fmt.Errorf("invalid selection %s", sel)
	}
	if sel.End > len(d.lines) {
		return fmt.Errorf("selection %s is past the end of %s (%d lines)", sel, d.path, len(d.lines))
	}
	return nil
}

// Text returns the selected lines joined by newlines.
func (d *Document) Text(sel Selection) (string, error) {
	if err := d.check(sel); err != nil {
		return "", err
	}
	return strings.Join(d.lines[sel.Start-1:sel.End], "\n"), nil
}

// Replace substitutes the selected lines with text. A single trailing newline
// in text is not treated as an extra empty line.
func (d *Document) Replace(sel Selection, text string) error {
	if err := d.check(sel); err != nil {
		return err
	}
	replacement := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	lines := make([]string, 0, len(d.lines)-(sel.End-sel.Start+1)+len(replacement))
	lines = append(lines, d.lines[:sel.Start-1]...)
	lines = append(lines, replacement...)
	lines = append(lines, d.lines[sel.End:]...)
	d.lines = lines
	return nil
}

// String returns the document content.
func (d *Document) String() string {
	text := strings.Join(d.lines, "\n")
	if d.trailingNewline {
		text += "\n"
	}
	return text
}

// Save writes the document back through a temporary file in the same
// directory, keeping the original permissions.
func (d *Document) Save() (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err = tmp.WriteString(d.String()); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Chmod(d.mode); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), d.path)
}
