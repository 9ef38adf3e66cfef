package stream

import "strings"

// LineSplitter buffers decoded text and hands back complete lines. Text after
// the last newline stays buffered until a later Push completes it.
type LineSplitter struct {
	buf strings.Builder
}

// Push appends fragment and returns every line it completed, in order,
// without terminators. A trailing carriage return is dropped so CRLF framed
// streams split the same way as LF framed ones.
func (l *LineSplitter) Push(fragment string) []string {
	if !strings.Contains(fragment, "\n") {
		l.buf.WriteString(fragment)
		return nil
	}

	l.buf.WriteString(fragment)
	text := l.buf.String()
	l.buf.Reset()

	var lines []string
	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, strings.TrimSuffix(text[:idx], "\r"))
		text = text[idx+1:]
	}
	l.buf.WriteString(text)
	return lines
}

// Rest returns the unterminated remainder and clears the buffer. It is only
// meaningful once the input has ended.
func (l *LineSplitter) Rest() string {
	rest := strings.TrimSuffix(l.buf.String(), "\r")
	l.buf.Reset()
	return rest
}

// Pending reports whether an unterminated line is buffered.
func (l *LineSplitter) Pending() bool {
	return l.buf.Len() > 0
}
