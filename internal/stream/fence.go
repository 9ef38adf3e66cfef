package stream

import "strings"

const fence = "```"

// StripCodeFence removes one ``` block wrapping the whole of text, including
// its language tag. Text that is not entirely fenced is returned unchanged.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2*len(fence) || !strings.HasPrefix(trimmed, fence) || !strings.HasSuffix(trimmed, fence) {
		return text
	}

	body := trimmed[len(fence) : len(trimmed)-len(fence)]
	if strings.Contains(body, fence) {
		return text
	}
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	}
	return strings.TrimSuffix(body, "\n")
}
