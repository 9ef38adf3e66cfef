package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// ChatResponse represents one chunk of a streamed chat completion.
type ChatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify maps a single line to an Event. The only error it returns wraps
// ErrPayloadParse.
func Classify(line string) (Event, error) {
	if strings.Contains(line, doneSentinel) {
		return StreamEnd{}, nil
	}

	data, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return Ignored{}, nil
	}

	var chunk ChatResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPayloadParse, line, err)
	}

	if len(chunk.Choices) == 0 {
		return Ignored{}, nil
	}
	content := chunk.Choices[0].Delta.Content
	if content == "" {
		content = chunk.Choices[0].Message.Content
	}
	if content == "" {
		return Ignored{}, nil
	}
	return ContentDelta{Text: content}, nil
}
