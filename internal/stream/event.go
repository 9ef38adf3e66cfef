package stream

// Event is the classification of one line of the response body.
// The unexported marker method seals the set of implementations.
type Event interface {
	event()
}

// ContentDelta carries one fragment of generated text.
type ContentDelta struct {
	Text string
}

func (ContentDelta) event() {}

// StreamEnd marks the termination sentinel. Nothing after it is processed.
type StreamEnd struct{}

func (StreamEnd) event() {}

// Ignored covers blank lines, comments, non-data fields and payloads without
// any text (role announcements, heartbeats).
type Ignored struct{}

func (Ignored) event() {}

// Interface compliance checks.
var (
	_ Event = ContentDelta{}
	_ Event = StreamEnd{}
	_ Event = Ignored{}
)
