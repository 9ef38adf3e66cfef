package stream

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateOpen       State = iota // consuming chunks
	StateCancelling              // cancellation observed, no further bytes consumed
	StateEnded                   // sentinel, end of input, or completed cancellation
	StateFailed                  // decode, payload or transport error
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCancelling:
		return "cancelling"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateFailed
}

// CancellationToken is polled once per chunk.
type CancellationToken interface {
	Cancelled() bool
}

type contextToken struct {
	ctx context.Context
}

func (t contextToken) Cancelled() bool { return t.ctx.Err() != nil }

// ContextToken reports cancellation once ctx is done.
func ContextToken(ctx context.Context) CancellationToken {
	return contextToken{ctx: ctx}
}

// OutcomeKind distinguishes the three ways a session resolves.
type OutcomeKind int

const (
	Completed OutcomeKind = iota
	Cancelled
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the single result of a session. Err is set only for Failed and
// wraps one of ErrDecode, ErrPayloadParse or ErrTransport.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Session owns all mutable state of one streamed response. It is not safe for
// concurrent use: chunks must be fed one at a time in arrival order.
type Session struct {
	id        string
	opts      options
	log       *log.Logger
	decoder   *Decoder
	lines     LineSplitter
	text      strings.Builder
	state     State
	cancelled bool
	err       error
}

func NewSession(opts ...Option) *Session {
	o := newOptions(opts)
	id := uuid.NewString()
	return &Session{
		id:      id,
		opts:    o,
		log:     o.logger.With("request", id),
		decoder: NewDecoder(),
		state:   StateOpen,
	}
}

// ID returns the random identifier attached to this session's log lines.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Text returns the text accumulated so far.
func (s *Session) Text() string { return s.text.String() }

// Feed runs one raw chunk through decoding, line splitting and
// classification, then checks token. Chunks fed after the session left
// StateOpen are dropped.
func (s *Session) Feed(chunk []byte, token CancellationToken) State {
	if s.state != StateOpen {
		return s.state
	}

	text, decodeErr := s.decoder.Decode(chunk)
	for _, line := range s.lines.Push(text) {
		if s.state != StateOpen {
			break
		}
		s.apply(line)
	}
	if decodeErr != nil && s.state == StateOpen {
		s.fail(decodeErr)
		return s.state
	}

	if s.state == StateOpen && token != nil && token.Cancelled() {
		s.Cancel()
	}
	return s.state
}

// Finish signals end of input. Remaining bytes must decode, and an
// unterminated last line is classified like any other.
func (s *Session) Finish() State {
	switch s.state {
	case StateOpen:
	case StateCancelling:
		s.end()
		return s.state
	default:
		return s.state
	}

	if err := s.decoder.Flush(); err != nil {
		s.fail(err)
		return s.state
	}
	if s.lines.Pending() {
		s.apply(s.lines.Rest())
	}
	if s.state == StateOpen {
		s.end()
	}
	return s.state
}

// Fail records a failure of the byte source.
func (s *Session) Fail(err error) {
	if s.state != StateOpen {
		return
	}
	s.fail(fmt.Errorf("%w: %w", ErrTransport, err))
}

// Cancel stops consumption. The outcome is decided by the cancel policy once
// the session resolves.
func (s *Session) Cancel() {
	if s.state != StateOpen {
		return
	}
	s.cancelled = true
	s.transition(StateCancelling)
}

// Outcome resolves the session. An open or cancelling session is finished
// first.
func (s *Session) Outcome() Outcome {
	if !s.state.Terminal() {
		s.Finish()
	}
	if s.state == StateFailed {
		return Outcome{Kind: Failed, Err: s.err}
	}

	text := s.text.String()
	if s.opts.stripCodeFence {
		text = StripCodeFence(text)
	}
	if s.cancelled {
		if s.opts.policy == ReturnEmpty {
			text = ""
		}
		return Outcome{Kind: Cancelled, Text: text}
	}
	return Outcome{Kind: Completed, Text: text}
}

func (s *Session) apply(line string) {
	evt, err := Classify(line)
	if err != nil {
		s.fail(err)
		return
	}

	switch e := evt.(type) {
	case ContentDelta:
		s.text.WriteString(e.Text)
		s.report()
	case StreamEnd:
		s.end()
	case Ignored:
	}
}

func (s *Session) report() {
	if s.opts.sink == nil {
		return
	}
	excerpt := Excerpt(s.text.String(), s.opts.excerptLength)
	if err := s.opts.sink.Report(excerpt); err != nil {
		s.log.Warn("progress report failed", "err", err)
	}
}

func (s *Session) end() {
	s.transition(StateEnded)
	s.release()
}

func (s *Session) fail(err error) {
	s.err = err
	s.transition(StateFailed)
	s.text.Reset()
	s.release()
}

func (s *Session) release() {
	s.decoder = nil
	s.lines = LineSplitter{}
}

func (s *Session) transition(to State) {
	s.log.Debug("session state", "from", s.state, "to", to, "chars", s.text.Len())
	s.state = to
}

// Excerpt returns text when it has at most n characters, otherwise its last n
// characters.
func Excerpt(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	i := len(text)
	for ; n > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
	}
	return text[i:]
}
