package stream

import (
	"io"

	"github.com/charmbracelet/log"
)

// DefaultExcerptLength is the number of trailing characters reported to the
// progress sink once the accumulated text grows past it.
const DefaultExcerptLength = 30

// CancelPolicy decides what a cancelled session returns.
type CancelPolicy int

const (
	ReturnPartial CancelPolicy = iota // text accumulated before cancellation
	ReturnEmpty                       // empty string
)

// ParseCancelPolicy maps the config spelling ("partial" or "empty") to a
// CancelPolicy.
func ParseCancelPolicy(s string) (CancelPolicy, bool) {
	switch s {
	case "", "partial":
		return ReturnPartial, true
	case "empty":
		return ReturnEmpty, true
	default:
		return ReturnPartial, false
	}
}

func (p CancelPolicy) String() string {
	if p == ReturnEmpty {
		return "empty"
	}
	return "partial"
}

// ProgressSink receives an excerpt of the accumulated text after every
// content delta, in accumulation order.
type ProgressSink interface {
	Report(excerpt string) error
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(excerpt string) error

func (f SinkFunc) Report(excerpt string) error { return f(excerpt) }

type options struct {
	policy         CancelPolicy
	excerptLength  int
	stripCodeFence bool
	sink           ProgressSink
	logger         *log.Logger
}

// Option configures a Session.
type Option func(*options)

// WithCancelPolicy sets what a cancelled session returns. Defaults to
// ReturnPartial.
func WithCancelPolicy(p CancelPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithExcerptLength sets the progress excerpt length. Non-positive values
// keep the default.
func WithExcerptLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.excerptLength = n
		}
	}
}

// WithStripCodeFence removes a single surrounding ``` fence from the returned
// text.
func WithStripCodeFence(strip bool) Option {
	return func(o *options) {
		o.stripCodeFence = strip
	}
}

// WithSink sets the progress sink.
func WithSink(s ProgressSink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithLogger sets the logger used for state transitions and sink failures.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		policy:        ReturnPartial,
		excerptLength: DefaultExcerptLength,
		logger:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
