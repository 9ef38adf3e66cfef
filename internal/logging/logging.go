// Package logging builds the structured logger shared by the command and the
// stream session.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type config struct {
	debug  bool
	writer io.Writer
	prefix string
}

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug sets the level to Debug when true, Warn otherwise. The command
// line tool stays quiet unless asked.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.debug = debug
	}
}

// WithWriter overrides the output writer. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// WithPrefix sets the prefix printed before every message.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// New returns a charmbracelet logger writing to stderr.
func New(opts ...Option) *log.Logger {
	c := &config{writer: os.Stderr, prefix: "minigpt"}
	for _, opt := range opts {
		opt(c)
	}

	level := log.WarnLevel
	if c.debug {
		level = log.DebugLevel
	}

	return log.NewWithOptions(c.writer, log.Options{
		Level:           level,
		Prefix:          c.prefix,
		ReportTimestamp: c.debug,
	})
}
