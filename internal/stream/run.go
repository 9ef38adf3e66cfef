package stream

import (
	"context"
	"errors"
	"io"
)

// DefaultChunkSize is the read size used by NewReaderSource when none is given.
const DefaultChunkSize = 4096

// maxEmptyReads bounds consecutive zero-byte reads before giving up.
const maxEmptyReads = 100

// ChunkSource delivers the raw response body one chunk at a time. Next
// returns io.EOF once the body is exhausted.
type ChunkSource interface {
	Next() ([]byte, error)
}

type readerSource struct {
	r   io.Reader
	buf []byte
}

// NewReaderSource adapts r into a ChunkSource reading at most size bytes per
// chunk. The returned chunk is only valid until the next call.
func NewReaderSource(r io.Reader, size int) ChunkSource {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &readerSource{r: r, buf: make([]byte, size)}
}

func (s *readerSource) Next() ([]byte, error) {
	for i := 0; i < maxEmptyReads; i++ {
		n, err := s.r.Read(s.buf)
		if n > 0 {
			// Data returned alongside an error is delivered first; the
			// error surfaces on the next call.
			return s.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}

// Run consumes src until the session resolves and returns its outcome.
// Cancellation of ctx is observed between chunks; a read error that arrives
// after ctx was cancelled counts as cancellation rather than a failure.
func Run(ctx context.Context, src ChunkSource, opts ...Option) Outcome {
	s := NewSession(opts...)
	token := ContextToken(ctx)
	s.log.Debug("session started")

	for s.State() == StateOpen {
		chunk, err := src.Next()
		switch {
		case errors.Is(err, io.EOF):
			s.Finish()
		case err != nil && token.Cancelled():
			s.Cancel()
		case err != nil:
			s.Fail(err)
		default:
			s.Feed(chunk, token)
		}
	}

	out := s.Outcome()
	s.log.Debug("session resolved", "outcome", out.Kind, "chars", len(out.Text))
	return out
}
