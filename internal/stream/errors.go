package stream

import "errors"

// Error kinds reported by a failed Session. Each failure wraps exactly one of
// these, so callers can tell them apart with errors.Is.
var (
	// ErrDecode indicates the response body was not valid UTF-8.
	ErrDecode = errors.New("decode error")

	// ErrPayloadParse indicates a data line carried a malformed JSON payload.
	ErrPayloadParse = errors.New("payload parse error")

	// ErrTransport indicates the byte source failed before the stream ended.
	ErrTransport = errors.New("transport error")
)
