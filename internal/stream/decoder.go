package stream

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Decoder turns raw byte chunks into UTF-8 text. A multi-byte character split
// across two chunks is held back until its remaining bytes arrive.
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

func NewDecoder() *Decoder {
	return &Decoder{t: encoding.UTF8Validator}
}

// Decode appends chunk to any carried-over bytes and returns the longest
// decodable prefix as text. On ErrDecode the text before the offending byte is
// still returned.
func (d *Decoder) Decode(chunk []byte) (string, error) {
	d.pending = append(d.pending, chunk...)
	return d.transform(false)
}

// Flush ends the input. Bytes still pending at this point can never complete
// a character and are reported as ErrDecode.
func (d *Decoder) Flush() error {
	if len(d.pending) == 0 {
		return nil
	}
	_, err := d.transform(true)
	if err == nil && len(d.pending) > 0 {
		err = fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(d.pending))
	}
	return err
}

func (d *Decoder) transform(atEOF bool) (string, error) {
	if len(d.pending) == 0 {
		return "", nil
	}
	dst := make([]byte, len(d.pending))
	nDst, nSrc, err := d.t.Transform(dst, d.pending, atEOF)
	switch {
	case err == nil, errors.Is(err, transform.ErrShortSrc):
	default:
		return string(dst[:nDst]), fmt.Errorf("%w: invalid byte at offset %d: %w", ErrDecode, nSrc, err)
	}

	// Keep the undecoded tail without aliasing the caller's chunk.
	rest := copy(d.pending, d.pending[nSrc:])
	d.pending = d.pending[:rest]
	return string(dst[:nDst]), nil
}
