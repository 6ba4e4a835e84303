// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// window is the output buffer. The whole produced prefix of buf is the
// history that matches copy from; nothing is written at or past limit.
type window struct {
	buf   []byte // Destination; len(buf) is the capacity.
	pos   int    // Bytes produced so far.
	limit int    // End of the chunk being decoded, <= len(buf).
}

// newWindow returns a window writing into dst from position 0.
func newWindow(dst []byte) *window {
	return &window{buf: dst, limit: len(dst)}
}

// bound restricts writes to [pos, end).
func (w *window) bound(end int) error {
	if end > len(w.buf) {
		return fmt.Errorf("%w: chunk ends at %d, capacity %d", ErrInsufficientDestination, end, len(w.buf))
	}
	if end < w.pos {
		return fmt.Errorf("%w: chunk ends at %d before output position %d", ErrMalformedHeader, end, w.pos)
	}
	w.limit = end

	return nil
}

// room returns the bytes left before limit.
func (w *window) room() int {
	return w.limit - w.pos
}

// reserve checks that n more bytes fit before limit.
func (w *window) reserve(n int) error {
	if n >= 0 && n <= w.limit-w.pos {
		return nil
	}
	if n < 0 || w.pos+n > len(w.buf) {
		return fmt.Errorf("%w: write of %d at %d, capacity %d", ErrInsufficientDestination, n, w.pos, len(w.buf))
	}

	return fmt.Errorf("%w: write of %d at %d, chunk ends at %d", ErrLengthOverflow, n, w.pos, w.limit)
}

// appendLiteral copies p to the output.
func (w *window) appendLiteral(p []byte) error {
	if err := w.reserve(len(p)); err != nil {
		return err
	}
	w.pos += copy(w.buf[w.pos:], p)

	return nil
}

// appendDelta writes p[i] + out[pos-dist] for each byte, the delta-literal form.
func (w *window) appendDelta(p []byte, dist int) error {
	if dist < 1 || dist > w.pos {
		return fmt.Errorf("%w: delta distance %d at %d", ErrOffsetOutOfRange, dist, w.pos)
	}
	if err := w.reserve(len(p)); err != nil {
		return err
	}

	out := w.buf
	pos := w.pos
	for _, b := range p {
		out[pos] = b + out[pos-dist]
		pos++
	}
	w.pos = pos

	return nil
}

// copyMatch appends length bytes starting offset bytes back.
// length may exceed offset; the copy then repeats the last offset bytes.
func (w *window) copyMatch(offset, length int) error {
	if offset < 1 || offset > w.pos {
		return fmt.Errorf("%w: offset %d at %d", ErrOffsetOutOfRange, offset, w.pos)
	}
	if err := w.reserve(length); err != nil {
		return err
	}

	out := w.buf
	pos := w.pos
	from := pos - offset
	if offset >= length {
		copy(out[pos:pos+length], out[from:from+length])
	} else {
		// Overlapping back-reference: each written byte must be visible to the next read.
		for k := 0; k < length; k++ {
			out[pos+k] = out[from+k]
		}
	}
	w.pos = pos + length

	return nil
}

// fill appends n copies of b.
func (w *window) fill(b byte, n int) error {
	if err := w.reserve(n); err != nil {
		return err
	}

	end := w.pos + n
	for i := w.pos; i < end; i++ {
		w.buf[i] = b
	}
	w.pos = end

	return nil
}
