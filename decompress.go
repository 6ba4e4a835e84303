package kraken

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Decompress decompresses src into a new buffer of length outLen.
// Options nil means DefaultOptions (strict trailing check).
func Decompress(src []byte, outLen int, opts *Options) ([]byte, error) {
	if outLen < 0 {
		return nil, ErrNegativeOutLen
	}
	if outLen > opts.maxSize() {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit %d", ErrMalformedHeader, outLen, opts.maxSize())
	}

	out := make([]byte, outLen)
	if _, err := DecompressInto(src, out, outLen, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// DecompressInto decompresses exactly size bytes from src into dst[:size]
// and returns the number of bytes written. dst must hold at least size bytes;
// nothing is written past dst[size-1] for any input.
func DecompressInto(src, dst []byte, size int, opts *Options) (int, error) {
	written, consumed, err := decompressInto(src, dst, size, opts)
	if err != nil {
		return 0, err
	}

	if consumed != len(src) && (opts == nil || !opts.AllowTrailing) {
		return 0, fmt.Errorf("%w: consumed=%d input=%d", ErrTrailingData, consumed, len(src))
	}

	return written, nil
}

// DecompressBlock decompresses one Kraken stream of outLen bytes from the
// beginning of src. It returns decompressed bytes and the number of consumed bytes.
// Unlike Decompress, this function ignores trailing bytes after the stream.
func DecompressBlock(src []byte, outLen int, opts *Options) ([]byte, int, error) {
	if outLen < 0 {
		return nil, 0, ErrNegativeOutLen
	}
	if outLen > opts.maxSize() {
		return nil, 0, fmt.Errorf("%w: declared size %d exceeds limit %d", ErrMalformedHeader, outLen, opts.maxSize())
	}

	out := make([]byte, outLen)
	_, consumed, err := decompressInto(src, out, outLen, opts)
	if err != nil {
		return nil, consumed, err
	}

	return out, consumed, nil
}

// decompressInto validates the size against dst and options and decodes
// blocks until size bytes are produced.
func decompressInto(src, dst []byte, size int, opts *Options) (int, int, error) {
	if size < 0 {
		return 0, 0, ErrNegativeOutLen
	}
	if size > opts.maxSize() {
		return 0, 0, fmt.Errorf("%w: declared size %d exceeds limit %d", ErrMalformedHeader, size, opts.maxSize())
	}
	if size > len(dst) {
		return 0, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrInsufficientDestination, size, len(dst))
	}
	if size == 0 {
		return 0, 0, nil
	}
	if len(src) == 0 {
		return 0, 0, ErrEmptyInput
	}

	log := opts.logger()
	w := newWindow(dst[:size])
	c := &byteCursor{data: src}
	var hdr blockHeader

	for w.pos < size {
		if err := decodeBlock(c, w, &hdr, log); err != nil {
			return 0, c.pos, err
		}
	}

	log.Debug().Int("size", size).Int("consumed", c.pos).Msg("kraken stream decoded")

	return size, c.pos, nil
}

// decodeBlock decodes the next quantum of up to BlockSize bytes. A block
// header is read whenever the output position is block aligned; hdr keeps
// the last one.
func decodeBlock(c *byteCursor, w *window, hdr *blockHeader, log *zerolog.Logger) error {
	start := c.pos
	if w.pos&(BlockSize-1) == 0 {
		h, err := parseBlockHeader(c)
		if err != nil {
			return err
		}
		*hdr = h
	}

	n := min(BlockSize, len(w.buf)-w.pos)
	if err := w.bound(w.pos + n); err != nil {
		return err
	}

	if hdr.uncompressed {
		body, err := c.readBytes(n)
		if err != nil {
			return err
		}
		log.Debug().Int("offset", w.pos).Int("size", n).Str("kind", "uncompressed").Msg("kraken block")

		return w.appendLiteral(body)
	}

	qh, err := parseQuantumHeader(c, hdr.checksums)
	if err != nil {
		return err
	}
	if qh.compressedSize > c.remaining() {
		return fmt.Errorf("%w: quantum at %d needs %d bytes, have %d", ErrTruncatedInput, start, qh.compressedSize, c.remaining())
	}
	if qh.compressedSize > n {
		return fmt.Errorf("%w: quantum at %d stores %d bytes for %d", ErrMalformedHeader, start, qh.compressedSize, n)
	}

	switch qh.compressedSize {
	case 0:
		log.Debug().Int("offset", w.pos).Int("size", n).Str("kind", "fill").Uint8("byte", qh.fill).Msg("kraken block")

		return w.fill(qh.fill, n)
	case n:
		body, _ := c.readBytes(n)
		log.Debug().Int("offset", w.pos).Int("size", n).Str("kind", "stored").Msg("kraken block")

		return w.appendLiteral(body)
	}

	payload, _ := c.readBytes(qh.compressedSize)
	offset := w.pos
	used, err := decodeQuantum(payload, w, offset+n)
	if err != nil {
		return fmt.Errorf("quantum at %d: %w", start, err)
	}
	if used != len(payload) {
		return fmt.Errorf("%w: quantum at %d used %d of %d bytes", ErrMalformedHeader, start, used, len(payload))
	}

	log.Debug().Int("offset", offset).Int("size", n).Int("compressed", len(payload)).Str("kind", "kraken").Msg("kraken block")

	return nil
}
