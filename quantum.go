// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// decodeQuantum decodes the payload of one compressed quantum into the window
// up to output position end, one sub-chunk of at most 128 KiB at a time.
// It returns the number of payload bytes consumed.
func decodeQuantum(src []byte, w *window, end int) (int, error) {
	c := &byteCursor{data: src}

	for w.pos < end {
		dstCount := min(end-w.pos, SubChunkSize)
		if err := w.bound(w.pos + dstCount); err != nil {
			return c.pos, err
		}
		if err := c.need(4); err != nil {
			return c.pos, err
		}

		hdr, _ := c.peekBE24()
		if hdr&chunkLZFlag == 0 {
			// Whole sub-chunk is a single entropy block.
			n, used, err := decodeBytesInto(src[c.pos:], w.buf[w.pos:w.limit], 0)
			if err != nil {
				return c.pos, fmt.Errorf("sub-chunk at %d: %w", w.pos, err)
			}
			if n != dstCount {
				return c.pos, fmt.Errorf("%w: sub-chunk at %d decodes to %d of %d bytes", ErrLengthOverflow, w.pos, n, dstCount)
			}
			c.pos += used
			w.pos += n

			continue
		}

		c.pos += 3
		srcUsed := int(hdr & chunkSizeMask)
		mode := int(hdr>>chunkModeBits) & chunkModeMask
		body, err := c.readBytes(srcUsed)
		if err != nil {
			return c.pos, err
		}

		switch {
		case srcUsed < dstCount:
			lz, err := readLzTable(mode, body, dstCount, w.pos == 0)
			if err != nil {
				return c.pos, fmt.Errorf("sub-chunk at %d: %w", w.pos, err)
			}
			if err := processLzRuns(mode, lz, w); err != nil {
				return c.pos, fmt.Errorf("sub-chunk at %d: %w", w.pos, err)
			}
		case srcUsed > dstCount:
			return c.pos, fmt.Errorf("%w: sub-chunk stores %d bytes for %d", ErrMalformedHeader, srcUsed, dstCount)
		case mode != 0:
			return c.pos, fmt.Errorf("%w: stored sub-chunk with mode %d", ErrMalformedHeader, mode)
		default:
			if err := w.appendLiteral(body); err != nil {
				return c.pos, err
			}
		}
	}

	return c.pos, nil
}
