// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// blockBufPool holds buffers for one compressed block read from a stream.
var blockBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, BlockSize+16)

		return &b
	},
}

// DecompressFromReader decompresses one Kraken stream of outLen bytes from r
// and returns consumed bytes. Decoding stops exactly after the last block,
// so r can be positioned at the next record afterwards.
func DecompressFromReader(r io.Reader, outLen int, opts *Options) ([]byte, int64, error) {
	if r == nil {
		return nil, 0, ErrNilReader
	}
	if outLen < 0 {
		return nil, 0, ErrNegativeOutLen
	}
	if outLen > opts.maxSize() {
		return nil, 0, fmt.Errorf("%w: declared size %d exceeds limit %d", ErrMalformedHeader, outLen, opts.maxSize())
	}

	bufp := blockBufPool.Get().(*[]byte)
	defer blockBufPool.Put(bufp)

	log := opts.logger()
	out := make([]byte, outLen)
	w := newWindow(out)
	var (
		hdr   blockHeader
		count int64
	)

	for w.pos < outLen {
		buf, err := readBlock(r, (*bufp)[:0], w.pos, min(BlockSize, outLen-w.pos), &hdr)
		count += int64(len(buf))
		*bufp = buf[:0]
		if err != nil {
			return nil, count, err
		}

		// readBlock advanced hdr already; decodeBlock re-reads it from buf.
		c := &byteCursor{data: buf}
		if err := decodeBlock(c, w, &hdr, log); err != nil {
			return nil, count, err
		}
		if c.pos != len(buf) {
			return nil, count, fmt.Errorf("%w: block used %d of %d bytes", ErrMalformedHeader, c.pos, len(buf))
		}
	}

	return out, count, nil
}

// readBlock appends the bytes of the next block (headers and payload) to buf.
// The block header is expected when pos is block aligned.
func readBlock(r io.Reader, buf []byte, pos, n int, hdr *blockHeader) ([]byte, error) {
	var err error

	if pos&(BlockSize-1) == 0 {
		if buf, err = readAppend(r, buf, 2); err != nil {
			return buf, err
		}
		h, err := parseBlockHeader(&byteCursor{data: buf[len(buf)-2:]})
		if err != nil {
			return buf, err
		}
		*hdr = h
	}

	if hdr.uncompressed {
		return readAppend(r, buf, n)
	}

	if buf, err = readAppend(r, buf, 3); err != nil {
		return buf, err
	}
	q := buf[len(buf)-3:]
	v := uint32(q[0])<<16 | uint32(q[1])<<8 | uint32(q[2])
	size := int(v & quantumSizeMask)
	if size == quantumSizeEscape {
		return readAppend(r, buf, 1)
	}

	size++
	if size > n {
		return buf, fmt.Errorf("%w: quantum stores %d bytes for %d", ErrMalformedHeader, size, n)
	}
	if hdr.checksums {
		size += 3
	}

	return readAppend(r, buf, size)
}

// readAppend reads exactly n bytes from r onto buf.
func readAppend(r io.Reader, buf []byte, n int) ([]byte, error) {
	start := len(buf)
	if cap(buf)-start < n {
		grown := make([]byte, start, start+n)
		copy(grown, buf)
		buf = grown
	}
	buf = buf[:start+n]

	got, err := io.ReadFull(r, buf[start:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return buf[:start+got], fmt.Errorf("%w: need %d bytes, read %d", ErrTruncatedInput, n, got)
		}

		return buf[:start+got], err
	}

	return buf, nil
}
