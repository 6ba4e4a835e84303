// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "errors"

// Package errors. Use errors.New for static messages, fmt.Errorf with %w when values are needed.
// Callers should match with errors.Is; the wrapped message carries the failing position.
var (
	// ErrMalformedHeader reports a block, quantum or sub-chunk header with
	// inconsistent or over-limit size fields.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrCorruptEntropyStream reports an invalid prefix-code table, a bad
	// entropy block or a bit stream that does not end where it should.
	ErrCorruptEntropyStream = errors.New("corrupt entropy stream")
	// ErrOffsetOutOfRange reports a match that references before the start of output.
	ErrOffsetOutOfRange = errors.New("match offset out of range")
	// ErrLengthOverflow reports a literal run or match longer than the space left in its chunk.
	ErrLengthOverflow = errors.New("length overflows chunk")
	// ErrInsufficientDestination reports a write that would exceed the destination capacity.
	ErrInsufficientDestination = errors.New("insufficient destination capacity")
	// ErrTruncatedInput reports fewer input bytes than a read requires.
	ErrTruncatedInput = errors.New("truncated input")

	ErrUnsupportedDecoder = errors.New("unsupported oodle decoder type")
	ErrTrailingData       = errors.New("trailing bytes after kraken stream")
	ErrNegativeOutLen     = errors.New("output length must be non-negative")
	ErrEmptyInput         = errors.New("input is empty")
	ErrNilBlock           = errors.New("block is nil")
	ErrNilReader          = errors.New("reader is nil")
)
