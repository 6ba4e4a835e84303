// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// maxEntropyDepth bounds nesting of recursive, multi-array and RLE blocks.
const maxEntropyDepth = 16

// entropyHeader describes one entropy-coded block.
type entropyHeader struct {
	kind    int // entropyStored .. entropyRecursive
	hdrLen  int // header bytes
	srcSize int // payload bytes following the header
	dstSize int // decoded bytes
}

// used returns the total input bytes of the block.
func (h entropyHeader) used() int {
	return h.hdrLen + h.srcSize
}

// parseEntropyHeader reads the header at src[0:] and validates it against
// the input left and the output capacity.
func parseEntropyHeader(src []byte, capacity int) (entropyHeader, error) {
	var h entropyHeader
	if len(src) < 2 {
		return h, fmt.Errorf("%w: entropy header needs 2 bytes, have %d", ErrTruncatedInput, len(src))
	}

	h.kind = int(src[0]>>4) & 7
	switch {
	case h.kind == entropyStored && src[0] >= 0x80:
		h.srcSize = int(uint32(src[0])<<8|uint32(src[1])) & 0xFFF
		h.hdrLen = 2
		h.dstSize = h.srcSize

	case h.kind == entropyStored:
		if len(src) < 3 {
			return h, fmt.Errorf("%w: stored header needs 3 bytes", ErrTruncatedInput)
		}
		size := uint32(src[0])<<16 | uint32(src[1])<<8 | uint32(src[2])
		if size&^0x3FFFF != 0 {
			return h, fmt.Errorf("%w: stored size 0x%x", ErrMalformedHeader, size)
		}
		h.srcSize = int(size)
		h.hdrLen = 3
		h.dstSize = h.srcSize

	case h.kind > entropyRecursive:
		return h, fmt.Errorf("%w: entropy block type %d", ErrCorruptEntropyStream, h.kind)

	case src[0] >= 0x80:
		// Short form: 10-bit sizes.
		if len(src) < 3 {
			return h, fmt.Errorf("%w: short entropy header needs 3 bytes", ErrTruncatedInput)
		}
		v := uint32(src[0])<<16 | uint32(src[1])<<8 | uint32(src[2])
		h.srcSize = int(v & 0x3FF)
		h.dstSize = h.srcSize + int(v>>10&0x3FF) + 1
		h.hdrLen = 3

	default:
		// Long form: 18-bit sizes.
		if len(src) < 5 {
			return h, fmt.Errorf("%w: long entropy header needs 5 bytes", ErrTruncatedInput)
		}
		v := uint32(src[1])<<24 | uint32(src[2])<<16 | uint32(src[3])<<8 | uint32(src[4])
		h.srcSize = int(v & 0x3FFFF)
		h.dstSize = int((v>>18|uint32(src[0])<<14)&0x3FFFF) + 1
		if h.srcSize >= h.dstSize {
			return h, fmt.Errorf("%w: entropy block does not shrink (%d >= %d)", ErrCorruptEntropyStream, h.srcSize, h.dstSize)
		}
		h.hdrLen = 5
	}

	if len(src)-h.hdrLen < h.srcSize {
		return h, fmt.Errorf("%w: entropy payload needs %d bytes, have %d", ErrTruncatedInput, h.srcSize, len(src)-h.hdrLen)
	}
	if h.dstSize > capacity {
		return h, fmt.Errorf("%w: entropy block decodes to %d, room %d", ErrLengthOverflow, h.dstSize, capacity)
	}

	return h, nil
}

// decodeBytes decodes one entropy block of at most capacity bytes.
// Stored blocks are returned as a subslice of src; the caller must not modify it.
func decodeBytes(src []byte, capacity, depth int) ([]byte, int, error) {
	h, err := parseEntropyHeader(src, capacity)
	if err != nil {
		return nil, 0, err
	}

	payload := src[h.hdrLen:h.used()]
	if h.kind == entropyStored {
		return payload, h.used(), nil
	}

	dst := make([]byte, h.dstSize)
	if err := decodePayload(h.kind, payload, dst, depth); err != nil {
		return nil, 0, err
	}

	return dst, h.used(), nil
}

// decodeBytesInto decodes one entropy block into dst and returns the decoded
// and consumed byte counts.
func decodeBytesInto(src, dst []byte, depth int) (int, int, error) {
	h, err := parseEntropyHeader(src, len(dst))
	if err != nil {
		return 0, 0, err
	}

	payload := src[h.hdrLen:h.used()]
	if h.kind == entropyStored {
		copy(dst, payload)

		return h.dstSize, h.used(), nil
	}

	if err := decodePayload(h.kind, payload, dst[:h.dstSize], depth); err != nil {
		return 0, 0, err
	}

	return h.dstSize, h.used(), nil
}

// decodePayload dispatches a non-stored block. Every decoder must fill dst
// exactly and consume exactly len(payload) bytes.
func decodePayload(kind int, payload, dst []byte, depth int) error {
	if depth >= maxEntropyDepth {
		return fmt.Errorf("%w: entropy blocks nested deeper than %d", ErrCorruptEntropyStream, maxEntropyDepth)
	}

	switch kind {
	case entropyHuffman3:
		return decodeHuffman(payload, dst, false)
	case entropyHuffman6:
		return decodeHuffman(payload, dst, true)
	case entropyRLE:
		return decodeRLE(payload, dst, depth+1)
	case entropyTANS:
		return decodeTANS(payload, dst)
	case entropyRecursive:
		return decodeRecursive(payload, dst, depth+1)
	default:
		return fmt.Errorf("%w: entropy block type %d", ErrCorruptEntropyStream, kind)
	}
}
