// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// lzTable holds the decoded streams of one LZ sub-chunk.
type lzTable struct {
	initial []byte // raw bytes that open the whole output, nil elsewhere
	lits    []byte
	cmds    []byte
	offs    []int // match distances, positive
	lens    []int // long literal and match lengths
}

// readLzTable decodes the literal, command, offset and length streams of an
// LZ sub-chunk. src is the whole compressed sub-chunk and must be consumed
// exactly. first is set for the sub-chunk at output offset zero, which
// starts with eight raw bytes.
func readLzTable(mode int, src []byte, dstCount int, first bool) (*lzTable, error) {
	if mode > lzModeRaw {
		return nil, fmt.Errorf("%w: lz mode %d", ErrCorruptEntropyStream, mode)
	}
	if len(src) < 13 {
		return nil, fmt.Errorf("%w: lz sub-chunk of %d bytes", ErrTruncatedInput, len(src))
	}

	lz := &lzTable{}
	p := 0
	if first {
		lz.initial = src[:InitialLits]
		p = InitialLits
	}

	if src[p]&0x80 != 0 {
		return nil, fmt.Errorf("%w: lz excess bytes flag 0x%02x", ErrCorruptEntropyStream, src[p])
	}

	var err error
	var used int

	lz.lits, used, err = decodeBytes(src[p:], min(scratchSize, dstCount), 0)
	if err != nil {
		return nil, fmt.Errorf("literals: %w", err)
	}
	p += used

	lz.cmds, used, err = decodeBytes(src[p:], min(scratchSize, dstCount), 0)
	if err != nil {
		return nil, fmt.Errorf("commands: %w", err)
	}
	p += used

	if len(src)-p < 3 {
		return nil, fmt.Errorf("%w: lz offset stream header", ErrTruncatedInput)
	}

	var packedOffs, packedExtra []byte
	scale := 0
	if src[p]&0x80 != 0 {
		scale = int(src[p]) - 127
		p++
		packedOffs, used, err = decodeBytes(src[p:], len(lz.cmds), 0)
		if err != nil {
			return nil, fmt.Errorf("offsets: %w", err)
		}
		p += used

		if scale != 1 {
			packedExtra, used, err = decodeBytes(src[p:], len(packedOffs), 0)
			if err != nil {
				return nil, fmt.Errorf("offset low bits: %w", err)
			}
			if len(packedExtra) != len(packedOffs) {
				return nil, fmt.Errorf("%w: %d offset low bits for %d offsets", ErrCorruptEntropyStream, len(packedExtra), len(packedOffs))
			}
			p += used
		}
	} else {
		packedOffs, used, err = decodeBytes(src[p:], len(lz.cmds), 0)
		if err != nil {
			return nil, fmt.Errorf("offsets: %w", err)
		}
		p += used
	}

	packedLens, used, err := decodeBytes(src[p:], dstCount>>2, 0)
	if err != nil {
		return nil, fmt.Errorf("lengths: %w", err)
	}
	p += used

	lz.offs, lz.lens, err = unpackOffsets(src, p, len(src), packedOffs, packedExtra, scale, packedLens)
	if err != nil {
		return nil, err
	}

	return lz, nil
}

// unpackOffsets expands the packed offset and length symbols using the
// extra-bits streams in src[lo:hi]: one read forward from lo, one backward
// from hi. The two streams must meet exactly.
func unpackOffsets(src []byte, lo, hi int, packedOffs, packedExtra []byte, scale int, packedLens []byte) ([]int, []int, error) {
	a := newBitReader(src, lo, hi)
	b := newBackReader(src, lo, hi)

	if b.bits < 0x2000 {
		return nil, nil, fmt.Errorf("%w: long length count prefix", ErrCorruptEntropyStream)
	}
	n := b.leadingZeros()
	b.bitpos += n
	b.bits <<= uint(n)
	b.refill()
	n++
	longCount := int(b.bits>>uint(32-n)) - 1
	b.bitpos += n
	b.bits <<= uint(n)
	b.refill()

	offs := make([]int, len(packedOffs))
	if scale == 0 {
		for i, v := range packedOffs {
			r := a
			if i&1 != 0 {
				r = b
			}
			offs[i] = int(int32(r.readDistance(uint32(v))))
		}
	} else {
		for i, cmd := range packedOffs {
			r := a
			if i&1 != 0 {
				r = b
			}
			nb := int(cmd >> 3)
			if nb > 26 {
				return nil, nil, fmt.Errorf("%w: offset symbol 0x%02x", ErrCorruptEntropyStream, cmd)
			}
			o := (8+uint32(cmd&7))<<uint(nb) | r.readMoreThan24Bits(nb)
			offs[i] = int(o) - 8
		}
		if scale != 1 {
			for i := range offs {
				offs[i] = scale*offs[i] + int(packedExtra[i])
			}
		}
	}

	if longCount > maxLongLengths {
		return nil, nil, fmt.Errorf("%w: %d long lengths", ErrCorruptEntropyStream, longCount)
	}
	long := make([]int, longCount)
	for i := range long {
		r := a
		if i&1 != 0 {
			r = b
		}
		v, ok := r.readLength()
		if !ok {
			return nil, nil, fmt.Errorf("%w: long length escape", ErrCorruptEntropyStream)
		}
		long[i] = int(v)
	}

	if a.pos() != b.pos() {
		return nil, nil, fmt.Errorf("%w: offset streams end at %d and %d", ErrCorruptEntropyStream, a.pos(), b.pos())
	}

	lens := make([]int, len(packedLens))
	li := 0
	for i, v := range packedLens {
		l := int(v)
		if l == 255 {
			if li >= len(long) {
				return nil, nil, fmt.Errorf("%w: long lengths exhausted", ErrCorruptEntropyStream)
			}
			l = long[li] + 255
			li++
		}
		lens[i] = l + 3
	}
	if li != len(long) {
		return nil, nil, fmt.Errorf("%w: %d long lengths unused", ErrCorruptEntropyStream, len(long)-li)
	}

	return offs, lens, nil
}
