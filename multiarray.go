// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"fmt"
	"math/bits"
)

// scratchSize bounds the intermediate arrays a multi-array block may decode.
const scratchSize = 0x6C000

// decodeRecursive decodes a block made of n concatenated entropy blocks, or
// a multi-array block when the high bit of the first byte is set.
func decodeRecursive(payload, dst []byte, depth int) error {
	if len(payload) < 6 {
		return fmt.Errorf("%w: recursive block of %d bytes", ErrCorruptEntropyStream, len(payload))
	}
	n := int(payload[0] & 0x7F)
	if n < 2 {
		return fmt.Errorf("%w: recursive block with %d parts", ErrCorruptEntropyStream, n)
	}

	if payload[0]&0x80 != 0 {
		written, used, err := decodeMultiArray(payload, dst, depth)
		if err != nil {
			return err
		}
		if written != len(dst) {
			return fmt.Errorf("%w: multi-array produced %d of %d bytes", ErrCorruptEntropyStream, written, len(dst))
		}
		if used != len(payload) {
			return fmt.Errorf("%w: multi-array used %d of %d bytes", ErrCorruptEntropyStream, used, len(payload))
		}

		return nil
	}

	src, d := 1, 0
	for ; n > 0; n-- {
		written, used, err := decodeBytesInto(payload[src:], dst[d:], depth)
		if err != nil {
			return err
		}
		d += written
		src += used
	}
	if d != len(dst) {
		return fmt.Errorf("%w: recursive parts produced %d of %d bytes", ErrCorruptEntropyStream, d, len(dst))
	}
	if src != len(payload) {
		return fmt.Errorf("%w: recursive parts used %d of %d bytes", ErrCorruptEntropyStream, src, len(payload))
	}

	return nil
}

// decodeMultiArray decodes a set of entropy arrays and then assembles the
// output from intervals of them. The interval sources and lengths are
// themselves entropy coded; the lengths use a two-ended varbits stream.
// It returns bytes written to dst and bytes consumed from src.
func decodeMultiArray(src, dst []byte, depth int) (int, int, error) {
	if len(src) < 4 {
		return 0, 0, fmt.Errorf("%w: multi-array header", ErrTruncatedInput)
	}

	numArrays := int(src[0])
	if numArrays&0x80 == 0 {
		return 0, 0, fmt.Errorf("%w: multi-array marker missing", ErrCorruptEntropyStream)
	}
	numArrays &= 0x3F
	p := 1

	if numArrays == 0 {
		written, used, err := decodeBytesInto(src[p:], dst, depth)
		if err != nil {
			return 0, 0, err
		}

		return written, p + used, nil
	}

	arrays := make([][]byte, numArrays)
	total := 0
	for i := range arrays {
		arr, used, err := decodeBytes(src[p:], scratchSize-total, depth)
		if err != nil {
			return 0, 0, err
		}
		arrays[i] = arr
		total += len(arr)
		p += used
	}

	if len(src)-p < 3 {
		return 0, 0, fmt.Errorf("%w: multi-array interval header", ErrTruncatedInput)
	}
	q := int(le16(src, p))
	p += 2

	h, err := parseEntropyHeader(src[p:], total)
	if err != nil {
		return 0, 0, err
	}
	numIndexes := h.dstSize
	numLens := numIndexes - 1
	if numLens < 1 {
		return 0, 0, fmt.Errorf("%w: multi-array with %d intervals", ErrCorruptEntropyStream, numIndexes)
	}

	var indexes, lenLog2 []byte
	if q&0x8000 != 0 {
		packed, used, err := decodeBytes(src[p:], numIndexes, depth)
		if err != nil {
			return 0, 0, err
		}
		if len(packed) != numIndexes {
			return 0, 0, fmt.Errorf("%w: interval stream of %d, want %d", ErrCorruptEntropyStream, len(packed), numIndexes)
		}
		p += used
		indexes = make([]byte, numIndexes)
		lenLog2 = make([]byte, numIndexes)
		for i, t := range packed {
			lenLog2[i] = t >> 4
			indexes[i] = t & 0xF
		}
		numLens = numIndexes
	} else {
		var used int
		indexes, used, err = decodeBytes(src[p:], numIndexes, depth)
		if err != nil {
			return 0, 0, err
		}
		if len(indexes) != numIndexes {
			return 0, 0, fmt.Errorf("%w: index stream of %d, want %d", ErrCorruptEntropyStream, len(indexes), numIndexes)
		}
		p += used

		lenLog2, used, err = decodeBytes(src[p:], numLens, depth)
		if err != nil {
			return 0, 0, err
		}
		if len(lenLog2) != numLens {
			return 0, 0, fmt.Errorf("%w: length stream of %d, want %d", ErrCorruptEntropyStream, len(lenLog2), numLens)
		}
		p += used
		for _, v := range lenLog2 {
			if v > 16 {
				return 0, 0, fmt.Errorf("%w: interval length of 2^%d", ErrCorruptEntropyStream, v)
			}
		}
	}

	varbitsLen := q & 0x3FFF
	if len(src)-p < varbitsLen {
		return 0, 0, fmt.Errorf("%w: varbits stream of %d", ErrTruncatedInput, varbitsLen)
	}
	end := p + varbitsLen
	lens := readVarbits(src, p, end, lenLog2[:numLens])

	if indexes[numIndexes-1] != 0 {
		return 0, 0, fmt.Errorf("%w: interval list not terminated", ErrCorruptEntropyStream)
	}

	d, indi, leni := 0, 0, 0
	for {
		source := int(indexes[indi])
		indi++
		if source == 0 {
			break
		}
		if source > numArrays {
			return 0, 0, fmt.Errorf("%w: interval source %d of %d", ErrCorruptEntropyStream, source, numArrays)
		}
		if leni >= numLens {
			return 0, 0, fmt.Errorf("%w: more intervals than lengths", ErrCorruptEntropyStream)
		}
		n := int(lens[leni])
		leni++
		arr := arrays[source-1]
		if n > len(arr) || n > len(dst)-d {
			return 0, 0, fmt.Errorf("%w: interval of %d from array %d", ErrLengthOverflow, n, source)
		}
		d += copy(dst[d:], arr[:n])
		arrays[source-1] = arr[n:]
	}
	if q&0x8000 != 0 {
		leni++
	}

	if indi != numIndexes || leni != numLens {
		return 0, 0, fmt.Errorf("%w: interval lists not fully used", ErrCorruptEntropyStream)
	}
	for i, arr := range arrays {
		if len(arr) != 0 {
			return 0, 0, fmt.Errorf("%w: array %d has %d bytes left", ErrCorruptEntropyStream, i+1, len(arr))
		}
	}

	return d, end, nil
}

// readVarbits reads one value per width in widths, alternating between a
// stream read forward from lo and one read backward from hi. Each value
// carries an implicit leading one bit.
func readVarbits(src []byte, lo, hi int, widths []byte) []uint32 {
	byteAt := func(i int) uint32 {
		if i < 0 || i >= len(src) {
			return 0
		}

		return uint32(src[i])
	}

	out := make([]uint32, len(widths))
	f, fBits, fPos := lo, uint32(0), 24
	b, bBits, bPos := hi, uint32(0), 24

	take := func(reg *uint32, n int) uint32 {
		m := uint32(2)<<uint(n) - 1
		*reg = bits.RotateLeft32(*reg|1, n)
		v := *reg & m
		*reg &^= m

		return v
	}

	i := 0
	for ; i+2 <= len(widths); i += 2 {
		be := byteAt(f)<<24 | byteAt(f+1)<<16 | byteAt(f+2)<<8 | byteAt(f+3)
		fBits |= be >> uint(24-fPos)
		f += (fPos + 7) >> 3

		le := byteAt(b-1)<<24 | byteAt(b-2)<<16 | byteAt(b-3)<<8 | byteAt(b-4)
		bBits |= le >> uint(24-bPos)
		b -= (bPos + 7) >> 3

		nf, nb := int(widths[i]), int(widths[i+1])
		fPos += nf - 8*((fPos+7)>>3)
		bPos += nb - 8*((bPos+7)>>3)
		out[i] = take(&fBits, nf)
		out[i+1] = take(&bBits, nb)
	}

	if i < len(widths) {
		be := byteAt(f)<<24 | byteAt(f+1)<<16 | byteAt(f+2)<<8 | byteAt(f+3)
		fBits |= be >> uint(24-fPos)
		out[i] = take(&fBits, int(widths[i]))
	}

	return out
}
