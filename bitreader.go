// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "math/bits"

// bitReader reads an MSB-first bit stream through a 32-bit register.
// Valid bits sit at the top of bits; 24-bitpos of them are loaded.
// Bytes outside [lo, hi) read as zero, so a reader never touches memory
// outside its slice; callers detect overrun by comparing pos() with the range.
type bitReader struct {
	src      []byte
	p        int  // next byte to load (forward) or one past it (backward)
	lo, hi   int  // readable byte range
	bits     uint32
	bitpos   int
	backward bool // load bytes from hi down to lo
}

// newBitReader returns a forward reader over src[lo:hi].
func newBitReader(src []byte, lo, hi int) *bitReader {
	br := &bitReader{src: src, p: lo, lo: lo, hi: hi, bitpos: 24}
	br.refill()

	return br
}

// newBackReader returns a reader that consumes src[lo:hi] from the end towards lo.
func newBackReader(src []byte, lo, hi int) *bitReader {
	br := &bitReader{src: src, p: hi, lo: lo, hi: hi, bitpos: 24, backward: true}
	br.refill()

	return br
}

// byteAt returns src[i] or zero outside the readable range.
func (br *bitReader) byteAt(i int) uint32 {
	if i < br.lo || i >= br.hi {
		return 0
	}

	return uint32(br.src[i])
}

// refill tops the register up to at least 24 valid bits.
func (br *bitReader) refill() {
	if br.backward {
		for br.bitpos > 0 {
			br.p--
			br.bits |= br.byteAt(br.p) << uint(br.bitpos)
			br.bitpos -= 8
		}

		return
	}

	for br.bitpos > 0 {
		br.bits |= br.byteAt(br.p) << uint(br.bitpos)
		br.bitpos -= 8
		br.p++
	}
}

// pos returns the byte position just past the last consumed bit (forward)
// or at the last consumed bit (backward).
func (br *bitReader) pos() int {
	if br.backward {
		return br.p + (24-br.bitpos)>>3
	}

	return br.p - (24-br.bitpos)>>3
}

// readBitNoRefill consumes one bit.
func (br *bitReader) readBitNoRefill() uint32 {
	r := br.bits >> 31
	br.bits <<= 1
	br.bitpos++

	return r
}

// readBit refills and consumes one bit.
func (br *bitReader) readBit() uint32 {
	br.refill()

	return br.readBitNoRefill()
}

// readBitsNoRefill consumes n bits, 1 <= n <= 24.
func (br *bitReader) readBitsNoRefill(n int) uint32 {
	r := br.bits >> uint(32-n)
	br.bits <<= uint(n)
	br.bitpos += n

	return r
}

// readBitsNoRefillZero consumes n bits and allows n == 0.
func (br *bitReader) readBitsNoRefillZero(n int) uint32 {
	r := br.bits >> 1 >> uint(31-n)
	br.bits <<= uint(n)
	br.bitpos += n

	return r
}

// readMoreThan24Bits consumes n bits, 0 <= n <= 32.
func (br *bitReader) readMoreThan24Bits(n int) uint32 {
	var rv uint32
	if n <= 24 {
		rv = br.readBitsNoRefillZero(n)
	} else {
		rv = br.readBitsNoRefill(24) << uint(n-24)
		br.refill()
		rv += br.readBitsNoRefill(n - 24)
	}
	br.refill()

	return rv
}

// leadingZeros returns the count of leading zero bits in the register.
func (br *bitReader) leadingZeros() int {
	return bits.LeadingZeros32(br.bits)
}

// readGamma reads an Elias-gamma style value: z zero bits then z+1 value bits.
// Used for run lengths in the old Huffman length table.
func (br *bitReader) readGamma() (uint32, bool) {
	if br.bits&0xFF000000 == 0 {
		return 0, false
	}
	n := 2 * (br.leadingZeros() + 1)

	return br.readBitsNoRefill(n) - 2 + 1, true
}

// readDistance decodes a match distance for the packed offset symbol v.
// Small symbols carry 4 low bits inline; symbols >= 0xF0 add 12 extra bits.
func (br *bitReader) readDistance(v uint32) uint32 {
	var rv uint32
	if v < 0xF0 {
		n := int(v>>4) + 4
		w := bits.RotateLeft32(br.bits|1, n)
		br.bitpos += n
		m := uint32(2)<<uint(n) - 1
		br.bits = w &^ m
		rv = (w&m)<<4 + v&0xF - 248
	} else {
		n := int(v-0xF0) + 4
		w := bits.RotateLeft32(br.bits|1, n)
		br.bitpos += n
		m := uint32(2)<<uint(n) - 1
		br.bits = w &^ m
		rv = 8322816 + (w&m)<<12
		br.refill()
		rv += br.bits >> 20
		br.bitpos += 12
		br.bits <<= 12
	}
	br.refill()

	return rv
}

// readLength decodes one bit-coded long length: up to 12 leading zeros, then
// that many plus 7 bits including the marker, biased by 64.
func (br *bitReader) readLength() (uint32, bool) {
	n := br.leadingZeros()
	if n > 12 {
		return 0, false
	}
	br.bitpos += n
	br.bits <<= uint(n)
	br.refill()
	n += 7
	br.bitpos += n
	rv := br.bits>>uint(32-n) - 64
	br.bits <<= uint(n)
	br.refill()

	return rv, true
}

// readFluff reads the truncated-binary count of range entries that follow
// a symbol-length table with numSymbols entries.
func (br *bitReader) readFluff(numSymbols int) int {
	if numSymbols == 256 {
		return 0
	}

	x := 257 - numSymbols
	if x > numSymbols {
		x = numSymbols
	}
	x *= 2

	y := bits.Len32(uint32(x - 1))
	v := br.bits >> uint(32-y)
	z := uint32(1)<<uint(y) - uint32(x)

	if v>>1 >= z {
		br.bits <<= uint(y)
		br.bitpos += y

		return int(v - z)
	}

	br.bits <<= uint(y - 1)
	br.bitpos += y - 1

	return int(v >> 1)
}

// bytePos is a byte-granular cursor handed between the register reader and
// the Golomb-Rice decoders: p indexes the current byte, bitpos bits of it are used.
type bytePos struct {
	p      int
	bitpos int
}

// split converts the reader position into a byte cursor.
func (br *bitReader) split() bytePos {
	return bytePos{
		p:      br.p - (24-br.bitpos+7)>>3,
		bitpos: (br.bitpos - 24) & 7,
	}
}

// resume restarts the register reader at a byte cursor.
func (br *bitReader) resume(bp bytePos) {
	br.bitpos = 24
	br.p = bp.p
	br.bits = 0
	br.refill()
	br.bits <<= uint(bp.bitpos)
	br.bitpos += bp.bitpos
}
