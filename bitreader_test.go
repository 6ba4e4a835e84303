// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReaderForward(t *testing.T) {
	br := newBitReader([]byte{0xA5, 0x3C, 0xFF}, 0, 3)

	assert.Equal(t, uint32(0xA), br.readBitsNoRefill(4))
	assert.Equal(t, uint32(0x5), br.readBitsNoRefill(4))
	assert.Equal(t, uint32(0), br.readBitNoRefill())
	assert.Equal(t, 2, br.pos())
	assert.Equal(t, uint32(0x3C&0x7F), br.readBitsNoRefill(7))
	assert.Equal(t, 2, br.pos())
	assert.Equal(t, uint32(0), br.readBitsNoRefillZero(0))
}

func TestBitReaderBackward(t *testing.T) {
	br := newBackReader([]byte{0x0F, 0x80}, 0, 2)

	assert.Equal(t, uint32(1), br.readBit())
	assert.Equal(t, 1, br.pos())
	assert.Equal(t, uint32(0), br.readBitsNoRefill(7))
	assert.Equal(t, uint32(0x0F), br.readBitsNoRefill(8))
	assert.Equal(t, 0, br.pos())
}

func TestBitReaderZeroPadding(t *testing.T) {
	src := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	br := newBitReader(src, 1, 2)
	assert.Equal(t, uint32(0xFF00), br.readBitsNoRefill(16))

	back := newBackReader(src, 1, 2)
	assert.Equal(t, uint32(0xFF00), back.readBitsNoRefill(16))
}

func TestBitReaderCodes(t *testing.T) {
	w := &msbWriter{}
	for _, r := range []int{1, 2, 7, 200, 510} {
		writeGammaRun(w, r)
	}
	for _, v := range []int{0, 1, 63, 64, 5000, 130000} {
		x := uint32(v + 64)
		n := bits.Len32(x)
		w.zeros(n - 7)
		w.write(x, n)
	}
	for _, d := range []int{8, 9, 300, 65536, 1 << 20} {
		v := uint32(d + 248)
		u := v >> 4
		n := bits.Len32(u) - 1
		w.write(u-1<<uint(n), n)
	}
	src := w.buf

	br := newBitReader(src, 0, len(src))
	for _, want := range []int{1, 2, 7, 200, 510} {
		br.refill()
		got, ok := br.readGamma()
		require.True(t, ok)
		assert.Equal(t, uint32(want), got)
	}
	br.refill()
	for _, want := range []int{0, 1, 63, 64, 5000, 130000} {
		got, ok := br.readLength()
		require.True(t, ok)
		assert.Equal(t, uint32(want), got)
	}
	for _, want := range []int{8, 9, 300, 65536, 1 << 20} {
		v := uint32(want + 248)
		sym := uint32(bits.Len32(v>>4)-5)<<4 | v&0xF
		assert.Equal(t, uint32(want), br.readDistance(sym))
	}
	assert.Equal(t, len(src), br.pos())
}

func TestBitReaderLongDistance(t *testing.T) {
	// Symbols >= 0xF0 carry 12 more low bits after the variable part.
	w := &msbWriter{}
	w.write(0x5, 4)
	w.write(0xABC, 12)
	br := newBitReader(w.buf, 0, len(w.buf))

	want := uint32(8322816) + (1<<4|0x5)<<12 + 0xABC
	assert.Equal(t, want, br.readDistance(0xF0))
}

func TestBitReaderLengthEscape(t *testing.T) {
	br := newBitReader([]byte{0x00, 0x00, 0x01}, 0, 3)
	_, ok := br.readLength()
	assert.False(t, ok)

	br = newBitReader([]byte{0x00, 0x80}, 0, 2)
	_, ok = br.readGamma()
	assert.False(t, ok)
}

func TestBitReaderFluff(t *testing.T) {
	for _, num := range []int{1, 2, 3, 17, 100, 128, 200, 255} {
		x := 2 * min(257-num, num)
		for fluff := 0; fluff < x; fluff++ {
			w := &msbWriter{}
			y := bits.Len32(uint32(x - 1))
			z := 1<<uint(y) - x
			if fluff < z {
				w.write(uint32(fluff), y-1)
			} else {
				w.write(uint32(fluff+z), y)
			}
			w.write(1, 1)

			br := newBitReader(w.buf, 0, len(w.buf))
			require.Equal(t, fluff, br.readFluff(num), "num %d", num)
			require.Equal(t, uint32(1), br.readBitNoRefill(), "num %d fluff %d", num, fluff)
		}
	}

	br := newBitReader([]byte{0xFF}, 0, 1)
	assert.Equal(t, 0, br.readFluff(256))
	assert.Equal(t, uint32(1), br.readBitNoRefill())
}

func TestBitReaderSplitResume(t *testing.T) {
	src := []byte{0b1011_0110, 0b0101_1100, 0xF0}
	br := newBitReader(src, 0, len(src))
	br.readBitsNoRefill(5)

	bp := br.split()
	assert.Equal(t, bytePos{p: 0, bitpos: 5}, bp)

	vals := make([]uint8, 2)
	require.NoError(t, decodeGolombRiceLengths(src, len(src), &bp, vals))
	// The next two bits are ones: two zero-length unary values.
	assert.Equal(t, []uint8{0, 0}, vals)
	assert.Equal(t, bytePos{p: 0, bitpos: 7}, bp)

	br.resume(bp)
	assert.Equal(t, uint32(0), br.readBitNoRefill())
	assert.Equal(t, uint32(0b0101_1100), br.readBitsNoRefill(8))
}

func TestGolombRiceLengths(t *testing.T) {
	w := &msbWriter{}
	want := []uint8{0, 3, 1, 9, 0}
	for _, v := range want {
		w.zeros(int(v))
		w.write(1, 1)
	}
	// Two forced bits per value follow the unary part.
	low := []uint8{1, 2, 3, 0, 2}
	for _, v := range low {
		w.write(uint32(v), 2)
	}

	bp := bytePos{}
	got := make([]uint8, len(want))
	require.NoError(t, decodeGolombRiceLengths(w.buf, len(w.buf), &bp, got))
	assert.Equal(t, want, got)

	require.NoError(t, decodeGolombRiceBits(w.buf, len(w.buf), &bp, got, 2))
	for i := range want {
		assert.Equal(t, want[i]<<2|low[i], got[i])
	}

	// 256 zero bits overflow a length.
	zeros := make([]byte, 40)
	bp = bytePos{}
	assert.ErrorIs(t, decodeGolombRiceLengths(zeros, len(zeros), &bp, got[:1]), ErrCorruptEntropyStream)

	bp = bytePos{}
	assert.ErrorIs(t, decodeGolombRiceLengths(w.buf, 1, &bp, got), ErrCorruptEntropyStream)
}
