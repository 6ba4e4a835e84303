// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// decodeHuffman decodes a Huffman block. The 3-stream form splits the
// payload once; the 6-stream form is two 3-stream halves of the output.
func decodeHuffman(payload, dst []byte, six bool) error {
	br := newBitReader(payload, 0, len(payload))
	t := newCodeTable()

	numSyms, err := readCodeLengths(br, t)
	if err != nil {
		return err
	}
	if numSyms < 1 {
		return fmt.Errorf("%w: empty huffman alphabet", ErrCorruptEntropyStream)
	}

	p := br.p - (24-br.bitpos)>>3
	if p > len(payload) {
		return fmt.Errorf("%w: huffman table runs past block", ErrTruncatedInput)
	}

	if numSyms == 1 {
		for i := range dst {
			dst[i] = t.syms[0]
		}
		if p != len(payload) {
			return fmt.Errorf("%w: %d bytes after single-symbol table", ErrCorruptEntropyStream, len(payload)-p)
		}

		return nil
	}

	lut, err := makeLUT(t)
	if err != nil {
		return err
	}

	src := payload[p:]
	if !six {
		if len(src) < 3 {
			return fmt.Errorf("%w: huffman split header", ErrTruncatedInput)
		}
		mid := int(le16(src, 0))
		src = src[2:]
		if mid > len(src) {
			return fmt.Errorf("%w: huffman split %d past block", ErrCorruptEntropyStream, mid)
		}

		return decodeHuffmanStreams(lut, src, mid, dst)
	}

	if len(src) < 6 {
		return fmt.Errorf("%w: huffman split header", ErrTruncatedInput)
	}
	half := (len(dst) + 1) >> 1
	splitMid := int(le24(src, 0))
	if splitMid > len(src)-3 {
		return fmt.Errorf("%w: huffman split %d past block", ErrCorruptEntropyStream, splitMid)
	}
	mid := 3 + splitMid
	splitLeft := int(le16(src, 3))
	if mid-5 < splitLeft+2 || len(src)-mid < 3 {
		return fmt.Errorf("%w: huffman left split %d", ErrCorruptEntropyStream, splitLeft)
	}
	splitRight := int(le16(src, mid))
	if len(src)-(mid+2) < splitRight+2 {
		return fmt.Errorf("%w: huffman right split %d", ErrCorruptEntropyStream, splitRight)
	}

	if err := decodeHuffmanStreams(lut, src[5:mid], splitLeft, dst[:half]); err != nil {
		return err
	}

	return decodeHuffmanStreams(lut, src[mid+2:], splitRight, dst[half:])
}

// decodeHuffmanStreams decodes three interleaved bit streams into dst:
// src[:mid] forward, src[mid:] backward from the end, and src[mid:] forward.
// Symbols are emitted round robin; the streams must meet exactly.
func decodeHuffmanStreams(lut *huffLUT, src []byte, mid int, dst []byte) error {
	var (
		a, aBits, aPos = 0, uint32(0), 0
		e, eBits, ePos = len(src), uint32(0), 0
		m, mBits, mPos = mid, uint32(0), 0
	)

	for d := 0; d < len(dst); {
		switch {
		case m-a >= 2:
			aBits |= (uint32(src[a]) | uint32(src[a+1])<<8) << uint(aPos)
		case m-a == 1:
			aBits |= uint32(src[a]) << uint(aPos)
		}
		k := aBits & (huffLUTSize - 1)
		n := int(lut.bits2len[k])
		dst[d] = lut.bits2sym[k]
		d++
		aPos -= n
		aBits >>= uint(n)
		a += (7 - aPos) >> 3
		aPos &= 7

		if d < len(dst) {
			switch {
			case e-m >= 2:
				eBits |= (uint32(src[e-1]) | uint32(src[e-2])<<8) << uint(ePos)
				mBits |= (uint32(src[m]) | uint32(src[m+1])<<8) << uint(mPos)
			case e-m == 1:
				eBits |= uint32(src[m]) << uint(ePos)
				mBits |= uint32(src[m]) << uint(mPos)
			}

			k = eBits & (huffLUTSize - 1)
			n = int(lut.bits2len[k])
			dst[d] = lut.bits2sym[k]
			d++
			ePos -= n
			eBits >>= uint(n)
			e -= (7 - ePos) >> 3
			ePos &= 7

			if d < len(dst) {
				k = mBits & (huffLUTSize - 1)
				n = int(lut.bits2len[k])
				dst[d] = lut.bits2sym[k]
				d++
				mPos -= n
				mBits >>= uint(n)
				m += (7 - mPos) >> 3
				mPos &= 7
			}
		}

		if a > m || e < m {
			return fmt.Errorf("%w: huffman streams overlap", ErrCorruptEntropyStream)
		}
	}

	if a != mid || e != m {
		return fmt.Errorf("%w: huffman streams end unaligned", ErrCorruptEntropyStream)
	}

	return nil
}
