// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"fmt"
	"math/bits"
)

// codePrefixOrg holds the first index in the symbol array for each code length.
// Symbols with equal length are stored contiguously, so canonical codes are
// assigned by (length, order of appearance).
var codePrefixOrg = [huffMaxCodeLen + 1]uint32{0x0, 0x0, 0x2, 0x6, 0xE, 0x1E, 0x3E, 0x7E, 0xFE, 0x1FE, 0x2FE, 0x3FE}

// huffLUT maps the next 11 stream bits, least significant first, to a code
// length and symbol.
type huffLUT struct {
	bits2len [huffLUTSize]uint8
	bits2sym [huffLUTSize]uint8
}

// huffRange is a run of consecutive symbols present in the alphabet.
type huffRange struct {
	symbol int
	num    int
}

// codeTable collects symbols bucketed by code length.
type codeTable struct {
	syms   [huffSymCap]uint8
	prefix [huffMaxCodeLen + 1]uint32
}

func newCodeTable() *codeTable {
	t := &codeTable{}
	t.prefix = codePrefixOrg

	return t
}

// add appends sym to the bucket of codes with length codeLen (1..11).
func (t *codeTable) add(codeLen int, sym uint8) {
	t.syms[t.prefix[codeLen]] = sym
	t.prefix[codeLen]++
}

// readCodeLengths reads a Huffman length table in either the old or new
// encoding and returns the number of symbols.
func readCodeLengths(br *bitReader, t *codeTable) (int, error) {
	if br.readBitNoRefill() == 0 {
		return readCodeLengthsOld(br, t)
	}
	if br.readBitNoRefill() == 0 {
		return readCodeLengthsNew(br, t)
	}

	return 0, fmt.Errorf("%w: reserved huffman table format", ErrCorruptEntropyStream)
}

// readCodeLengthsOld reads either a sparse symbol list or an adaptive,
// gamma-coded table of zero runs and code lengths.
func readCodeLengthsOld(br *bitReader, t *codeTable) (int, error) {
	if br.readBitNoRefill() == 0 {
		// Sparse: explicit (symbol, length) pairs.
		numSymbols := int(br.readBitsNoRefill(8))
		if numSymbols == 0 {
			return 0, fmt.Errorf("%w: empty sparse huffman table", ErrCorruptEntropyStream)
		}
		if numSymbols == 1 {
			t.syms[0] = uint8(br.readBitsNoRefill(8))

			return 1, nil
		}

		codeLenBits := int(br.readBitsNoRefill(3))
		if codeLenBits > 4 {
			return 0, fmt.Errorf("%w: sparse code length width %d", ErrCorruptEntropyStream, codeLenBits)
		}
		for i := 0; i < numSymbols; i++ {
			br.refill()
			sym := uint8(br.readBitsNoRefill(8))
			codeLen := int(br.readBitsNoRefillZero(codeLenBits)) + 1
			if codeLen > huffMaxCodeLen {
				return 0, fmt.Errorf("%w: code length %d", ErrCorruptEntropyStream, codeLen)
			}
			t.add(codeLen, sym)
		}

		return numSymbols, nil
	}

	forcedBits := int(br.readBitsNoRefill(2))
	thres := uint32(1) << uint(31-(20>>uint(forcedBits)))
	avgBitsX4 := 32
	sym, numSymbols := 0, 0

	skipZeros := br.readBit() == 1
	for {
		if !skipZeros {
			run, ok := br.readGamma()
			if !ok {
				return 0, fmt.Errorf("%w: zero run too long", ErrCorruptEntropyStream)
			}
			sym += int(run)
			if sym >= 256 {
				break
			}
		}
		skipZeros = false

		br.refill()
		n, ok := br.readGamma()
		if !ok {
			return 0, fmt.Errorf("%w: symbol run too long", ErrCorruptEntropyStream)
		}
		if sym+int(n) > 256 {
			return 0, fmt.Errorf("%w: symbol run past alphabet", ErrCorruptEntropyStream)
		}
		br.refill()
		numSymbols += int(n)

		for ; n > 0; n-- {
			if br.bits < thres {
				return 0, fmt.Errorf("%w: code length escape too long", ErrCorruptEntropyStream)
			}
			lz := br.leadingZeros()
			v := int(br.readBitsNoRefill(lz+forcedBits+1)) + (lz-1)<<uint(forcedBits)
			codeLen := (-(v & 1) ^ (v >> 1)) + (avgBitsX4+2)>>2
			if codeLen < 1 || codeLen > huffMaxCodeLen {
				return 0, fmt.Errorf("%w: code length %d", ErrCorruptEntropyStream, codeLen)
			}
			avgBitsX4 = codeLen + (3*avgBitsX4+2)>>2
			br.refill()
			t.add(codeLen, uint8(sym))
			sym++
		}

		if sym == 256 {
			break
		}
	}

	if sym != 256 || numSymbols < 2 {
		return 0, fmt.Errorf("%w: huffman table covers %d symbols", ErrCorruptEntropyStream, numSymbols)
	}

	return numSymbols, nil
}

// readCodeLengthsNew reads Golomb-Rice coded length deltas followed by the
// ranges of symbols they apply to.
func readCodeLengthsNew(br *bitReader, t *codeTable) (int, error) {
	forcedBits := int(br.readBitsNoRefill(2))
	numSymbols := int(br.readBitsNoRefill(8)) + 1
	fluff := br.readFluff(numSymbols)

	var codeLen [512 + 16]uint8
	bp := br.split()
	if err := decodeGolombRiceLengths(br.src, br.hi, &bp, codeLen[:numSymbols+fluff]); err != nil {
		return 0, err
	}
	if err := decodeGolombRiceBits(br.src, br.hi, &bp, codeLen[:numSymbols], forcedBits); err != nil {
		return 0, err
	}
	br.resume(bp)

	running := uint32(0x1E)
	for i := 0; i < numSymbols; i++ {
		v := int32(codeLen[i])
		v = -(v & 1) ^ (v >> 1)
		cl := uint8(uint32(v) + running>>2 + 1)
		if cl < 1 || cl > huffMaxCodeLen {
			return 0, fmt.Errorf("%w: code length %d", ErrCorruptEntropyStream, cl)
		}
		codeLen[i] = cl
		running += uint32(v)
	}

	ranges, err := convertToRanges(br, numSymbols, fluff, codeLen[numSymbols:])
	if err != nil {
		return 0, err
	}

	cp := 0
	for _, r := range ranges {
		sym := r.symbol
		for n := r.num; n > 0; n-- {
			t.add(int(codeLen[cp]), uint8(sym))
			cp++
			sym++
		}
	}

	return numSymbols, nil
}

// convertToRanges reads the gaps and run lengths that place numSymbols
// symbols in the 256-entry alphabet. symlen holds the Golomb-Rice widths.
func convertToRanges(br *bitReader, numSymbols, fluff int, symlen []uint8) ([]huffRange, error) {
	numRanges := fluff >> 1
	symIdx := 0
	si := 0

	if fluff&1 != 0 {
		br.refill()
		v := int(symlen[si])
		si++
		if v >= 8 {
			return nil, fmt.Errorf("%w: range gap width %d", ErrCorruptEntropyStream, v)
		}
		symIdx = int(br.readBitsNoRefill(v+1)) + 1<<uint(v+1) - 1
	}

	ranges := make([]huffRange, 0, numRanges+1)
	symsUsed := 0
	for i := 0; i < numRanges; i++ {
		br.refill()
		v := int(symlen[si])
		if v >= 9 {
			return nil, fmt.Errorf("%w: range length width %d", ErrCorruptEntropyStream, v)
		}
		num := int(br.readBitsNoRefillZero(v)) + 1<<uint(v)
		v = int(symlen[si+1])
		if v >= 8 {
			return nil, fmt.Errorf("%w: range gap width %d", ErrCorruptEntropyStream, v)
		}
		space := int(br.readBitsNoRefill(v+1)) + 1<<uint(v+1) - 1
		ranges = append(ranges, huffRange{symbol: symIdx, num: num})
		symsUsed += num
		symIdx += num + space
		si += 2
	}

	if symIdx >= 256 || symsUsed >= numSymbols || symIdx+numSymbols-symsUsed > 256 {
		return nil, fmt.Errorf("%w: symbol ranges exceed alphabet", ErrCorruptEntropyStream)
	}

	return append(ranges, huffRange{symbol: symIdx, num: numSymbols - symsUsed}), nil
}

// decodeGolombRiceLengths reads len(dst) unary values (zero bits closed by a
// one bit), MSB first, starting at bp.
func decodeGolombRiceLengths(src []byte, hi int, bp *bytePos, dst []uint8) error {
	p, bit := bp.p, bp.bitpos
	count := 0
	for i := 0; i < len(dst); {
		if p < 0 || p >= hi {
			return fmt.Errorf("%w: golomb-rice lengths run past input", ErrCorruptEntropyStream)
		}
		b := src[p] >> uint(7-bit) & 1
		bit++
		if bit == 8 {
			bit = 0
			p++
		}
		if b == 0 {
			count++
			if count > 0xFF {
				return fmt.Errorf("%w: golomb-rice value too large", ErrCorruptEntropyStream)
			}

			continue
		}
		dst[i] = uint8(count)
		count = 0
		i++
	}

	bp.p, bp.bitpos = p, bit

	return nil
}

// decodeGolombRiceBits appends bitcount low bits, MSB first, to every entry of dst.
func decodeGolombRiceBits(src []byte, hi int, bp *bytePos, dst []uint8, bitcount int) error {
	if bitcount == 0 {
		return nil
	}

	required := bp.bitpos + bitcount*len(dst)
	if bp.p < 0 || (required+7)>>3 > hi-bp.p {
		return fmt.Errorf("%w: golomb-rice bits run past input", ErrCorruptEntropyStream)
	}

	p, bit := bp.p, bp.bitpos
	for i := range dst {
		v := dst[i]
		for k := 0; k < bitcount; k++ {
			v = v<<1 | src[p]>>uint(7-bit)&1
			bit++
			if bit == 8 {
				bit = 0
				p++
			}
		}
		dst[i] = v
	}

	bp.p += required >> 3
	bp.bitpos = required & 7

	return nil
}

// makeLUT fills the decode table from the bucketed symbols. It fails unless
// the code lengths describe a complete prefix code.
func makeLUT(t *codeTable) (*huffLUT, error) {
	var fwd huffLUT
	slot := uint32(0)

	for i := uint32(1); i < huffMaxCodeLen; i++ {
		start := codePrefixOrg[i]
		count := t.prefix[i] - start
		if count == 0 {
			continue
		}
		step := uint32(1) << (huffMaxCodeLen - i)
		total := count << (huffMaxCodeLen - i)
		if slot+total > huffLUTSize {
			return nil, fmt.Errorf("%w: code lengths oversubscribed", ErrCorruptEntropyStream)
		}
		for k := slot; k < slot+total; k++ {
			fwd.bits2len[k] = uint8(i)
		}
		for j := uint32(0); j < count; j++ {
			sym := t.syms[start+j]
			base := slot + j*step
			for k := base; k < base+step; k++ {
				fwd.bits2sym[k] = sym
			}
		}
		slot += total
	}

	if count := t.prefix[huffMaxCodeLen] - codePrefixOrg[huffMaxCodeLen]; count != 0 {
		if slot+count > huffLUTSize {
			return nil, fmt.Errorf("%w: code lengths oversubscribed", ErrCorruptEntropyStream)
		}
		for j := uint32(0); j < count; j++ {
			fwd.bits2len[slot+j] = huffMaxCodeLen
			fwd.bits2sym[slot+j] = t.syms[codePrefixOrg[huffMaxCodeLen]+j]
		}
		slot += count
	}

	if slot != huffLUTSize {
		return nil, fmt.Errorf("%w: code lengths incomplete (%d of %d slots)", ErrCorruptEntropyStream, slot, huffLUTSize)
	}

	// Streams are read least significant bit first, so index by reversed code.
	rev := &huffLUT{}
	for i := 0; i < huffLUTSize; i++ {
		r := bits.Reverse16(uint16(i)) >> (16 - huffLUTBits)
		rev.bits2len[r] = fwd.bits2len[i]
		rev.bits2sym[r] = fwd.bits2sym[i]
	}

	return rev, nil
}
