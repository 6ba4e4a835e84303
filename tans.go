// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"fmt"
	"math/bits"
	"sort"
)

// tansTable is a decoded symbol weight table. Weight-1 symbols are kept apart
// because each owns a single full-width state.
type tansTable struct {
	singles  []uint8  // symbols with weight 1
	weighted []uint32 // symbol<<16 | weight, weight >= 2
}

// tansEntry is one decoder state.
type tansEntry struct {
	x      uint32 // mask for the bits read on leaving the state
	bitsX  uint32 // bit count read on leaving the state
	w      uint32 // base of the next state
	symbol uint8
}

// decodeTANS decodes a tANS block: a weight table followed by five
// interleaved states driven by a forward and a backward bit stream.
// The final five output bytes are the terminal states.
func decodeTANS(payload, dst []byte) error {
	if len(payload) < 8 || len(dst) < 5 {
		return fmt.Errorf("%w: tans block too small (%d -> %d)", ErrCorruptEntropyStream, len(payload), len(dst))
	}

	br := newBitReader(payload, 0, len(payload))
	if br.readBitNoRefill() != 0 {
		return fmt.Errorf("%w: tans reserved bit set", ErrCorruptEntropyStream)
	}
	lBits := int(br.readBitsNoRefill(2)) + 8

	tbl, err := readTANSTable(br, lBits)
	if err != nil {
		return err
	}

	src := br.p - (24-br.bitpos)>>3
	if src >= len(payload) {
		return fmt.Errorf("%w: tans table consumes block", ErrTruncatedInput)
	}

	lut, err := buildTANSLUT(tbl, lBits)
	if err != nil {
		return err
	}

	return runTANS(lut, lBits, payload, src, dst)
}

// readTANSTable reads either a Golomb-Rice coded weight table or a short
// list of explicit symbols with delta-coded weights.
func readTANSTable(br *bitReader, lBits int) (*tansTable, error) {
	l := 1 << uint(lBits)
	tbl := &tansTable{}

	br.refill()
	if br.readBitNoRefill() != 0 {
		q := int(br.readBitsNoRefill(3))
		numSymbols := int(br.readBitsNoRefill(8)) + 1
		if numSymbols < 2 {
			return nil, fmt.Errorf("%w: tans alphabet of %d", ErrCorruptEntropyStream, numSymbols)
		}
		fluff := br.readFluff(numSymbols)

		var rice [512 + 16]uint8
		bp := br.split()
		if err := decodeGolombRiceLengths(br.src, br.hi, &bp, rice[:numSymbols+fluff]); err != nil {
			return nil, err
		}
		br.resume(bp)

		ranges, err := convertToRanges(br, numSymbols, fluff, rice[numSymbols:])
		if err != nil {
			return nil, err
		}
		br.refill()

		average, sum, ri := 6, 0, 0
		for _, r := range ranges {
			symbol := r.symbol
			for n := r.num; n > 0; n-- {
				br.refill()
				nextra := q + int(rice[ri])
				ri++
				if nextra > 15 {
					return nil, fmt.Errorf("%w: tans weight width %d", ErrCorruptEntropyStream, nextra)
				}
				v := int(br.readBitsNoRefillZero(nextra)) + 1<<uint(nextra) - 1<<uint(q)
				avgDiv4 := average >> 2
				limit := 2 * avgDiv4
				if v <= limit {
					v = avgDiv4 + (-(v & 1) ^ (v >> 1))
				}
				if limit > v {
					limit = v
				}
				v++
				average += limit - avgDiv4
				if v == 1 {
					tbl.singles = append(tbl.singles, uint8(symbol))
				} else {
					tbl.weighted = append(tbl.weighted, uint32(symbol)<<16+uint32(v))
				}
				sum += v
				symbol++
			}
		}
		if sum != l {
			return nil, fmt.Errorf("%w: tans weights sum to %d, want %d", ErrCorruptEntropyStream, sum, l)
		}

		return tbl, nil
	}

	var seen [256]bool
	count := int(br.readBitsNoRefill(3)) + 1
	bitsPerSym := bits.Len32(uint32(lBits))
	maxDeltaBits := int(br.readBitsNoRefill(bitsPerSym))
	if maxDeltaBits == 0 || maxDeltaBits > lBits {
		return nil, fmt.Errorf("%w: tans delta width %d", ErrCorruptEntropyStream, maxDeltaBits)
	}

	weight, total := 0, 0
	for ; count > 0; count-- {
		br.refill()
		sym := br.readBitsNoRefill(8)
		if seen[sym] {
			return nil, fmt.Errorf("%w: tans symbol %d repeated", ErrCorruptEntropyStream, sym)
		}
		weight += int(br.readBitsNoRefill(maxDeltaBits))
		if weight == 0 {
			return nil, fmt.Errorf("%w: tans zero weight", ErrCorruptEntropyStream)
		}
		seen[sym] = true
		if weight == 1 {
			tbl.singles = append(tbl.singles, uint8(sym))
		} else {
			tbl.weighted = append(tbl.weighted, sym<<16+uint32(weight))
		}
		total += weight
	}

	br.refill()
	sym := br.readBitsNoRefill(8)
	if seen[sym] {
		return nil, fmt.Errorf("%w: tans symbol %d repeated", ErrCorruptEntropyStream, sym)
	}
	if l-total < weight || l-total <= 1 {
		return nil, fmt.Errorf("%w: tans weights leave %d for last symbol", ErrCorruptEntropyStream, l-total)
	}
	tbl.weighted = append(tbl.weighted, sym<<16+uint32(l-total))

	sort.Slice(tbl.singles, func(i, j int) bool { return tbl.singles[i] < tbl.singles[j] })
	sort.Slice(tbl.weighted, func(i, j int) bool { return tbl.weighted[i] < tbl.weighted[j] })

	return tbl, nil
}

// buildTANSLUT spreads the weighted symbols over four interleaved runs of
// the state table, followed by the weight-1 symbols.
func buildTANSLUT(tbl *tansTable, lBits int) ([]tansEntry, error) {
	l := 1 << uint(lBits)
	lut := make([]tansEntry, l)

	slotsLeft := l - len(tbl.singles)
	if slotsLeft < 0 {
		return nil, fmt.Errorf("%w: tans singles overflow table", ErrCorruptEntropyStream)
	}

	var ptr, end [4]int
	sa := slotsLeft >> 2
	rem := slotsLeft & 3
	sb := 0
	for j := 0; j < 4; j++ {
		ptr[j] = sb
		sb += sa
		if rem > j {
			sb++
		}
		end[j] = sb
	}

	for i, sym := range tbl.singles {
		lut[slotsLeft+i] = tansEntry{
			x:      uint32(l - 1),
			bitsX:  uint32(lBits),
			symbol: sym,
		}
	}

	put := func(j int, e tansEntry) error {
		if ptr[j] >= end[j] {
			return fmt.Errorf("%w: tans weights overflow table", ErrCorruptEntropyStream)
		}
		lut[ptr[j]] = e
		ptr[j]++

		return nil
	}

	weightsSum := 0
	for _, wv := range tbl.weighted {
		weight := int(wv & 0xFFFF)
		symbol := uint8(wv >> 16)

		if weight > 4 {
			symBits := bits.Len32(uint32(weight)) - 1
			z := lBits - symBits
			e := tansEntry{
				symbol: symbol,
				bitsX:  uint32(z),
				x:      uint32(1)<<uint(z) - 1,
				w:      uint32((l - 1) & (weight << uint(z))),
			}
			add := uint32(1) << uint(z)
			x := 1<<uint(symBits+1) - weight

			for j := 0; j < 4; j++ {
				y := (weight + ((weightsSum - j - 1) & 3)) >> 2
				if x >= y {
					for n := y; n > 0; n-- {
						if err := put(j, e); err != nil {
							return nil, err
						}
						e.w += add
					}
					x -= y

					continue
				}

				for n := x; n > 0; n-- {
					if err := put(j, e); err != nil {
						return nil, err
					}
					e.w += add
				}
				z--
				add >>= 1
				e.bitsX = uint32(z)
				e.w = 0
				e.x >>= 1
				for n := y - x; n > 0; n-- {
					if err := put(j, e); err != nil {
						return nil, err
					}
					e.w += add
				}
				x = weight
			}
		} else {
			mask := uint32(1)<<uint(weight) - 1
			mask <<= uint(weightsSum & 3)
			mask |= mask >> 4
			ww := weight
			for n := weight; n > 0; n-- {
				j := bits.TrailingZeros32(mask)
				mask &= mask - 1
				wb := bits.Len32(uint32(ww)) - 1
				e := tansEntry{
					symbol: symbol,
					bitsX:  uint32(lBits - wb),
					x:      uint32(1)<<uint(lBits-wb) - 1,
					w:      uint32((l - 1) & (ww << uint(lBits-wb))),
				}
				if err := put(j&3, e); err != nil {
					return nil, err
				}
				ww++
			}
		}
		weightsSum += weight
	}

	return lut, nil
}

// tansStream is one side of the tANS bit stream. Bytes outside the payload
// read as zero.
type tansStream struct {
	src    []byte
	p      int
	bits   uint32
	bitpos int
}

func (s *tansStream) byteAt(i int) uint32 {
	if i < 0 || i >= len(s.src) {
		return 0
	}

	return uint32(s.src[i])
}

// le32 returns the little-endian word at i.
func (s *tansStream) le32(i int) uint32 {
	return s.byteAt(i) | s.byteAt(i+1)<<8 | s.byteAt(i+2)<<16 | s.byteAt(i+3)<<24
}

// be32 returns the big-endian word ending just before i.
func (s *tansStream) be32(i int) uint32 {
	return s.byteAt(i-1) | s.byteAt(i-2)<<8 | s.byteAt(i-3)<<16 | s.byteAt(i-4)<<24
}

func (s *tansStream) refillForward() {
	s.bits |= s.le32(s.p) << uint(s.bitpos)
	s.p += (31 - s.bitpos) >> 3
	s.bitpos |= 24
}

func (s *tansStream) refillBackward() {
	s.bits |= s.be32(s.p) << uint(s.bitpos)
	s.p -= (31 - s.bitpos) >> 3
	s.bitpos |= 24
}

// runTANS reads the initial states at both ends of payload[src:] and decodes
// until five bytes remain, which receive the final states.
func runTANS(lut []tansEntry, lBits int, payload []byte, src int, dst []byte) error {
	mask := uint32(1)<<uint(lBits) - 1

	f := &tansStream{src: payload, p: src}
	b := &tansStream{src: payload, p: len(payload)}

	f.bits = f.le32(f.p)
	f.p += 4
	b.bits = b.be32(b.p)
	b.p -= 4
	f.bitpos, b.bitpos = 32, 32

	var state [5]uint32
	state[0] = f.bits & mask
	state[1] = b.bits & mask
	f.bits >>= uint(lBits)
	f.bitpos -= lBits
	b.bits >>= uint(lBits)
	b.bitpos -= lBits

	state[2] = f.bits & mask
	state[3] = b.bits & mask
	f.bits >>= uint(lBits)
	f.bitpos -= lBits
	b.bits >>= uint(lBits)
	b.bitpos -= lBits

	f.refillForward()
	state[4] = f.bits & mask
	f.bits >>= uint(lBits)
	f.bitpos -= lBits

	// Hand unread whole bytes back to the pointers.
	f.p -= f.bitpos >> 3
	f.bitpos &= 7
	b.p += b.bitpos >> 3
	b.bitpos &= 7

	if f.p > b.p {
		return fmt.Errorf("%w: tans streams cross at start", ErrCorruptEntropyStream)
	}

	out := dst[:len(dst)-5]
	d := 0

	// round decodes one symbol from state i using stream s.
	round := func(s *tansStream, i int) error {
		if state[i] >= uint32(len(lut)) {
			return fmt.Errorf("%w: tans state %d out of table", ErrCorruptEntropyStream, state[i])
		}
		e := &lut[state[i]]
		out[d] = e.symbol
		d++
		s.bitpos -= int(e.bitsX)
		state[i] = s.bits&e.x + e.w
		s.bits >>= e.bitsX

		return nil
	}

decode:
	for d < len(out) {
		for i := 0; i < 5; i++ {
			if i&1 == 0 {
				f.refillForward()
			}
			if err := round(f, i); err != nil {
				return err
			}
			if d >= len(out) {
				break decode
			}
		}
		for i := 0; i < 5; i++ {
			if i&1 == 0 {
				b.refillBackward()
			}
			if err := round(b, i); err != nil {
				return err
			}
			if d >= len(out) {
				break decode
			}
		}
	}

	if b.p-f.p+f.bitpos>>3+b.bitpos>>3 != 0 {
		return fmt.Errorf("%w: tans streams end unaligned", ErrCorruptEntropyStream)
	}
	if (state[0]|state[1]|state[2]|state[3]|state[4])&^0xFF != 0 {
		return fmt.Errorf("%w: tans final state exceeds a byte", ErrCorruptEntropyStream)
	}
	for i, s := range state {
		dst[len(out)+i] = uint8(s)
	}

	return nil
}
