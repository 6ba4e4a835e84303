// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"math/bits"
	"sort"
)

// msbWriter appends bits most significant first, the order bitReader reads them.
type msbWriter struct {
	buf  []byte
	used int // bits used in the last byte; 0 means byte aligned
}

// write appends the low n bits of v.
func (w *msbWriter) write(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.used == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 != 0 {
			w.buf[len(w.buf)-1] |= 0x80 >> uint(w.used)
		}
		w.used = (w.used + 1) & 7
	}
}

// zeros appends n zero bits.
func (w *msbWriter) zeros(n int) {
	for ; n > 0; n-- {
		w.write(0, 1)
	}
}

// lsbWriter appends bits least significant first, the order of Huffman streams.
type lsbWriter struct {
	buf  []byte
	used int
}

func (w *lsbWriter) bit(b uint32) {
	if w.used == 0 {
		w.buf = append(w.buf, 0)
	}
	if b != 0 {
		w.buf[len(w.buf)-1] |= 1 << uint(w.used)
	}
	w.used = (w.used + 1) & 7
}

// value appends the low n bits of v, least significant first.
func (w *lsbWriter) value(v uint32, n int) {
	for i := 0; i < n; i++ {
		w.bit(v >> uint(i) & 1)
	}
}

// code appends a prefix code, its most significant bit first.
func (w *lsbWriter) code(c uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bit(c >> uint(i) & 1)
	}
}

func reversed(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		out[len(p)-1-i] = b
	}

	return out
}

// storedBlock wraps p in a 3-byte stored entropy header.
func storedBlock(p []byte) []byte {
	n := len(p)

	return append([]byte{byte(n >> 16), byte(n >> 8), byte(n)}, p...)
}

// entropyBlock wraps payload in a long-form entropy header; payload must be
// shorter than dst.
func entropyBlock(kind int, payload []byte, dst int) []byte {
	d := uint32(dst - 1)
	v := (d&0x3FFF)<<18 | uint32(len(payload))
	hdr := []byte{byte(kind<<4) | byte(d>>14&0xF), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}

	return append(hdr, payload...)
}

// huffTableFormat selects the code length table encoding written by huffmanBlock.
type huffTableFormat int

const (
	tableSparse huffTableFormat = iota
	tableGamma
	tableGolomb
)

// huffCodeLengths assigns a complete prefix code: with k symbols, the
// 2^L-k most frequent get length L-1 and the rest length L.
func huffCodeLengths(data []byte) (present []int, lens [256]int) {
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	for s, f := range freq {
		if f > 0 {
			present = append(present, s)
		}
	}

	k := len(present)
	if k < 2 {
		for _, s := range present {
			lens[s] = 1
		}

		return present, lens
	}

	l := bits.Len(uint(k - 1))
	short := 1<<uint(l) - k
	byFreq := append([]int(nil), present...)
	sort.SliceStable(byFreq, func(i, j int) bool { return freq[byFreq[i]] > freq[byFreq[j]] })
	for i, s := range byFreq {
		if i < short {
			lens[s] = l - 1
		} else {
			lens[s] = l
		}
	}

	return present, lens
}

// canonicalCodes assigns codes by (length, symbol), matching the decoder's
// order of appearance for ascending symbol tables.
func canonicalCodes(present []int, lens [256]int) (codes [256]uint32) {
	slot := uint32(0)
	for l := 1; l <= huffMaxCodeLen; l++ {
		for _, s := range present {
			if lens[s] != l {
				continue
			}
			codes[s] = slot >> uint(huffMaxCodeLen-l)
			slot += 1 << uint(huffMaxCodeLen-l)
		}
	}

	return codes
}

func zigzag(d int) uint32 {
	if d >= 0 {
		return uint32(2 * d)
	}

	return uint32(-2*d - 1)
}

// writeGammaRun writes a run length (>= 1) as read by readGamma.
func writeGammaRun(w *msbWriter, r int) {
	x := uint32(r + 1)
	n := bits.Len32(x)
	w.zeros(n - 2)
	w.write(x, n)
}

// writeHuffTable writes the code length table for present symbols.
func writeHuffTable(w *msbWriter, format huffTableFormat, present []int, lens [256]int) {
	switch format {
	case tableSparse:
		w.write(0, 1) // old
		w.write(0, 1) // sparse
		w.write(uint32(len(present)), 8)
		if len(present) == 1 {
			w.write(uint32(present[0]), 8)

			return
		}
		w.write(3, 3)
		for _, s := range present {
			w.write(uint32(s), 8)
			w.write(uint32(lens[s]-1), 3)
		}

	case tableGamma:
		const forced = 1
		w.write(0, 1) // old
		w.write(1, 1) // gamma
		w.write(forced, 2)

		if present[0] == 0 {
			w.write(1, 1)
		} else {
			w.write(0, 1)
		}

		avg := 32
		sym, idx := 0, 0
		for idx < len(present) {
			s := present[idx]
			if s > sym {
				writeGammaRun(w, s-sym)
				sym = s
			}
			run := 1
			for idx+run < len(present) && present[idx+run] == s+run {
				run++
			}
			writeGammaRun(w, run)
			for k := 0; k < run; k++ {
				l := lens[s+k]
				v := zigzag(l - (avg+2)>>2)
				w.zeros(int(v >> forced))
				w.write(1, 1)
				w.write(v&(1<<forced-1), forced)
				avg = l + (3*avg+2)>>2
			}
			sym += run
			idx += run
		}
		if sym < 256 {
			writeGammaRun(w, 256-sym)
		}

	case tableGolomb:
		const forced = 1
		w.write(1, 1)
		w.write(0, 1) // new
		w.write(forced, 2)
		num := len(present)
		w.write(uint32(num-1), 8)

		widths, fields := symbolRanges(present)
		writeFluff(w, num, len(widths))

		vals := make([]uint32, 0, num)
		running := 0x1E
		for _, s := range present {
			d := lens[s] - 1 - running>>2
			vals = append(vals, zigzag(d))
			running += d
		}
		for _, v := range vals {
			w.zeros(int(v >> forced))
			w.write(1, 1)
		}
		for _, wd := range widths {
			w.zeros(wd)
			w.write(1, 1)
		}
		for _, v := range vals {
			w.write(v, forced)
		}
		for _, f := range fields {
			w.write(f.v, f.n)
		}
	}
}

// bitField is a value written in n bits.
type bitField struct {
	v uint32
	n int
}

// symbolRanges returns the unary widths and fields that convertToRanges
// reads to rebuild the ascending symbol list present.
func symbolRanges(present []int) (widths []int, fields []bitField) {
	type run struct{ start, n int }
	var runs []run
	for _, s := range present {
		if len(runs) > 0 && runs[len(runs)-1].start+runs[len(runs)-1].n == s {
			runs[len(runs)-1].n++
		} else {
			runs = append(runs, run{start: s, n: 1})
		}
	}

	if present[0] > 0 {
		x := uint32(present[0] + 1)
		wd := bits.Len32(x) - 2
		widths = append(widths, wd)
		fields = append(fields, bitField{x, wd + 1})
	}
	for i := 0; i+1 < len(runs); i++ {
		n := uint32(runs[i].n)
		wn := bits.Len32(n) - 1
		widths = append(widths, wn)
		fields = append(fields, bitField{n, wn})
		x := uint32(runs[i+1].start-(runs[i].start+runs[i].n)) + 1
		ws := bits.Len32(x) - 2
		widths = append(widths, ws)
		fields = append(fields, bitField{x, ws + 1})
	}

	return widths, fields
}

// writeFluff writes the range width count as read by readFluff.
func writeFluff(w *msbWriter, num, fluff int) {
	if num == 256 {
		return
	}
	x := 2 * min(257-num, num)
	y := bits.Len32(uint32(x - 1))
	z := 1<<uint(y) - x
	if fluff < z {
		w.write(uint32(fluff), y-1)
	} else {
		w.write(uint32(fluff+z), y)
	}
}

// huffStreams codes data round robin into three streams and lays them out
// as stream1 | stream3 | reversed stream2. It returns the layout and the
// length of stream1.
func huffStreams(data []byte, codes [256]uint32, lens [256]int) ([]byte, int) {
	var s [3]lsbWriter
	for i, b := range data {
		s[i%3].code(codes[b], lens[b])
	}

	out := append([]byte(nil), s[0].buf...)
	out = append(out, s[2].buf...)
	out = append(out, reversed(s[1].buf)...)

	return out, len(s[0].buf)
}

// huffmanBlock returns the payload of a Huffman entropy block for data.
func huffmanBlock(data []byte, six bool, format huffTableFormat) []byte {
	present, lens := huffCodeLengths(data)
	if len(present) == 1 {
		format = tableSparse
	}

	w := &msbWriter{}
	writeHuffTable(w, format, present, lens)
	out := w.buf
	if len(present) == 1 {
		return out
	}

	codes := canonicalCodes(present, lens)
	if !six {
		streams, mid := huffStreams(data, codes, lens)
		out = append(out, byte(mid), byte(mid>>8))

		return append(out, streams...)
	}

	half := (len(data) + 1) >> 1
	left, leftMid := huffStreams(data[:half], codes, lens)
	right, rightMid := huffStreams(data[half:], codes, lens)
	splitMid := 2 + len(left)
	out = append(out, byte(splitMid), byte(splitMid>>8), byte(splitMid>>16))
	out = append(out, byte(leftMid), byte(leftMid>>8))
	out = append(out, left...)
	out = append(out, byte(rightMid), byte(rightMid>>8))

	return append(out, right...)
}

// krakenBuilder writes Kraken streams for tests. Matches are found greedily
// within searchLimit bytes, recent distances first.
type krakenBuilder struct {
	mode         int  // lzModeDelta or lzModeRaw
	searchLimit  int  // 0 = literals only
	huffman      bool // entropy code literal and command streams when smaller
	entropyOnly  bool // code whole sub-chunks as single Huffman blocks
	uncompressed bool // emit uncompressed blocks
	fill         bool // emit fill quanta for single-byte blocks
	checksums    bool // add (unverified) quantum checksums
}

// encode returns a complete stream for data.
func (b krakenBuilder) encode(data []byte) []byte {
	var out []byte
	for pos := 0; pos < len(data); pos += BlockSize {
		n := min(BlockSize, len(data)-pos)
		block := data[pos : pos+n]

		b1 := byte(DecoderKraken)
		if b.checksums {
			b1 |= blockChecksumBit
		}
		hdr := byte(blockMagic | blockRestartFlag)

		if b.fill && uniform(block) {
			out = append(out, hdr, b1, 0x07, 0xFF, 0xFF, block[0])

			continue
		}

		var payload []byte
		if !b.uncompressed {
			payload = b.encodeQuantum(data, pos, n)
		}
		if b.uncompressed || (len(payload) >= n && n == BlockSize) {
			out = append(out, hdr|blockUncompFlag, b1)
			out = append(out, block...)

			continue
		}
		if len(payload) >= n {
			payload = block
		}

		out = append(out, hdr, b1)
		v := uint32(len(payload) - 1)
		out = append(out, byte(v>>16), byte(v>>8), byte(v))
		if b.checksums {
			out = append(out, 0x12, 0x34, 0x56)
		}
		out = append(out, payload...)
	}

	return out
}

func uniform(p []byte) bool {
	for _, c := range p {
		if c != p[0] {
			return false
		}
	}

	return len(p) > 0
}

// encodeQuantum codes the block data[pos:pos+n] as sub-chunks.
func (b krakenBuilder) encodeQuantum(data []byte, pos, n int) []byte {
	var out []byte
	for sub := pos; sub < pos+n; sub += SubChunkSize {
		cnt := min(SubChunkSize, pos+n-sub)
		chunk := data[sub : sub+cnt]

		if b.entropyOnly {
			if payload := huffmanBlock(chunk, false, tableGolomb); len(payload) < cnt && len(payload) < 0x40000 {
				out = append(out, entropyBlock(entropyHuffman3, payload, cnt)...)

				continue
			}
		}

		body := b.encodeLZ(data, sub, cnt)
		if body != nil && len(body) < cnt {
			v := uint32(chunkLZFlag | b.mode<<chunkModeBits | len(body))
			out = append(out, byte(v>>16), byte(v>>8), byte(v))
			out = append(out, body...)

			continue
		}

		v := uint32(chunkLZFlag | cnt)
		out = append(out, byte(v>>16), byte(v>>8), byte(v))
		out = append(out, chunk...)
	}

	return out
}

// findMatch returns the longest match for data[i:end] at a distance of at
// least MinOffset, trying recent distances before searching.
func (b krakenBuilder) findMatch(data []byte, i, end int, recent []int) (int, int) {
	matchLen := func(d int) int {
		n := 0
		for i+n < end && data[i+n-d] == data[i+n] {
			n++
		}

		return n
	}

	bestLen, bestDist := 0, 0
	for _, d := range recent {
		if d <= i {
			if l := matchLen(d); l > bestLen {
				bestLen, bestDist = l, d
			}
		}
	}

	maxCheck := min(i, b.searchLimit)
	for d := MinOffset; d <= maxCheck; d++ {
		if l := matchLen(d); l > bestLen {
			bestLen, bestDist = l, d
		}
	}

	return bestLen, bestDist
}

// streamBlock codes p as a Huffman block when that is smaller, else stored.
func (b krakenBuilder) streamBlock(p []byte) []byte {
	if b.huffman && len(p) >= 16 {
		if payload := huffmanBlock(p, len(p) >= 64, tableGamma); len(payload) < len(p) {
			kind := entropyHuffman3
			if len(p) >= 64 {
				kind = entropyHuffman6
			}

			return entropyBlock(kind, payload, len(p))
		}
	}

	return storedBlock(p)
}

// encodeLZ codes data[start:start+cnt] as an LZ sub-chunk body, or returns
// nil when the streams do not fit their limits.
func (b krakenBuilder) encodeLZ(data []byte, start, cnt int) []byte {
	end := start + cnt
	i := start
	if start == 0 {
		if cnt <= InitialLits {
			return nil
		}
		i += InitialLits
	}

	var (
		lits, cmds, packedOffs, packedLens []byte
		offs, long                         []int
		recent                             = []int{MinOffset, MinOffset, MinOffset}
		last                               = MinOffset
		litStart                           = i
	)

	pushLen := func(v int) {
		if v >= 255 {
			packedLens = append(packedLens, 255)
			long = append(long, v-255)

			return
		}
		packedLens = append(packedLens, byte(v))
	}
	appendLits := func(from, to int) {
		for k := from; k < to; k++ {
			c := data[k]
			if b.mode == lzModeDelta {
				c -= data[k-last]
			}
			lits = append(lits, c)
		}
	}

	for i < end {
		mlen, dist := 0, 0
		if b.searchLimit > 0 {
			mlen, dist = b.findMatch(data, i, end, recent)
		}
		if mlen < 4 {
			i++

			continue
		}

		litLen := i - litStart
		appendLits(litStart, i)

		var f byte
		if litLen < 3 {
			f = byte(litLen)
		} else {
			f = 3
			pushLen(litLen - 3)
		}
		if mlen <= 16 {
			f |= byte(mlen-2) << 2
		} else {
			f |= 15 << 2
			pushLen(mlen - 17)
		}

		idx := 3
		for k, d := range recent {
			if d == dist {
				idx = k

				break
			}
		}
		f |= byte(idx) << 6
		if idx == 3 {
			offs = append(offs, dist)
			recent = []int{dist, recent[0], recent[1]}
		} else {
			copy(recent[1:idx+1], recent[:idx])
			recent[0] = dist
		}
		last = dist
		cmds = append(cmds, f)

		i += mlen
		litStart = i
	}
	appendLits(litStart, end)

	if len(packedLens) > cnt>>2 || len(long) > maxLongLengths {
		return nil
	}

	a, bw := &msbWriter{}, &msbWriter{}
	x := uint32(len(long) + 1)
	nb := bits.Len32(x)
	bw.zeros(nb - 1)
	bw.write(x, nb)

	for k, d := range offs {
		w := a
		if k&1 != 0 {
			w = bw
		}
		t := uint32(d + 248)
		u := t >> 4
		n := bits.Len32(u) - 1
		packedOffs = append(packedOffs, byte((n-4)<<4)|byte(t&0xF))
		w.write(u-1<<uint(n), n)
	}
	for k, v := range long {
		w := a
		if k&1 != 0 {
			w = bw
		}
		x := uint32(v + 64)
		n := bits.Len32(x)
		w.zeros(n - 7)
		w.write(x, n)
	}

	var body []byte
	if start == 0 {
		body = append(body, data[:InitialLits]...)
	}
	body = append(body, b.streamBlock(lits)...)
	body = append(body, b.streamBlock(cmds)...)
	body = append(body, storedBlock(packedOffs)...)
	body = append(body, storedBlock(packedLens)...)
	body = append(body, a.buf...)
	body = append(body, reversed(bw.buf)...)

	return body
}
