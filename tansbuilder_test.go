// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"math/bits"
	"sort"
)

// tansWeights normalizes the byte counts of data to weights summing to 1<<lBits.
func tansWeights(data []byte, lBits int) (present []int, weights [256]int) {
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	l := 1 << uint(lBits)
	sum, top := 0, -1
	for s, f := range freq {
		if f == 0 {
			continue
		}
		present = append(present, s)
		weights[s] = max(1, f*l/len(data))
		sum += weights[s]
		if top < 0 || weights[s] > weights[top] {
			top = s
		}
	}

	weights[top] += l - sum
	for weights[top] < 1 {
		// Take the deficit from the next heaviest symbol.
		next := -1
		for _, s := range present {
			if s != top && weights[s] > 1 && (next < 0 || weights[s] > weights[next]) {
				next = s
			}
		}
		weights[next]--
		weights[top]++
	}

	return present, weights
}

// tansTableOf builds the decoder table for weights, symbols ascending.
func tansTableOf(present []int, weights [256]int) *tansTable {
	tbl := &tansTable{}
	for _, s := range present {
		if weights[s] == 1 {
			tbl.singles = append(tbl.singles, uint8(s))
		} else {
			tbl.weighted = append(tbl.weighted, uint32(s)<<16|uint32(weights[s]))
		}
	}

	return tbl
}

// writeTANSSparse writes the explicit-symbol table: at most nine symbols,
// the heaviest one last taking the remaining weight.
func writeTANSSparse(w *msbWriter, lBits int, present []int, weights [256]int) {
	order := append([]int(nil), present...)
	sort.SliceStable(order, func(i, j int) bool { return weights[order[i]] < weights[order[j]] })
	explicit := order[:len(order)-1]

	maxDelta, prev := 0, 0
	for _, s := range explicit {
		maxDelta = max(maxDelta, weights[s]-prev)
		prev = weights[s]
	}
	deltaBits := max(1, bits.Len(uint(maxDelta)))

	w.write(0, 1) // sparse
	w.write(uint32(len(explicit)-1), 3)
	w.write(uint32(deltaBits), bits.Len32(uint32(lBits)))
	prev = 0
	for _, s := range explicit {
		w.write(uint32(s), 8)
		w.write(uint32(weights[s]-prev), deltaBits)
		prev = weights[s]
	}
	w.write(uint32(order[len(order)-1]), 8)
}

// writeTANSGolomb writes the Golomb-Rice coded table with q forced low bits
// per weight.
func writeTANSGolomb(w *msbWriter, q int, present []int, weights [256]int) {
	num := len(present)
	w.write(1, 1)
	w.write(uint32(q), 3)
	w.write(uint32(num-1), 8)

	widths, fields := symbolRanges(present)
	writeFluff(w, num, len(widths))

	unary := make([]int, 0, num)
	var vals []bitField
	average := 6
	for _, s := range present {
		t := weights[s] - 1
		a := average >> 2
		limit := 2 * a

		r := t
		if t <= limit {
			if t >= a {
				r = 2 * (t - a)
			} else {
				r = 2*(a-t) - 1
			}
		}
		average += min(limit, t) - a

		n := bits.Len32(uint32(r+1<<uint(q))) - 1
		unary = append(unary, n-q)
		vals = append(vals, bitField{uint32(r + 1<<uint(q) - 1<<uint(n)), n})
	}

	for _, u := range unary {
		w.zeros(u)
		w.write(1, 1)
	}
	for _, wd := range widths {
		w.zeros(wd)
		w.write(1, 1)
	}
	for _, f := range fields {
		w.write(f.v, f.n)
	}
	for _, f := range vals {
		w.write(f.v, f.n)
	}
}

// tansBlock returns a tANS payload for data (at least five bytes) and the
// offset where the backward stream starts. With golomb false the data must
// use two to nine distinct bytes.
func tansBlock(data []byte, lBits int, golomb bool) ([]byte, int) {
	present, weights := tansWeights(data, lBits)
	lut, err := buildTANSLUT(tansTableOf(present, weights), lBits)
	if err != nil {
		panic(err)
	}

	// enc[sym][next] is the state that decodes sym and moves to next.
	var enc [256][]int
	for idx, e := range lut {
		if enc[e.symbol] == nil {
			enc[e.symbol] = make([]int, len(lut))
		}
		for v := uint32(0); v < 1<<e.bitsX; v++ {
			enc[e.symbol][e.w+v] = idx
		}
	}

	// Encode backwards from the final states, which are the last five bytes.
	out := data[:len(data)-5]
	var state [5]int
	for i := range state {
		state[i] = int(data[len(out)+i])
	}
	var fwd, bwd []bitField
	for k := len(out) - 1; k >= 0; k-- {
		i := k % 5
		idx := enc[out[k]][state[i]]
		e := lut[idx]
		f := bitField{uint32(state[i]) - e.w, int(e.bitsX)}
		if (k/5)&1 == 0 {
			fwd = append(fwd, f)
		} else {
			bwd = append(bwd, f)
		}
		state[i] = idx
	}

	var fw, bw lsbWriter
	for _, i := range []int{0, 2, 4} {
		fw.value(uint32(state[i]), lBits)
	}
	for _, i := range []int{1, 3} {
		bw.value(uint32(state[i]), lBits)
	}
	for k := len(fwd) - 1; k >= 0; k-- {
		fw.value(fwd[k].v, fwd[k].n)
	}
	for k := len(bwd) - 1; k >= 0; k-- {
		bw.value(bwd[k].v, bwd[k].n)
	}

	w := &msbWriter{}
	w.write(0, 1) // reserved
	w.write(uint32(lBits-8), 2)
	if golomb {
		writeTANSGolomb(w, 2, present, weights)
	} else {
		writeTANSSparse(w, lBits, present, weights)
	}

	payload := append(w.buf, fw.buf...)
	mid := len(payload)

	return append(payload, reversed(bw.buf)...), mid
}
