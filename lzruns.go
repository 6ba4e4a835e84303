// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// recentOffsets is the move-to-front cache of the last three match
// distances. Slot 3 receives the next explicit offset.
type recentOffsets [4]int

func newRecentOffsets() recentOffsets {
	return recentOffsets{MinOffset, MinOffset, MinOffset, 0}
}

// take returns the distance for index i (0..2 recent, 3 explicit) and moves
// it to the front.
func (r *recentOffsets) take(i int) int {
	d := r[i]
	for ; i > 0; i-- {
		r[i] = r[i-1]
	}
	r[0] = d

	return d
}

// processLzRuns executes the command stream of one LZ sub-chunk against the
// window, then appends the trailing literals. Literals are added to the
// bytes one match distance back in delta mode and copied as is in raw mode.
func processLzRuns(mode int, lz *lzTable, w *window) error {
	if lz.initial != nil {
		if err := w.appendLiteral(lz.initial); err != nil {
			return err
		}
	}

	emitLits := func(p []byte, last int) error {
		if len(p) == 0 {
			return nil
		}
		if mode == lzModeDelta {
			return w.appendDelta(p, last)
		}

		return w.appendLiteral(p)
	}

	recent := newRecentOffsets()
	last := MinOffset
	lit, oi, li := 0, 0, 0

	for ci, f := range lz.cmds {
		litLen := int(f & 3)
		offsIndex := int(f >> 6)
		matchLen := int(f>>2) & 0xF

		if litLen == 3 {
			if li >= len(lz.lens) {
				return fmt.Errorf("%w: command %d: length stream exhausted", ErrCorruptEntropyStream, ci)
			}
			litLen = lz.lens[li]
			li++
		}
		if litLen > len(lz.lits)-lit {
			return fmt.Errorf("%w: command %d: %d literals, %d left", ErrCorruptEntropyStream, ci, litLen, len(lz.lits)-lit)
		}
		if err := emitLits(lz.lits[lit:lit+litLen], last); err != nil {
			return err
		}
		lit += litLen

		if offsIndex == 3 {
			if oi >= len(lz.offs) {
				return fmt.Errorf("%w: command %d: offset stream exhausted", ErrCorruptEntropyStream, ci)
			}
			recent[3] = lz.offs[oi]
			oi++
		}
		offset := recent.take(offsIndex)
		last = offset

		if matchLen == 15 {
			if li >= len(lz.lens) {
				return fmt.Errorf("%w: command %d: length stream exhausted", ErrCorruptEntropyStream, ci)
			}
			matchLen = 14 + lz.lens[li]
			li++
		} else {
			matchLen += 2
		}

		if err := w.copyMatch(offset, matchLen); err != nil {
			return fmt.Errorf("command %d: %w", ci, err)
		}
	}

	if oi != len(lz.offs) || li != len(lz.lens) {
		return fmt.Errorf("%w: %d offsets and %d lengths unused", ErrCorruptEntropyStream, len(lz.offs)-oi, len(lz.lens)-li)
	}
	if tail := len(lz.lits) - lit; tail != w.room() {
		return fmt.Errorf("%w: %d trailing literals for %d bytes", ErrCorruptEntropyStream, tail, w.room())
	}

	return emitLits(lz.lits[lit:], last)
}
