// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// rleCommandCap bounds the decoded command buffer of an RLE block.
const rleCommandCap = BlockSize

// decodeRLE expands an RLE block. Commands are read from the end of the
// command buffer backwards, literal bytes from its front. A leading nonzero
// byte means the front of the buffer is itself entropy coded.
func decodeRLE(payload, dst []byte, depth int) error {
	if len(payload) <= 1 {
		if len(payload) != 1 {
			return fmt.Errorf("%w: empty rle block", ErrCorruptEntropyStream)
		}
		for i := range dst {
			dst[i] = payload[0]
		}

		return nil
	}

	cmds := payload[1:]
	if payload[0] != 0 {
		prefix, n, err := decodeBytes(payload, rleCommandCap, depth)
		if err != nil {
			return err
		}
		size := len(prefix) + len(payload) - n
		if size > rleCommandCap {
			return fmt.Errorf("%w: rle command buffer of %d", ErrLengthOverflow, size)
		}
		buf := make([]byte, 0, size)
		buf = append(buf, prefix...)
		cmds = append(buf, payload[n:]...)
	}

	var (
		lit, end = 0, len(cmds)
		d        = 0
		rleByte  byte
	)

	emit := func(copyN, rleN int) error {
		if len(dst)-d < copyN+rleN || end-lit < copyN {
			return fmt.Errorf("%w: rle run of %d+%d at %d", ErrLengthOverflow, copyN, rleN, d)
		}
		d += copy(dst[d:], cmds[lit:lit+copyN])
		lit += copyN
		for k := 0; k < rleN; k++ {
			dst[d+k] = rleByte
		}
		d += rleN

		return nil
	}

	for lit < end {
		cmd := uint32(cmds[end-1])
		if cmd-1 >= 0x2F {
			end--
			if err := emit(int(^cmd&0xF), int(cmd>>4)); err != nil {
				return err
			}

			continue
		}

		if cmd == 1 {
			rleByte = cmds[lit]
			lit++
			end--

			continue
		}

		if end-lit < 2 {
			return fmt.Errorf("%w: rle command truncated", ErrCorruptEntropyStream)
		}
		v := le16(cmds, end-2)
		end -= 2

		var err error
		switch {
		case cmd >= 0x10:
			data := v - 4096
			err = emit(int(data&0x3F), int(data>>6))
		case cmd >= 9:
			err = emit(0, int(v-0x8FF)*128)
		default:
			err = emit(int(v-511)*64, 0)
		}
		if err != nil {
			return err
		}
	}

	if lit != end {
		return fmt.Errorf("%w: rle command buffer misaligned", ErrCorruptEntropyStream)
	}
	if d != len(dst) {
		return fmt.Errorf("%w: rle produced %d of %d bytes", ErrCorruptEntropyStream, d, len(dst))
	}

	return nil
}
