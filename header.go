// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import "fmt"

// blockHeader is the 2-byte header that opens every 256 KiB of output.
type blockHeader struct {
	decoder      DecoderType
	restart      bool // encoder reset its state; informational for Kraken
	uncompressed bool // block is stored raw with no quantum header
	checksums    bool // quantum headers carry a 24-bit checksum
}

// parseBlockHeader reads a block header from the front of c.
func parseBlockHeader(c *byteCursor) (blockHeader, error) {
	var h blockHeader
	if err := c.need(2); err != nil {
		return h, err
	}

	b0, b1 := c.data[c.pos], c.data[c.pos+1]
	if b0&blockMagicMask != blockMagic {
		return h, fmt.Errorf("%w: block header 0x%02x at %d", ErrMalformedHeader, b0, c.pos)
	}
	if b0&blockReserved != 0 {
		return h, fmt.Errorf("%w: reserved block header bits 0x%02x at %d", ErrMalformedHeader, b0, c.pos)
	}

	h.restart = b0&blockRestartFlag != 0
	h.uncompressed = b0&blockUncompFlag != 0
	h.decoder = DecoderType(b1 & blockTypeMask)
	h.checksums = b1&blockChecksumBit != 0

	switch h.decoder {
	case DecoderKraken:
	case DecoderLZNA, DecoderMermaid, DecoderBitKnit, DecoderLeviathan:
		return h, fmt.Errorf("%w: %s", ErrUnsupportedDecoder, h.decoder)
	default:
		return h, fmt.Errorf("%w: decoder type %d at %d", ErrMalformedHeader, h.decoder, c.pos)
	}

	c.pos += 2

	return h, nil
}

// quantumHeader describes the compressed payload of one block.
type quantumHeader struct {
	compressedSize int    // payload bytes; zero for a fill quantum
	checksum       uint32 // 24-bit checksum when the block header enables it
	fill           byte   // output byte of a fill quantum
}

// parseQuantumHeader reads a quantum header from the front of c.
func parseQuantumHeader(c *byteCursor, checksums bool) (quantumHeader, error) {
	var h quantumHeader
	v, err := c.readBE24()
	if err != nil {
		return h, err
	}

	if size := v & quantumSizeMask; size != quantumSizeEscape {
		h.compressedSize = int(size) + 1
		if checksums {
			if h.checksum, err = c.readBE24(); err != nil {
				return h, err
			}
		}

		return h, nil
	}

	if v>>18 != quantumMemset {
		return h, fmt.Errorf("%w: quantum escape 0x%06x at %d", ErrMalformedHeader, v, c.pos-3)
	}
	if h.fill, err = c.readByte(); err != nil {
		return h, err
	}

	return h, nil
}
