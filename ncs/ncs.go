// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

// Package ncs reads Gearbox NCS configuration chunks: a 16-byte header
// around an inner container holding raw or Oodle Kraken data.
package ncs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/woozymasta/kraken/compr"
)

const (
	// HeaderSize is the size of the outer chunk header.
	HeaderSize = 16
	// InnerMagic starts every inner container (big-endian).
	InnerMagic uint32 = 0xB7756362

	innerHeaderMin      = 0x40
	innerCompressionPos = 0x18
	innerBlockCountPos  = 0x1C
	innerRawDataPos     = 0x50
)

var (
	magic         = []byte("NCS")
	manifestMagic = []byte("_NCS/")
)

var (
	ErrTooShort      = errors.New("ncs: data too short")
	ErrBadMagic      = errors.New("ncs: invalid magic")
	ErrBadInnerMagic = errors.New("ncs: invalid inner magic")
)

// Header is the outer chunk header.
type Header struct {
	Version          uint8
	CompressionFlag  uint32 // 0 = stored
	DecompressedSize uint32
	CompressedSize   uint32
}

// Chunk is a header found by Scan at Offset.
type Chunk struct {
	Offset int
	Header Header
}

// ParseHeader reads the outer header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d bytes, have %d", ErrTooShort, HeaderSize, len(data))
	}
	if !bytes.Equal(data[1:4], magic) {
		return Header{}, fmt.Errorf("%w: % x", ErrBadMagic, data[1:4])
	}

	return Header{
		Version:          data[0],
		CompressionFlag:  binary.LittleEndian.Uint32(data[4:]),
		DecompressedSize: binary.LittleEndian.Uint32(data[8:]),
		CompressedSize:   binary.LittleEndian.Uint32(data[12:]),
	}, nil
}

// IsCompressed reports whether the payload is an inner container.
func (h Header) IsCompressed() bool { return h.CompressionFlag != 0 }

// TotalSize is the chunk size including the header.
func (h Header) TotalSize() int { return HeaderSize + int(h.CompressedSize) }

// Decompress returns the payload of the chunk at the start of data.
func Decompress(data []byte) ([]byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	payload := data[HeaderSize:]
	if uint64(len(payload)) < uint64(h.CompressedSize) {
		return nil, fmt.Errorf("%w: payload needs %d bytes, have %d", ErrTooShort, h.CompressedSize, len(payload))
	}
	payload = payload[:h.CompressedSize]

	if !h.IsCompressed() {
		return bytes.Clone(payload), nil
	}

	return decompressInner(payload, int(h.DecompressedSize))
}

func decompressInner(src []byte, size int) ([]byte, error) {
	if len(src) < innerHeaderMin {
		return nil, fmt.Errorf("%w: inner header needs %d bytes, have %d", ErrTooShort, innerHeaderMin, len(src))
	}
	if m := binary.BigEndian.Uint32(src); m != InnerMagic {
		return nil, fmt.Errorf("%w: %#08x", ErrBadInnerMagic, m)
	}

	if src[innerCompressionPos] == 0 {
		if len(src) < innerRawDataPos {
			return nil, fmt.Errorf("%w: raw data starts at %d, have %d", ErrTooShort, innerRawDataPos, len(src))
		}

		return bytes.Clone(src[innerRawDataPos:]), nil
	}

	blocks := uint64(binary.BigEndian.Uint32(src[innerBlockCountPos:]))
	hdrSize := innerHeaderMin + 4*blocks
	if uint64(len(src)) < hdrSize {
		return nil, fmt.Errorf("%w: inner header with %d blocks needs %d bytes, have %d", ErrTooShort, blocks, hdrSize, len(src))
	}

	out, err := compr.Decompress("oodle", src[hdrSize:], size)
	if err != nil {
		return nil, fmt.Errorf("ncs: inner payload: %w", err)
	}

	return out, nil
}

// Scan finds complete chunks in data, skipping manifest markers.
func Scan(data []byte) []Chunk {
	var chunks []Chunk
	for i := 0; ; {
		k := bytes.Index(data[i:], magic)
		if k < 0 {
			return chunks
		}
		offset := i + k
		i = offset + 1
		if offset == 0 {
			continue
		}

		start := offset - 1
		if data[start] == '_' {
			continue
		}

		h, err := ParseHeader(data[start:])
		if err != nil || start+h.TotalSize() > len(data) {
			continue
		}
		chunks = append(chunks, Chunk{Offset: start, Header: h})
	}
}

// IsNCS reports whether data starts with a chunk header.
func IsNCS(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[1:4], magic) && data[0] != '_'
}

// IsManifest reports whether data starts with the "_NCS/" manifest marker.
func IsManifest(data []byte) bool {
	return bytes.HasPrefix(data, manifestMagic)
}
