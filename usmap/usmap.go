// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

// Package usmap reads the envelope of Unreal Engine .usmap mapping files
// and decompresses their payload.
package usmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/woozymasta/kraken"
	"github.com/woozymasta/kraken/compr"
)

// Magic opens every mapping file (little-endian).
const Magic uint16 = 0x30C4

// Version of the mapping format.
type Version uint8

const (
	VersionInitial           Version = 0
	VersionPackageVersioning Version = 1
	VersionLongFName         Version = 2
	VersionLargeEnums        Version = 3
	VersionExplicitEnums     Version = 4
)

// Compression method of the payload.
type Compression uint32

const (
	CompressionNone   Compression = 0
	CompressionOodle  Compression = 1
	CompressionBrotli Compression = 2
	CompressionZstd   Compression = 3
)

// String returns the compr codec name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionOodle:
		return "oodle"
	case CompressionBrotli:
		return "brotli"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint32(c))
	}
}

var (
	ErrBadMagic           = errors.New("usmap: invalid magic")
	ErrUnknownCompression = errors.New("usmap: unknown compression method")
	ErrTooLarge           = errors.New("usmap: payload size over limit")
)

// CustomVersion is one engine custom version entry.
type CustomVersion struct {
	Key     [16]byte
	Version int32
}

// Versioning is the optional engine version block.
type Versioning struct {
	UE4            int32
	UE5            int32
	CustomVersions []CustomVersion
	NetCL          uint32
}

// Header is the envelope in front of the payload.
type Header struct {
	Version          Version
	Versioning       *Versioning
	Compression      Compression
	CompressedSize   uint32
	DecompressedSize uint32
}

// maxCustomVersions bounds the custom version table read from untrusted input.
const maxCustomVersions = 1 << 16

// ReadHeader reads the envelope from r, leaving r at the payload.
func ReadHeader(r io.Reader) (Header, error) {
	var (
		h     Header
		magic uint16
	)
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return h, fmt.Errorf("usmap: magic: %w", err)
	}
	if magic != Magic {
		return h, fmt.Errorf("%w: %#x", ErrBadMagic, magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return h, fmt.Errorf("usmap: version: %w", err)
	}

	if h.Version >= VersionPackageVersioning {
		var has uint8
		if err := binary.Read(r, binary.LittleEndian, &has); err != nil {
			return h, fmt.Errorf("usmap: versioning flag: %w", err)
		}
		if has != 0 {
			v, err := readVersioning(r)
			if err != nil {
				return h, err
			}
			h.Versioning = v
		}
	}

	var sizes [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &sizes); err != nil {
		return h, fmt.Errorf("usmap: compression fields: %w", err)
	}
	h.Compression = Compression(sizes[0])
	h.CompressedSize = sizes[1]
	h.DecompressedSize = sizes[2]

	return h, nil
}

func readVersioning(r io.Reader) (*Versioning, error) {
	v := &Versioning{}
	var head [2]int32
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("usmap: engine versions: %w", err)
	}
	v.UE4, v.UE5 = head[0], head[1]

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("usmap: custom version count: %w", err)
	}
	if count > maxCustomVersions {
		return nil, fmt.Errorf("%w: %d custom versions", ErrTooLarge, count)
	}
	v.CustomVersions = make([]CustomVersion, count)
	if err := binary.Read(r, binary.LittleEndian, v.CustomVersions); err != nil {
		return nil, fmt.Errorf("usmap: custom versions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &v.NetCL); err != nil {
		return nil, fmt.Errorf("usmap: net changelist: %w", err)
	}

	return v, nil
}

// Decompress reads the envelope and returns the header and the
// decompressed payload. Sizes above kraken.DefaultMaxSize are rejected.
func Decompress(r io.Reader) (Header, []byte, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return h, nil, err
	}
	if h.CompressedSize > kraken.DefaultMaxSize || h.DecompressedSize > kraken.DefaultMaxSize {
		return h, nil, fmt.Errorf("%w: compressed %d, decompressed %d", ErrTooLarge, h.CompressedSize, h.DecompressedSize)
	}
	if h.Compression > CompressionZstd {
		return h, nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint32(h.Compression))
	}

	src := make([]byte, h.CompressedSize)
	if _, err := io.ReadFull(r, src); err != nil {
		return h, nil, fmt.Errorf("usmap: payload: %w", err)
	}

	out, err := compr.Decompress(h.Compression.String(), src, int(h.DecompressedSize))
	if err != nil {
		return h, nil, fmt.Errorf("usmap: %w", err)
	}

	return h, out, nil
}
