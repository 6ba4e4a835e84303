// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package compr

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/woozymasta/kraken"
)

var zstdDecoder *zstd.Decoder

func init() {
	z, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z

	Register(noneDecompressor{})
	Register(oodleDecompressor{})
	Register(zstdDecompressor{})
	Register(zlibDecompressor{})
	Register(gzipDecompressor{})
	Register(brotliDecompressor{})
	Register(lz4Decompressor{})
}

type noneDecompressor struct{}

func (noneDecompressor) Name() string { return "none" }

func (noneDecompressor) Decompress(src, dst []byte) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: expected %d bytes; got %d", ErrSizeMismatch, len(dst), len(src))
	}
	copy(dst, src)

	return nil
}

// oodleDecompressor wraps the Kraken decoder. Container payloads are often
// padded, so trailing input is allowed.
type oodleDecompressor struct{}

func (oodleDecompressor) Name() string { return "oodle" }

func (oodleDecompressor) Decompress(src, dst []byte) error {
	_, err := kraken.DecompressInto(src, dst, len(dst), kraken.LenientOptions())

	return err
}

// zstdDecompressor decodes whole zstd frames with the shared decoder.
type zstdDecompressor struct{}

func (zstdDecompressor) Name() string { return "zstd" }

func (zstdDecompressor) Decompress(src, dst []byte) error {
	out, err := zstdDecoder.DecodeAll(src, dst[:0:len(dst)])
	if err != nil {
		return err
	}
	if len(out) != len(dst) {
		return fmt.Errorf("%w: expected %d bytes; got %d", ErrSizeMismatch, len(dst), len(out))
	}

	return nil
}

type zlibDecompressor struct{}

func (zlibDecompressor) Name() string { return "zlib" }

func (zlibDecompressor) Decompress(src, dst []byte) error {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return err
	}
	defer r.Close()

	return readExact(r, dst)
}

type gzipDecompressor struct{}

func (gzipDecompressor) Name() string { return "gzip" }

func (gzipDecompressor) Decompress(src, dst []byte) error {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return err
	}
	defer r.Close()

	return readExact(r, dst)
}

type brotliDecompressor struct{}

func (brotliDecompressor) Name() string { return "brotli" }

func (brotliDecompressor) Decompress(src, dst []byte) error {
	return readExact(brotli.NewReader(bytes.NewReader(src)), dst)
}

// lz4Decompressor handles raw lz4 blocks (no frame header).
type lz4Decompressor struct{}

func (lz4Decompressor) Name() string { return "lz4" }

func (lz4Decompressor) Decompress(src, dst []byte) error {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return fmt.Errorf("%w: expected %d bytes; got %d", ErrSizeMismatch, len(dst), n)
	}

	return nil
}
