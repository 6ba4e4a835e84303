// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

// Package compr provides one interface over the block codecs found in
// game asset containers: Oodle Kraken plus zstd, zlib, gzip, brotli and lz4.
package compr

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Decompressor decompresses a whole block into a caller-sized buffer.
type Decompressor interface {
	// Name is the registry name of the codec.
	Name() string
	// Decompress fills dst exactly from src. It fails when src decodes
	// to fewer or more than len(dst) bytes.
	//
	// It must be safe to call Decompress from several goroutines.
	Decompress(src, dst []byte) error
}

var (
	// ErrUnknownCodec is returned by Lookup for unregistered names.
	ErrUnknownCodec = errors.New("unknown codec")
	// ErrSizeMismatch reports output that does not fill dst exactly.
	ErrSizeMismatch = errors.New("decompressed size mismatch")
)

var (
	mu       sync.RWMutex
	registry = map[string]Decompressor{}
)

// Register adds d under d.Name(). Registering a name twice panics.
func Register(d Decompressor) {
	mu.Lock()
	defer mu.Unlock()

	if _, found := registry[d.Name()]; found {
		// codecs register on package initialization; no place for error handling
		panic(fmt.Sprintf("compr: already registered: %s", d.Name()))
	}
	registry[d.Name()] = d
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Decompressor, error) {
	mu.RLock()
	defer mu.RUnlock()

	d, found := registry[name]
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	return d, nil
}

// Names returns registered codec names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Decompress looks up name and decompresses src into a new buffer of size bytes.
func Decompress(name string, src []byte, size int) ([]byte, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	dst := make([]byte, size)
	if err := d.Decompress(src, dst); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return dst, nil
}

// readExact fills dst from r and requires r to end right after it.
func readExact(r io.Reader, dst []byte) error {
	n, err := io.ReadFull(r, dst)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: expected %d bytes; got %d", ErrSizeMismatch, len(dst), n)
		}

		return err
	}

	var one [1]byte
	if m, err := r.Read(one[:]); m > 0 {
		return fmt.Errorf("%w: output exceeds %d bytes", ErrSizeMismatch, len(dst))
	} else if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}
