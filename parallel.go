// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Maxim Levchenko (WoozyMasta)
// Source: github.com/woozymasta/kraken

package kraken

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Block is one independently compressed Kraken stream and its decompressed size.
type Block struct {
	Src  []byte
	Size int
}

// DecompressBlocks decompresses independent streams concurrently, at most
// Options.Concurrency at a time. Results keep the order of blocks.
// The first failure cancels the remaining work and is returned.
func DecompressBlocks(ctx context.Context, blocks []Block, opts *Options) ([][]byte, error) {
	for i, b := range blocks {
		if b.Src == nil && b.Size != 0 {
			return nil, fmt.Errorf("%w: index %d", ErrNilBlock, i)
		}
	}

	out := make([][]byte, len(blocks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())

	for i, b := range blocks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			dec, err := Decompress(b.Src, b.Size, opts)
			if err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			out[i] = dec

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts.logger().Debug().Int("blocks", len(blocks)).Msg("kraken blocks decoded")

	return out, nil
}
