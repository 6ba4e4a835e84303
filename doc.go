/*
Package kraken implements a pure-Go decoder for Oodle Kraken compressed streams.

Format: the output is cut into 256 KiB blocks. Each block opens with a 2-byte
header (low nibble 0xC, decoder type 6 for Kraken) followed by a quantum
header: a 24-bit big-endian compressed size, or an escape that fills the
block with one byte. A compressed quantum is split into 128 KiB sub-chunks,
each either a single entropy block or an LZ sub-chunk made of literal,
command, offset and length streams.
Entropy blocks are stored, Huffman (3 or 6 interleaved streams, code
lengths 1..11), tANS, RLE or a recursive composition of those.
Matches copy from anywhere in the output produced so far; the three most
recent distances are cached and reused by index.

Oodle streams do not store the decompressed size; the caller supplies it.

Use Decompress(src, outLen, opts) with nil for default options.
Use DecompressInto(src, dst, size, opts) to decode into a caller buffer.
Use DecompressBlock(src, outLen, opts) to decode from the beginning of src and get consumed bytes.
Use DecompressFromReader(r, outLen, opts) to decode one stream without reading to EOF.
Use DecompressBlocks(ctx, blocks, opts) to decode independent streams concurrently.
Use LenientOptions() for containers that pad compressed payloads.

# Examples

Decompress with default options (strict, no logging):

	out, err := kraken.Decompress(encoded, expectedLen, nil)
	if err != nil {
		return err
	}

Decompress into an existing buffer:

	n, err := kraken.DecompressInto(encoded, buf, expectedLen, nil)
	if err != nil {
		return err
	}
	_ = buf[:n]

Decompress one stream from a reader and continue from the current position:

	out, consumed, err := kraken.DecompressFromReader(r, expectedLen, nil)
	if err != nil {
		return err
	}
	_ = consumed

Decompress with debug logging:

	logger := zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
	opts := kraken.DefaultOptions()
	opts.Logger = &logger
	out, err := kraken.Decompress(src, outLen, opts)

Errors are sentinel values; match them with errors.Is:

	if errors.Is(err, kraken.ErrTruncatedInput) {
		// need more input
	}
*/
package kraken
