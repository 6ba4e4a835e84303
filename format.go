package kraken

// Stream layout constants.
const (
	BlockSize    = 0x40000 // Output bytes covered by one block header (256 KiB).
	SubChunkSize = 0x20000 // Output bytes covered by one LZ sub-chunk (128 KiB).
	MinOffset    = 8       // Smallest distance the Kraken distance code can express.
	InitialLits  = 8       // Raw bytes leading the very first sub-chunk of a stream.

	// DefaultMaxSize bounds the declared output size when Options.MaxSize is zero.
	DefaultMaxSize = 1 << 30
)

// DecoderType is the codec identifier stored in the second byte of each block header.
type DecoderType uint8

// Oodle decoder types. Only Kraken is decoded by this package.
const (
	DecoderLZNA      DecoderType = 5
	DecoderKraken    DecoderType = 6
	DecoderMermaid   DecoderType = 10 // Mermaid and Selkie share this id.
	DecoderBitKnit   DecoderType = 11
	DecoderLeviathan DecoderType = 12
)

// String returns the codec name.
func (t DecoderType) String() string {
	switch t {
	case DecoderLZNA:
		return "lzna"
	case DecoderKraken:
		return "kraken"
	case DecoderMermaid:
		return "mermaid"
	case DecoderBitKnit:
		return "bitknit"
	case DecoderLeviathan:
		return "leviathan"
	default:
		return "unknown"
	}
}

// Block header bits (first byte).
const (
	blockMagicMask   = 0x0F
	blockMagic       = 0x0C
	blockReserved    = 0x30
	blockUncompFlag  = 0x40
	blockRestartFlag = 0x80
	blockChecksumBit = 0x80 // second byte
	blockTypeMask    = 0x7F // second byte
)

// Quantum header fields.
const (
	quantumSizeMask   = 0x3FFFF
	quantumSizeEscape = 0x3FFFF
	quantumMemset     = 1
)

// Sub-chunk header fields (24-bit big-endian).
const (
	chunkLZFlag   = 0x800000
	chunkSizeMask = 0x7FFFF
	chunkModeMask = 0xF
	chunkModeBits = 19
)

// LZ literal modes.
const (
	lzModeDelta = 0 // literal = stored byte + byte at last offset
	lzModeRaw   = 1 // literal = stored byte
)

// Entropy block types (bits 4..6 of the first header byte).
const (
	entropyStored    = 0
	entropyTANS      = 1
	entropyHuffman3  = 2
	entropyRLE       = 3
	entropyHuffman6  = 4
	entropyRecursive = 5
)

// Huffman limits.
const (
	huffMaxCodeLen = 11
	huffLUTBits    = 11
	huffLUTSize    = 1 << huffLUTBits
	huffSymCap     = 1280
)

// maxLongLengths bounds the bit-coded u32 length list of one sub-chunk (128 KiB / 256).
const maxLongLengths = 512
