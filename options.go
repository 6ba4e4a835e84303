package kraken

import (
	"runtime"

	"github.com/rs/zerolog"
)

// Options configures Decompress and its variants.
type Options struct {
	// Logger receives debug events per block. Nil disables logging.
	Logger *zerolog.Logger
	// MaxSize rejects declared output sizes above it (0 means DefaultMaxSize).
	MaxSize int
	// Concurrency bounds DecompressBlocks workers (0 means GOMAXPROCS).
	Concurrency int
	// AllowTrailing: if true, bytes after the last block are ignored
	// instead of failing with ErrTrailingData.
	AllowTrailing bool
}

// DefaultOptions returns options for default behavior: no logging, strict trailing check.
func DefaultOptions() *Options {
	return &Options{
		MaxSize:     DefaultMaxSize,
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// LenientOptions returns options that ignore trailing input, for containers
// that pad compressed payloads.
func LenientOptions() *Options {
	opts := DefaultOptions()
	opts.AllowTrailing = true

	return opts
}

// logger returns the configured logger or a no-op one.
func (o *Options) logger() *zerolog.Logger {
	if o == nil || o.Logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return o.Logger
}

// maxSize returns the effective output size limit.
func (o *Options) maxSize() int {
	if o == nil || o.MaxSize <= 0 {
		return DefaultMaxSize
	}

	return o.MaxSize
}

// concurrency returns the effective worker count.
func (o *Options) concurrency() int {
	if o == nil || o.Concurrency <= 0 {
		return runtime.GOMAXPROCS(0)
	}

	return o.Concurrency
}
