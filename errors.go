package ndlz2d

import "github.com/pkg/errors"

// Sentinel errors returned by Compress and Decompress. Callers should use
// errors.Is against these rather than comparing wrapped errors directly;
// every returned error is one of these, most of them wrapped with context.
var (
	// ErrInvalidShape covers every precondition that the caller got wrong
	// before a single byte of work could happen: a non-2D context, a
	// non-positive shape, an input length that doesn't match H*W, or a
	// compressed input too short to hold the 9-byte header or whose header
	// does not describe a 2-D block.
	ErrInvalidShape = errors.New("ndlz2d: invalid shape")

	// ErrLeftoverUnsupported is returned when Context.Leftover is set;
	// this layer never decodes or encodes partial trailing blocks.
	ErrLeftoverUnsupported = errors.New("ndlz2d: leftover blocks unsupported")

	// ErrNotCompressible signals the same "fall back to uncompressed"
	// condition the original C returns 0 for: the block is smaller than
	// one cell, the output buffer is below the minimum literal encoding or
	// ran out of room mid-block, or the compressed size grew past the
	// input size.
	ErrNotCompressible = errors.New("ndlz2d: block not compressible")

	// ErrCorruptStream is returned by Decompress when a token byte does
	// not match any entry in the wire format's token table.
	ErrCorruptStream = errors.New("ndlz2d: corrupt token stream")

	// ErrOutputOverrun is returned when the caller's output buffer is
	// smaller than the H*W bytes the header describes.
	ErrOutputOverrun = errors.New("ndlz2d: output overrun")
)
