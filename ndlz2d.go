// Package ndlz2d implements the ndlz8 two-dimensional block byte codec: an
// LZ77-style compressor tuned for small square-tiled byte blocks, plus the
// BlockCopyEngine primitives (FastCopy/SafeCopy, in internal/blockcopy) its
// decoder is built on.
//
// Compress and Decompress are the package's two stateless entry points,
// each backed by a fresh Encoder/Decoder; callers that compress many blocks
// back to back should construct their own Encoder once and reuse it, since
// it holds the hasher and hash tables that would otherwise be reallocated
// per call. A Decoder holds no state.
package ndlz2d

import "github.com/pkg/errors"

// Compress encodes input (row-major, shape ctx.BlockShape) into output,
// returning the number of bytes written.
func Compress(ctx Context, input, output []byte) (int, error) {
	return NewEncoder().Compress(ctx, input, output)
}

// Decompress reconstructs the block encoded in input into output
// (row-major), returning the number of bytes written.
func Decompress(input, output []byte) (int, error) {
	return NewDecoder().Decompress(input, output)
}

// ReadHeader parses the fixed 9-byte header at the start of a compressed
// block without decoding any cell data, returning the parsed Header and
// the header's size in bytes (always HeaderSize, returned for symmetry
// with the rest of the package's cursor-returning functions).
func ReadHeader(input []byte) (Header, int, error) {
	var hdr Header
	if len(input) < HeaderSize {
		return hdr, 0, errors.Wrap(ErrInvalidShape, "input shorter than header")
	}
	ndim := int(input[0])
	if ndim != 2 {
		return hdr, 0, errors.Wrapf(ErrInvalidShape, "unsupported ndim %d", ndim)
	}
	hdr = Header{
		NDim: ndim,
		H:    int(getU32LE(input[1:])),
		W:    int(getU32LE(input[5:])),
	}
	return hdr, HeaderSize, nil
}

// MaxCompressedSize returns the largest number of bytes Compress could ever
// write for a block of the given height and width: the fixed header, plus
// every cell stored as an uncompressed literal record (one token byte plus
// CellSize data bytes), which is what the encoder falls back to whenever no
// match class beats it. Callers sizing an output buffer up front can use
// this as a safe upper bound. Compress checks before every cell that at
// least 1+CellSize bytes of output remain, so a smaller buffer can fail
// with ErrNotCompressible even when the encoding it would produce fits.
func MaxCompressedSize(h, w int) int {
	grid := newCellGrid(h, w)
	numCells := grid.cellRows * grid.cellCols
	return HeaderSize + numCells*(1+CellSize)
}

// DecodeStats summarizes a decoded block without materializing its bytes:
// how many cells fell into each match class, and the block's shape. It
// exists for callers instrumenting compression ratio or match-class mix
// across many blocks without paying to re-decode for that purpose.
type DecodeStats struct {
	H, W int

	Literal    int
	Constant   int
	WholeCell  int
	OnePair    int
	TwoPairs   int
	ThreePairs int
	OneTriple  int
	TwoTriples int
}

// DecompressWithStats behaves like Decompress, additionally returning a
// tally of which match class produced each cell. It re-parses the token
// stream structurally rather than sharing Decoder.decodeCell's byte
// reconstruction, since the two walks need different return shapes; both
// walks are driven by the same grid and token layout, so they stay in
// lockstep by construction.
func DecompressWithStats(input, output []byte) (int, DecodeStats, error) {
	var stats DecodeStats

	header, headerSize, err := ReadHeader(input)
	if err != nil {
		return 0, stats, err
	}
	stats.H, stats.W = header.H, header.W

	grid := newCellGrid(header.H, header.W)
	cursor := headerSize

	for ri := 0; ri < grid.cellRows; ri++ {
		for ci := 0; ci < grid.cellCols; ci++ {
			if grid.isPadded(ri, ci) {
				if cursor >= len(input) {
					return 0, stats, errors.Wrap(ErrCorruptStream, "truncated padded cell")
				}
				padRows, padCols := grid.cellExtent(ri, ci)
				stats.Literal++
				cursor += 1 + padRows*padCols
				continue
			}

			if cursor >= len(input) {
				return 0, stats, errors.Wrap(ErrCorruptStream, "truncated cell record")
			}
			tok := input[cursor]

			switch tok {
			case tokenLiteral:
				stats.Literal++
				cursor += 1 + CellSize
			case tokenConstant:
				stats.Constant++
				cursor += 2
			case tokenCellRef:
				stats.WholeCell++
				cursor += 3
			default:
				switch matchTypeOf(tok) {
				case matchOnePair:
					stats.OnePair++
					cursor = advancePastRows(cursor+3, 1, shapePair.rowSpan)
				case matchOneTriple:
					stats.OneTriple++
					cursor = advancePastRows(cursor+3, 1, shapeTriple.rowSpan)
				case matchTwoPairs:
					stats.TwoPairs++
					cursor = advancePastRows(cursor+6, 2, shapePair.rowSpan)
				case matchTwoTriples:
					stats.TwoTriples++
					cursor = advancePastRows(cursor+6, 2, shapeTriple.rowSpan)
				case matchThreePairs:
					stats.ThreePairs++
					cursor = advancePastRows(cursor+8, 3, 2)
				default:
					return 0, stats, errors.Wrapf(ErrCorruptStream, "unrecognized token 0x%02x", tok)
				}
			}
		}
	}

	n, err := NewDecoder().Decompress(input, output)
	return n, stats, err
}

// advancePastRows returns the cursor after skipping the CellShape-byte
// literal rows for a cell record that already matched matchedSpans rows of
// rowSpan width each.
func advancePastRows(cursor, matchedSpans, rowSpan int) int {
	literalRows := CellShape - matchedSpans*rowSpan
	return cursor + literalRows*CellShape
}
