package ndlz2d

import (
	"github.com/pkg/errors"

	"github.com/blocklz/ndlz2d/internal/blockcopy"
)

// Decoder holds no per-call state beyond what Decompress needs on its own
// stack; it exists so the package's two directions of travel (Encoder,
// Decoder) read symmetrically, and so a future stateful optimization (a
// reusable scratch buffer, say) has somewhere to live without changing the
// call sites.
type Decoder struct{}

// NewDecoder returns a Decoder ready for repeated Decompress calls.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// rowMatchShape describes the fixed geometry of one of the row-oriented
// match classes: how many bytes one matched row spans, and how many rows a
// single/two/three-row record covers.
type rowMatchShape struct {
	rowBytes int
	rowSpan  int
}

var (
	shapePair   = rowMatchShape{rowBytes: 16, rowSpan: 2}
	shapeTriple = rowMatchShape{rowBytes: 24, rowSpan: 3}
)

// Decompress reconstructs the 2-D block encoded in input into output
// (row-major), returning the number of bytes written. Back-references in
// the wire format are self-referential into input, the compressed stream
// itself: a record's offset field measures backward from that record's own
// token byte to an earlier position in input holding the literal bytes
// being referenced. This is why FastCopy, not SafeCopy, is the right
// primitive for every copy in this decoder: input is a complete, static
// buffer by the time decoding starts, so a back-reference's source range
// was already finished being written (as a literal) before the reference
// to it was ever emitted, and the two ranges can never alias.
func (d *Decoder) Decompress(input, output []byte) (int, error) {
	header, headerSize, err := ReadHeader(input)
	if err != nil {
		return 0, err
	}

	h, w := header.H, header.W
	if h <= 0 || w <= 0 {
		return 0, errors.Wrap(ErrInvalidShape, "header shape must be positive")
	}
	if len(output) < h*w {
		return 0, errors.Wrap(ErrOutputOverrun, "output buffer smaller than H*W")
	}
	for i := range output[:h*w] {
		output[i] = 0
	}

	grid := newCellGrid(h, w)
	cursor := headerSize

	var cellBuf [CellSize]byte

	for ri := 0; ri < grid.cellRows; ri++ {
		for ci := 0; ci < grid.cellCols; ci++ {
			origin := grid.cellOrigin(ri, ci)

			if grid.isPadded(ri, ci) {
				padRows, padCols := grid.cellExtent(ri, ci)
				if cursor >= len(input) || input[cursor] != tokenLiteral {
					return 0, errors.Wrap(ErrCorruptStream, "padded cell missing literal token")
				}
				cursor++
				for r := 0; r < padRows; r++ {
					if cursor+padCols > len(input) {
						return 0, errors.Wrap(ErrCorruptStream, "truncated padded cell")
					}
					rowStart := origin + r*w
					copy(output[rowStart:rowStart+padCols], input[cursor:cursor+padCols])
					cursor += padCols
				}
				continue
			}

			next, err := d.decodeCell(input, cursor, cellBuf[:])
			if err != nil {
				return 0, err
			}
			cursor = next

			for r := 0; r < CellShape; r++ {
				rowStart := origin + r*w
				copy(output[rowStart:rowStart+CellShape], cellBuf[r*CellShape:r*CellShape+CellShape])
			}
		}
	}

	if cursor != len(input) {
		return 0, errors.Wrap(ErrCorruptStream, "trailing bytes after last cell")
	}

	pkgLogger.WithField("bytes", h*w).Trace("ndlz2d: block decompressed")
	return h * w, nil
}

// decodeCell reads one full, unpadded cell's record starting at
// input[recordStart:] into cellBuf, and returns the new read cursor.
func (d *Decoder) decodeCell(input []byte, recordStart int, cellBuf []byte) (int, error) {
	if recordStart >= len(input) {
		return 0, errors.Wrap(ErrCorruptStream, "truncated cell record")
	}
	tok := input[recordStart]

	switch tok {
	case tokenLiteral:
		if recordStart+1+CellSize > len(input) {
			return 0, errors.Wrap(ErrCorruptStream, "truncated literal cell")
		}
		copy(cellBuf, input[recordStart+1:recordStart+1+CellSize])
		return recordStart + 1 + CellSize, nil

	case tokenConstant:
		if recordStart+2 > len(input) {
			return 0, errors.Wrap(ErrCorruptStream, "truncated constant cell")
		}
		v := input[recordStart+1]
		for i := range cellBuf {
			cellBuf[i] = v
		}
		return recordStart + 2, nil

	case tokenCellRef:
		if recordStart+3 > len(input) {
			return 0, errors.Wrap(ErrCorruptStream, "truncated whole-cell reference")
		}
		off := int(getU16LE(input[recordStart+1:]))
		src, err := backref(input, recordStart, off, CellSize)
		if err != nil {
			return 0, err
		}
		blockcopy.FastCopy(cellBuf, src, CellSize)
		return recordStart + 3, nil
	}

	mt := matchTypeOf(tok)
	switch mt {
	case matchOnePair, matchOneTriple:
		shape := shapePair
		if mt == matchOneTriple {
			shape = shapeTriple
		}
		row := rowOf(tok)
		if row*CellShape+shape.rowBytes > CellSize {
			return 0, errors.Wrapf(ErrCorruptStream, "row %d out of range for %d-byte match", row, shape.rowBytes)
		}
		if recordStart+3 > len(input) {
			return 0, errors.Wrap(ErrCorruptStream, "truncated one-row match")
		}
		off := int(getU16LE(input[recordStart+1:]))
		src, err := backref(input, recordStart, off, shape.rowBytes)
		if err != nil {
			return 0, err
		}
		blockcopy.FastCopy(cellBuf[row*CellShape:], src, shape.rowBytes)
		return d.fillLiteralRows(input, recordStart+3, cellBuf, [][2]int{{row, shape.rowSpan}})

	case matchTwoPairs, matchTwoTriples:
		shape := shapePair
		if mt == matchTwoTriples {
			shape = shapeTriple
		}
		if recordStart+6 > len(input) {
			return 0, errors.Wrap(ErrCorruptStream, "truncated two-row match")
		}
		i, iP := decodeTwoRowToken(input[recordStart], input[recordStart+1])
		if i*CellShape+shape.rowBytes > CellSize || iP*CellShape+shape.rowBytes > CellSize {
			return 0, errors.Wrapf(ErrCorruptStream, "row index out of range (i=%d, iP=%d) for %d-byte match", i, iP, shape.rowBytes)
		}
		off1 := int(getU16LE(input[recordStart+2:]))
		off2 := int(getU16LE(input[recordStart+4:]))

		src1, err := backref(input, recordStart, off1, shape.rowBytes)
		if err != nil {
			return 0, err
		}
		blockcopy.FastCopy(cellBuf[i*CellShape:], src1, shape.rowBytes)

		src2, err := backref(input, recordStart, off2, shape.rowBytes)
		if err != nil {
			return 0, err
		}
		blockcopy.FastCopy(cellBuf[iP*CellShape:], src2, shape.rowBytes)

		return d.fillLiteralRows(input, recordStart+6, cellBuf, [][2]int{{i, shape.rowSpan}, {iP, shape.rowSpan}})

	case matchThreePairs:
		if recordStart+8 > len(input) {
			return 0, errors.Wrap(ErrCorruptStream, "truncated three-row match")
		}
		i, iP, iPP := decodeThreeRowToken(input[recordStart], input[recordStart+1])
		off1 := int(getU16LE(input[recordStart+2:]))
		off2 := int(getU16LE(input[recordStart+4:]))
		off3 := int(getU16LE(input[recordStart+6:]))

		for _, pr := range []struct {
			row int
			off int
		}{{i, off1}, {iP, off2}, {iPP, off3}} {
			if pr.row*CellShape+shapePair.rowBytes > CellSize {
				return 0, errors.Wrapf(ErrCorruptStream, "row %d out of range for %d-byte match", pr.row, shapePair.rowBytes)
			}
			src, err := backref(input, recordStart, pr.off, shapePair.rowBytes)
			if err != nil {
				return 0, err
			}
			blockcopy.FastCopy(cellBuf[pr.row*CellShape:], src, shapePair.rowBytes)
		}

		return d.fillLiteralRows(input, recordStart+8, cellBuf, [][2]int{{i, 2}, {iP, 2}, {iPP, 2}})
	}

	return 0, errors.Wrapf(ErrCorruptStream, "unrecognized token 0x%02x", tok)
}

// fillLiteralRows reads, in ascending row order, the literal CellShape-byte
// rows the encoder emits for every row not covered by a match span, and
// returns the new read cursor. spans lists the [startRow, rowSpan) ranges
// already filled by matches.
func (d *Decoder) fillLiteralRows(input []byte, cursor int, cellBuf []byte, spans [][2]int) (int, error) {
	for row := 0; row < CellShape; row++ {
		covered := false
		for _, s := range spans {
			if row >= s[0] && row < s[0]+s[1] {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		if cursor+CellShape > len(input) {
			return 0, errors.Wrap(ErrCorruptStream, "truncated literal row")
		}
		copy(cellBuf[row*CellShape:row*CellShape+CellShape], input[cursor:cursor+CellShape])
		cursor += CellShape
	}
	return cursor, nil
}

// backref resolves a record's offset field into a source slice of length
// bytes within input, rejecting distances the wire format forbids (zero,
// or past MaxDistance) and any source range that would run outside the
// portion of input already written.
func backref(input []byte, recordStart, offset, length int) ([]byte, error) {
	if offset <= 0 || offset >= MaxDistance {
		return nil, errors.Wrapf(ErrCorruptStream, "offset %d out of range", offset)
	}
	src := recordStart - offset
	if src < 0 || src+length > recordStart {
		return nil, errors.Wrap(ErrCorruptStream, "back-reference out of bounds")
	}
	return input[src : src+length], nil
}
