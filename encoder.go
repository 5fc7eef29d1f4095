package ndlz2d

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Encoder holds the per-call state a single Compress invocation needs: a
// reusable hasher and the three match-class hash tables. Nothing here
// survives past one call; NewEncoder and Compress are cheap to call per
// block.
type Encoder struct {
	hasher *cellHasher
	tables hashTables
}

// NewEncoder returns an Encoder ready for repeated Compress calls. Reusing
// one Encoder across blocks avoids re-allocating the hash tables and
// hasher on every call.
func NewEncoder() *Encoder {
	return &Encoder{hasher: newCellHasher()}
}

// Compress encodes the 2-D byte block input (row-major, shape
// ctx.BlockShape) into output, returning the number of bytes written.
//
// A nil error with a return of 0 never happens: incompressible or
// too-small-output conditions are reported as ErrNotCompressible, not a
// bare 0, since Go callers branch on errors rather than on sign.
func (e *Encoder) Compress(ctx Context, input, output []byte) (int, error) {
	if ctx.NDim != 2 {
		return 0, errors.Wrap(ErrInvalidShape, "ndim must be 2")
	}
	if ctx.Leftover {
		return 0, ErrLeftoverUnsupported
	}

	h, w := ctx.Dimensions()
	if h <= 0 || w <= 0 {
		return 0, errors.Wrap(ErrInvalidShape, "block shape must be positive")
	}
	if len(input) != h*w {
		return 0, errors.Wrapf(ErrInvalidShape, "input length %d does not match H*W=%d", len(input), h*w)
	}

	grid := newCellGrid(h, w)
	numCells := grid.cellRows * grid.cellCols
	overhead := 17 + (numCells-1)*2
	if h*w < CellSize {
		return 0, errors.Wrap(ErrNotCompressible, "block smaller than one cell")
	}
	if len(output) < HeaderSize+overhead {
		return 0, errors.Wrap(ErrNotCompressible, "output capacity below minimum literal encoding")
	}

	e.tables.reset()

	output[0] = 2
	putU32LE(output[1:], uint32(h))
	putU32LE(output[5:], uint32(w))
	cursor := HeaderSize

	var cellBuf [CellSize]byte

	for ri := 0; ri < grid.cellRows; ri++ {
		for ci := 0; ci < grid.cellCols; ci++ {
			if len(output)-cursor < CellSize+1 {
				return 0, errors.Wrap(ErrNotCompressible, "output too small mid-block")
			}

			anchor := cursor
			origin := grid.cellOrigin(ri, ci)

			if grid.isPadded(ri, ci) {
				padRows, padCols := grid.cellExtent(ri, ci)
				output[cursor] = tokenLiteral
				cursor++
				for r := 0; r < padRows; r++ {
					rowStart := origin + r*w
					cursor += copy(output[cursor:], input[rowStart:rowStart+padCols])
				}
			} else {
				for r := 0; r < CellShape; r++ {
					rowStart := origin + r*w
					copy(cellBuf[r*CellShape:], input[rowStart:rowStart+CellShape])
				}
				cursor = e.encodeCell(cellBuf[:], anchor, output)
			}

			if cursor > len(input) {
				return 0, errors.Wrap(ErrNotCompressible, "compressed size exceeds input size")
			}
		}
	}

	pkgLogger.WithField("bytes", cursor).Trace("ndlz2d: block compressed")
	return cursor, nil
}

// encodeCell writes the token record for one full, unpadded cell starting
// at output[anchor:] and returns the new write cursor. It implements the
// match-class search in the same order the original scans them: constant,
// whole-cell, triple-row, pair-row, then literal.
func (e *Encoder) encodeCell(cellBuf []byte, anchor int, output []byte) int {
	if isConstant(cellBuf) {
		output[anchor] = tokenConstant
		output[anchor+1] = cellBuf[0]
		return anchor + 2
	}

	hCell := e.hasher.hash12(cellBuf)
	if pos, ok := e.tables.cell.get(hCell); ok && e.validMatch(output, pos, cellBuf, CellSize, anchor) {
		output[anchor] = tokenCellRef
		putU16LE(output[anchor+1:], uint16(anchor-pos))
		return anchor + 3
	}

	var stageTriple [6]stagedEntry
	tripleFound := false
	tripleRow, triplePos := 0, 0

	for i := 0; i < 6; i++ {
		data := cellBuf[i*CellShape : i*CellShape+24]
		h := e.hasher.hash12(data)
		pos, ok := e.tables.triple.get(h)
		if !(ok && e.validMatch(output, pos, data, 24, anchor)) {
			stageTriple[i] = stagedEntry{hash: h, rowOffset: i * CellShape, valid: true}
			continue
		}

		for iP := i + 3; iP < 6; iP++ {
			data2 := cellBuf[iP*CellShape : iP*CellShape+24]
			h2 := e.hasher.hash12(data2)
			pos2, ok2 := e.tables.triple.get(h2)
			if ok2 && e.validMatch(output, pos2, data2, 24, anchor) {
				return e.emitTwoTriples(output, anchor, cellBuf, i, iP, anchor-pos, anchor-pos2)
			}
		}

		if !tripleFound {
			tripleFound, tripleRow, triplePos = true, i, pos
		}
	}

	var stagePair [7]stagedEntry
	pairLevel := 0
	pairRow, pairRow2, pairPos, pairPos2 := 0, 0, 0, 0

	for i := 0; i < 7; i++ {
		data := cellBuf[i*CellShape : i*CellShape+16]
		h := e.hasher.hash12(data)
		pos, ok := e.tables.pair.get(h)
		if !(ok && e.validMatch(output, pos, data, 16, anchor)) {
			stagePair[i] = stagedEntry{hash: h, rowOffset: i * CellShape, valid: true}
			continue
		}
		if pairLevel < 1 {
			pairLevel, pairRow, pairPos = 1, i, pos
		}

		for iP := i + 2; iP < 7; iP++ {
			data2 := cellBuf[iP*CellShape : iP*CellShape+16]
			h2 := e.hasher.hash12(data2)
			pos2, ok2 := e.tables.pair.get(h2)
			if !(ok2 && e.validMatch(output, pos2, data2, 16, anchor)) {
				continue
			}
			if pairLevel < 2 {
				pairLevel, pairRow, pairRow2, pairPos, pairPos2 = 2, i, iP, pos, pos2
			}

			for iPP := iP + 2; iPP < 7; iPP++ {
				data3 := cellBuf[iPP*CellShape : iPP*CellShape+16]
				h3 := e.hasher.hash12(data3)
				pos3, ok3 := e.tables.pair.get(h3)
				if ok3 && e.validMatch(output, pos3, data3, 16, anchor) {
					return e.emitThreePairs(output, anchor, cellBuf, i, iP, iPP, anchor-pos, anchor-pos2, anchor-pos3)
				}
			}
		}
	}

	switch {
	case pairLevel == 2:
		return e.emitTwoPairs(output, anchor, cellBuf, pairRow, pairRow2, anchor-pairPos, anchor-pairPos2)
	case tripleFound:
		return e.emitOneTriple(output, anchor, cellBuf, tripleRow, anchor-triplePos)
	case pairLevel == 1:
		return e.emitOnePair(output, anchor, cellBuf, pairRow, anchor-pairPos)
	}

	// Literal fallback: the only case that commits staged hash-table
	// updates, since these are the only positions guaranteed to hold the
	// verbatim bytes a later match could reference.
	output[anchor] = tokenLiteral
	copy(output[anchor+1:], cellBuf)
	e.tables.cell.set(hCell, anchor+1)
	for _, s := range stageTriple {
		if s.valid {
			e.tables.triple.set(s.hash, anchor+1+s.rowOffset)
		}
	}
	for _, s := range stagePair {
		if s.valid {
			e.tables.pair.set(s.hash, anchor+1+s.rowOffset)
		}
	}
	return anchor + 1 + CellSize
}

// stagedEntry records a hash-table miss discovered mid-scan, to be
// committed only if the cell ultimately falls back to a literal.
type stagedEntry struct {
	hash      uint32
	rowOffset int
	valid     bool
}

// validMatch checks both that the candidate position's bytes equal data
// and that its distance from anchor falls in the wire format's valid
// range. pos is a data-start position (one past the referenced cell or
// row's token byte), matching what the hash tables store.
func (e *Encoder) validMatch(output []byte, pos int, data []byte, length, anchor int) bool {
	d := anchor - pos
	if d <= 0 || d >= MaxDistance {
		return false
	}
	if pos+length > len(output) {
		return false
	}
	return bytesEqual(output[pos:pos+length], data)
}

func (e *Encoder) emitTwoTriples(output []byte, anchor int, cellBuf []byte, i, iP, off1, off2 int) int {
	first, second := encodeTwoRowToken(matchTwoTriples, i, iP)
	output[anchor] = first
	output[anchor+1] = second
	putU16LE(output[anchor+2:], uint16(off1))
	putU16LE(output[anchor+4:], uint16(off2))
	cursor := anchor + 6
	for row := 0; row < CellShape; row++ {
		if inRange(row, i, 3) || inRange(row, iP, 3) {
			continue
		}
		cursor += copy(output[cursor:], cellBuf[row*CellShape:row*CellShape+CellShape])
	}
	return cursor
}

func (e *Encoder) emitOneTriple(output []byte, anchor int, cellBuf []byte, row, off int) int {
	output[anchor] = encodeOneRowToken(matchOneTriple, row)
	putU16LE(output[anchor+1:], uint16(off))
	cursor := anchor + 3
	for r := 0; r < CellShape; r++ {
		if inRange(r, row, 3) {
			continue
		}
		cursor += copy(output[cursor:], cellBuf[r*CellShape:r*CellShape+CellShape])
	}
	return cursor
}

func (e *Encoder) emitThreePairs(output []byte, anchor int, cellBuf []byte, i, iP, iPP, off1, off2, off3 int) int {
	first, second := encodeThreeRowToken(i, iP, iPP)
	output[anchor] = first
	output[anchor+1] = second
	putU16LE(output[anchor+2:], uint16(off1))
	putU16LE(output[anchor+4:], uint16(off2))
	putU16LE(output[anchor+6:], uint16(off3))
	cursor := anchor + 8
	for row := 0; row < CellShape; row++ {
		if inRange(row, i, 2) || inRange(row, iP, 2) || inRange(row, iPP, 2) {
			continue
		}
		cursor += copy(output[cursor:], cellBuf[row*CellShape:row*CellShape+CellShape])
	}
	return cursor
}

func (e *Encoder) emitTwoPairs(output []byte, anchor int, cellBuf []byte, i, iP, off1, off2 int) int {
	first, second := encodeTwoRowToken(matchTwoPairs, i, iP)
	output[anchor] = first
	output[anchor+1] = second
	putU16LE(output[anchor+2:], uint16(off1))
	putU16LE(output[anchor+4:], uint16(off2))
	cursor := anchor + 6
	for row := 0; row < CellShape; row++ {
		if inRange(row, i, 2) || inRange(row, iP, 2) {
			continue
		}
		cursor += copy(output[cursor:], cellBuf[row*CellShape:row*CellShape+CellShape])
	}
	return cursor
}

func (e *Encoder) emitOnePair(output []byte, anchor int, cellBuf []byte, row, off int) int {
	output[anchor] = encodeOneRowToken(matchOnePair, row)
	putU16LE(output[anchor+1:], uint16(off))
	cursor := anchor + 3
	for r := 0; r < CellShape; r++ {
		if inRange(r, row, 2) {
			continue
		}
		cursor += copy(output[cursor:], cellBuf[r*CellShape:r*CellShape+CellShape])
	}
	return cursor
}

func inRange(row, start, span int) bool {
	return row >= start && row < start+span
}

func isConstant(cellBuf []byte) bool {
	v := cellBuf[0]
	for _, b := range cellBuf[1:] {
		if b != v {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func putU16LE(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}

func putU32LE(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

func getU16LE(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

func getU32LE(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
