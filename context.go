package ndlz2d

// CellShape is the edge length of a square cell. The codec tiles every
// block into CellShape x CellShape cells in row-major order.
const CellShape = 8

// CellSize is the number of bytes in one full, unpadded cell.
const CellSize = CellShape * CellShape

// MaxDistance is one past the largest back-reference distance the 16-bit
// offset field can carry. A distance of 0 or >= MaxDistance is treated as
// no match.
const MaxDistance = 65535

// HeaderSize is the fixed size, in bytes, of the per-block header: one
// byte ndim plus two little-endian uint32 shapes.
const HeaderSize = 1 + 4 + 4

// Context mirrors the block-shape configuration a caller supplies to the
// surrounding compression framework. It is the only configuration surface
// this codec has: there is no file or environment layer to bind, since the
// shape is decided per call by whatever is tiling the wider array.
type Context struct {
	// NDim must be 2; any other value is rejected.
	NDim int

	// BlockShape holds [H, W], the block's height and width in bytes.
	BlockShape [2]int

	// Leftover marks a partial trailing block. This layer never supports
	// leftover blocks; the caller's framework is expected to handle them
	// before reaching the codec.
	Leftover bool
}

// Dimensions returns the block's height and width.
func (c Context) Dimensions() (h, w int) {
	return c.BlockShape[0], c.BlockShape[1]
}

// Header is the parsed form of a compressed block's 9-byte header.
type Header struct {
	NDim int
	H    int
	W    int
}

// cellGrid describes how a block's H x W shape tiles into cells, including
// the padding extents of the final cell row/column.
type cellGrid struct {
	h, w       int
	cellRows   int
	cellCols   int
	padRows    int // padding rows in the last cell row, in [1, CellShape]
	padCols    int // padding cols in the last cell column, in [1, CellShape]
}

func newCellGrid(h, w int) cellGrid {
	g := cellGrid{h: h, w: w}
	g.cellRows = (h + CellShape - 1) / CellShape
	g.cellCols = (w + CellShape - 1) / CellShape

	g.padRows = h % CellShape
	if g.padRows == 0 {
		g.padRows = CellShape
	}
	g.padCols = w % CellShape
	if g.padCols == 0 {
		g.padCols = CellShape
	}
	return g
}

// cellExtent returns the logical row/column extent of the cell at (ri, ci)
// in cell coordinates: CellShape unless it is the last row/column and the
// block dimension isn't a multiple of CellShape.
func (g cellGrid) cellExtent(ri, ci int) (rows, cols int) {
	rows, cols = CellShape, CellShape
	if ri == g.cellRows-1 {
		rows = g.padRows
	}
	if ci == g.cellCols-1 {
		cols = g.padCols
	}
	return
}

func (g cellGrid) isPadded(ri, ci int) bool {
	rows, cols := g.cellExtent(ri, ci)
	return rows != CellShape || cols != CellShape
}

// cellOrigin returns the offset, in row-major block bytes, of the
// top-left corner of the cell at (ri, ci).
func (g cellGrid) cellOrigin(ri, ci int) int {
	return ri*CellShape*g.w + ci*CellShape
}
