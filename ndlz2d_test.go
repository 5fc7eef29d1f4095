package ndlz2d

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func block(h, w int, fill func(r, c int) byte) []byte {
	buf := make([]byte, h*w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			buf[r*w+c] = fill(r, c)
		}
	}
	return buf
}

func testBlockSet() []struct {
	name string
	h, w int
	data []byte
} {
	return []struct {
		name string
		h, w int
		data []byte
	}{
		{name: "single-cell-constant", h: 8, w: 8, data: bytes.Repeat([]byte{0x2a}, 64)},
		{
			name: "single-cell-gradient", h: 8, w: 8,
			data: block(8, 8, func(r, c int) byte { return byte(r*8 + c) }),
		},
		{
			name: "repeated-cells", h: 16, w: 16,
			data: bytes.Repeat(block(8, 8, func(r, c int) byte { return byte(r + c) }), 4),
		},
		{
			name: "padded-block", h: 10, w: 13,
			data: block(10, 13, func(r, c int) byte { return byte((r*13 + c) % 251) }),
		},
		{
			name: "row-repeat-pattern", h: 8, w: 8,
			data: block(8, 8, func(r, c int) byte {
				if r%2 == 0 {
					return byte(c)
				}
				return byte(c + 1)
			}),
		},
		{
			name: "multi-cell-mixed", h: 24, w: 24,
			data: block(24, 24, func(r, c int) byte {
				switch {
				case r < 8 && c < 8:
					return 0x77
				case r < 8:
					return byte(r + c)
				default:
					return byte((r * c) % 256)
				}
			}),
		},
	}
}

// compressOrSkip runs Compress and skips the test when it declines with
// ErrNotCompressible. A cell whose only available encoding is a literal
// record (no constant, whole-cell, or row match beats it) always costs one
// token byte more than the raw bytes it carries, per spec.md §4.2.3 step 9's
// expansion guard; a block small or unstructured enough that this happens
// for all of its cells is a legitimately incompressible input, not a codec
// bug. See DESIGN.md for the S1-vs-step-9 reconciliation.
func compressOrSkip(t *testing.T, ctx Context, data, output []byte) ([]byte, bool) {
	t.Helper()
	n, err := Compress(ctx, data, output)
	if errors.Is(err, ErrNotCompressible) {
		t.Skipf("block is legitimately incompressible: %v", err)
		return nil, false
	}
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	return output[:n], true
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	for _, tc := range testBlockSet() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := Context{NDim: 2, BlockShape: [2]int{tc.h, tc.w}}
			output := make([]byte, MaxCompressedSize(tc.h, tc.w))

			compressed, ok := compressOrSkip(t, ctx, tc.data, output)
			if !ok {
				return
			}

			decoded := make([]byte, tc.h*tc.w)
			dn, err := Decompress(compressed, decoded)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if dn != len(tc.data) {
				t.Fatalf("decoded length mismatch: got %d want %d", dn, len(tc.data))
			}
			if !bytes.Equal(decoded, tc.data) {
				t.Fatalf("round-trip mismatch for %s", tc.name)
			}
		})
	}
}

// TestCompressDeterministic covers spec.md §8 property 5: the same input
// and Context always produce byte-identical output.
func TestCompressDeterministic(t *testing.T) {
	// r+c makes the lower-left cell equal the upper-right one, so the block
	// compresses (two literal cells, one whole-cell match) instead of
	// tripping the expansion guard.
	data := block(16, 16, func(r, c int) byte { return byte(r + c) })
	ctx := Context{NDim: 2, BlockShape: [2]int{16, 16}}

	out1 := make([]byte, MaxCompressedSize(16, 16))
	n1, err := Compress(ctx, data, out1)
	if err != nil {
		t.Fatalf("first Compress failed: %v", err)
	}

	out2 := make([]byte, MaxCompressedSize(16, 16))
	n2, err := Compress(ctx, data, out2)
	if err != nil {
		t.Fatalf("second Compress failed: %v", err)
	}

	if n1 != n2 || !bytes.Equal(out1[:n1], out2[:n2]) {
		t.Fatalf("Compress is not deterministic across repeated calls")
	}
}

// TestConstantCellExactByteCount covers spec.md §8 property: an all-equal
// cell always costs exactly 2 bytes (tokenConstant + value).
func TestConstantCellExactByteCount(t *testing.T) {
	data := bytes.Repeat([]byte{0x5c}, 64)
	ctx := Context{NDim: 2, BlockShape: [2]int{8, 8}}
	output := make([]byte, MaxCompressedSize(8, 8))

	n, err := Compress(ctx, data, output)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if got, want := n, HeaderSize+2; got != want {
		t.Fatalf("constant cell record length = %d, want %d", got, want)
	}
	if output[HeaderSize] != tokenConstant {
		t.Fatalf("expected tokenConstant, got 0x%02x", output[HeaderSize])
	}
}

// TestNeverExpandsBeyondMaxCompressedSize covers spec.md §8's no-expansion
// guarantee against the documented upper bound.
func TestNeverExpandsBeyondMaxCompressedSize(t *testing.T) {
	for _, tc := range testBlockSet() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := Context{NDim: 2, BlockShape: [2]int{tc.h, tc.w}}
			output := make([]byte, MaxCompressedSize(tc.h, tc.w))
			compressed, ok := compressOrSkip(t, ctx, tc.data, output)
			if !ok {
				return
			}
			if len(compressed) > MaxCompressedSize(tc.h, tc.w) {
				t.Fatalf("compressed size %d exceeds MaxCompressedSize %d", len(compressed), MaxCompressedSize(tc.h, tc.w))
			}
		})
	}
}

func TestCompressRejectsLeftover(t *testing.T) {
	ctx := Context{NDim: 2, BlockShape: [2]int{8, 8}, Leftover: true}
	_, err := Compress(ctx, make([]byte, 64), make([]byte, 128))
	if err != ErrLeftoverUnsupported {
		t.Fatalf("got %v, want ErrLeftoverUnsupported", err)
	}
}

func TestCompressRejectsMismatchedShape(t *testing.T) {
	ctx := Context{NDim: 2, BlockShape: [2]int{8, 8}}
	_, err := Compress(ctx, make([]byte, 63), make([]byte, 128))
	if err == nil {
		t.Fatalf("expected an error for mismatched input length")
	}
}

func TestReadHeaderRoundTrip(t *testing.T) {
	ctx := Context{NDim: 2, BlockShape: [2]int{12, 20}}
	// A constant block compresses every full cell to 2 bytes (the padded
	// edge cells stay literal), which keeps it under the input size; the
	// test is only exercising ReadHeader, not the match search itself.
	data := bytes.Repeat([]byte{0x37}, 12*20)
	output := make([]byte, MaxCompressedSize(12, 20))

	compressed, ok := compressOrSkip(t, ctx, data, output)
	if !ok {
		t.Fatal("expected this repetitive block to compress")
	}

	hdr, size, err := ReadHeader(compressed)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if size != HeaderSize {
		t.Fatalf("header size = %d, want %d", size, HeaderSize)
	}
	if hdr.H != 12 || hdr.W != 20 || hdr.NDim != 2 {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestDecompressWithStatsTallies(t *testing.T) {
	ctx := Context{NDim: 2, BlockShape: [2]int{16, 16}}
	data := bytes.Repeat(bytes.Repeat([]byte{0x11}, 64), 4)
	output := make([]byte, MaxCompressedSize(16, 16))

	n, err := Compress(ctx, data, output)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	decoded := make([]byte, 16*16)
	dn, stats, err := DecompressWithStats(output[:n], decoded)
	if err != nil {
		t.Fatalf("DecompressWithStats failed: %v", err)
	}
	if dn != len(data) || !bytes.Equal(decoded, data) {
		t.Fatalf("DecompressWithStats produced wrong bytes")
	}
	if stats.H != 16 || stats.W != 16 {
		t.Fatalf("unexpected stats shape: %+v", stats)
	}
	total := stats.Literal + stats.Constant + stats.WholeCell + stats.OnePair +
		stats.TwoPairs + stats.ThreePairs + stats.OneTriple + stats.TwoTriples
	if total != 4 {
		t.Fatalf("stats should tally 4 cells, got %d (%+v)", total, stats)
	}
	if stats.Constant == 0 {
		t.Fatalf("expected at least one constant cell, got %+v", stats)
	}
}

// TestDecompressRejectsCorruptToken covers spec.md §4.3.4's corrupt-stream
// detection.
func TestDecompressRejectsCorruptToken(t *testing.T) {
	ctx := Context{NDim: 2, BlockShape: [2]int{8, 8}}
	data := bytes.Repeat([]byte{0x63}, 64)
	output := make([]byte, MaxCompressedSize(8, 8))

	compressed, ok := compressOrSkip(t, ctx, data, output)
	if !ok {
		t.Fatal("expected this constant block to compress")
	}

	corrupt := append([]byte(nil), compressed...)
	corrupt[HeaderSize] = 0x11 // not a valid token/match_type combination

	_, err := Decompress(corrupt, make([]byte, 64))
	if err == nil {
		t.Fatalf("expected an error decoding a corrupt token")
	}
}

// TestDecompressRejectsOutOfRangeRowIndex covers the decoder's bounds check
// on row indices decoded from a row-match token: a corrupt two-row or
// three-row composite token can claim a row index whose rowBytes would
// overrun the 64-byte cell buffer, and the decoder must report
// ErrCorruptStream rather than let blockcopy.FastCopy run past the buffer.
func TestDecompressRejectsOutOfRangeRowIndex(t *testing.T) {
	ctx := Context{NDim: 2, BlockShape: [2]int{8, 8}}
	data := bytes.Repeat([]byte{0x63}, 64)
	output := make([]byte, MaxCompressedSize(8, 8))

	compressed, ok := compressOrSkip(t, ctx, data, output)
	if !ok {
		t.Fatal("expected this constant block to compress")
	}

	for _, tc := range []struct {
		name   string
		first  byte
		second byte
	}{
		// matchTwoTriples (22<<3 = 0xB0) with i=7: 7*8+24 = 80 > 64.
		{name: "two-triple-row-overrun", first: 0xB7, second: 0x00},
		// matchThreePairs (19<<3 = 0x98) with i=7: 7*8+16 = 72 > 64.
		{name: "three-pair-row-overrun", first: 0x9F, second: 0x00},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Header, the two token bytes, then six zero offset bytes, so
			// the record is long enough to pass the truncation checks and
			// reach the row-index check.
			corrupt := append([]byte(nil), compressed[:HeaderSize]...)
			corrupt = append(corrupt, tc.first, tc.second)
			corrupt = append(corrupt, make([]byte, 6)...)

			_, err := Decompress(corrupt, make([]byte, 64))
			if err == nil {
				t.Fatalf("expected an error decoding an out-of-range row index, got success")
			}
		})
	}
}

func TestMaxCompressedSizeAcrossShapes(t *testing.T) {
	for _, dims := range [][2]int{{8, 8}, {1, 1}, {9, 9}, {64, 64}, {3, 200}} {
		h, w := dims[0], dims[1]
		grid := newCellGrid(h, w)
		want := HeaderSize + grid.cellRows*grid.cellCols*(1+CellSize)
		if got := MaxCompressedSize(h, w); got != want {
			t.Fatalf("MaxCompressedSize(%d,%d) = %d, want %d", h, w, got, want)
		}
	}
}

func FuzzCompressDecompressRoundTrip(f *testing.F) {
	f.Add(8, 8, []byte(bytes.Repeat([]byte{0x00}, 64)))
	f.Add(16, 16, bytes.Repeat([]byte{0x01, 0x02}, 128))
	f.Add(10, 13, block(10, 13, func(r, c int) byte { return byte(r + c) }))

	f.Fuzz(func(t *testing.T, h, w int, seed []byte) {
		if h <= 0 || w <= 0 || h > 64 || w > 64 {
			t.Skip()
		}
		data := make([]byte, h*w)
		if len(seed) > 0 {
			for i := range data {
				data[i] = seed[i%len(seed)]
			}
		}

		ctx := Context{NDim: 2, BlockShape: [2]int{h, w}}
		output := make([]byte, MaxCompressedSize(h, w))
		n, err := Compress(ctx, data, output)
		if err != nil {
			t.Skipf("Compress declined: %v", err)
		}

		decoded := make([]byte, h*w)
		dn, err := Decompress(output[:n], decoded)
		if err != nil {
			t.Fatalf("Decompress failed for %dx%d: %v", h, w, err)
		}
		if dn != len(data) || !bytes.Equal(decoded, data) {
			t.Fatalf("round-trip mismatch for %dx%d, seed len %d", h, w, len(seed))
		}
	})
}

func ExampleCompress() {
	ctx := Context{NDim: 2, BlockShape: [2]int{8, 8}}
	data := bytes.Repeat([]byte{0x42}, 64)
	output := make([]byte, MaxCompressedSize(8, 8))

	n, err := Compress(ctx, data, output)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(n)
	// Output: 11
}
