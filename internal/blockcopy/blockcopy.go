// Package blockcopy implements the two byte-copy primitives c-blosc2's
// fastcopy.c contributes to LZ77-style decoders: FastCopy for
// non-overlapping (or safely left-to-right overlapping) ranges, and
// SafeCopy for the general overlap case where a back-reference's source
// window runs into bytes the copy itself is still producing.
//
// Both take plain dst/src byte slices rather than a shared buffer with
// two cursors, since most callers (including this module's decoder) copy
// between genuinely distinct buffers. SafeCopy additionally needs the
// distance between the two regions when they DO alias the same
// underlying array; callers pass that distance explicitly as patternLen
// rather than this package inferring it from slice addresses.
//
// This is a from-scratch port of the chunked-copy technique in
// c-blosc2's blosc/fastcopy.c, without the SIMD specializations: Go gives
// us no portable way to drop into SSE2/AVX2, and spec.md treats intrinsic
// availability as an implementation detail, not part of the design.
// FastCopy's chunk width is a plain 8-byte machine word (wordSize)
// instead of a 16/32-byte vector register.
package blockcopy

import "encoding/binary"

// wordSize is the chunk size FastCopy copies in, in place of a SIMD
// register width.
const wordSize = 8

func copy1(dst, src []byte) {
	dst[0] = src[0]
}

func copy2(dst, src []byte) {
	binary.LittleEndian.PutUint16(dst, binary.LittleEndian.Uint16(src))
}

func copy4(dst, src []byte) {
	binary.LittleEndian.PutUint32(dst, binary.LittleEndian.Uint32(src))
}

func copy8(dst, src []byte) {
	binary.LittleEndian.PutUint64(dst, binary.LittleEndian.Uint64(src))
}

// copyBytes copies length (< 8) bytes byte-exactly, dispatching on length
// the way the original's copy_bytes does to avoid a loop for the common
// short lengths.
func copyBytes(dst, src []byte, length int) {
	switch length {
	case 0:
	case 1:
		copy1(dst, src)
	case 2:
		copy2(dst, src)
	case 3:
		copy1(dst, src)
		copy2(dst[1:], src[1:])
	case 4:
		copy4(dst, src)
	case 5:
		copy1(dst, src)
		copy4(dst[1:], src[1:])
	case 6:
		copy2(dst, src)
		copy4(dst[2:], src[2:])
	case 7:
		copy1(dst, src)
		copy2(dst[1:], src[1:])
		copy4(dst[3:], src[3:])
	default:
		for i := 0; i < length; i++ {
			dst[i] = src[i]
		}
	}
}

// chunkCopy copies length (>= wordSize) bytes in wordSize-byte chunks,
// front to back, finishing the remaining length%wordSize bytes with
// copyBytes. No source byte is read after the destination write that
// could overlap it when dst is positioned before src, so the result
// matches a byte-by-byte loop under FastCopy's contract.
func chunkCopy(dst, src []byte, length int) {
	n := length / wordSize

	d, s := dst, src
	for i := 0; i < n; i++ {
		copy8(d, s)
		d = d[wordSize:]
		s = s[wordSize:]
	}
	copyBytes(d, s, length%wordSize)
}

// FastCopy copies length bytes from src into dst.
//
// Contract: the source and destination ranges must either not overlap at
// all, or overlap with dst positioned before src (a safe left-to-right
// copy). Passing overlapping ranges with dst after src invokes the
// classic LZ77 "run" semantics that only SafeCopy implements correctly.
func FastCopy(dst, src []byte, length int) {
	switch length {
	case 32:
		for i := 0; i < 32; i += 8 {
			copy8(dst[i:], src[i:])
		}
	case 16:
		copy8(dst, src)
		copy8(dst[8:], src[8:])
	case 8:
		copy8(dst, src)
	default:
		if length < 8 {
			copyBytes(dst, src, length)
		} else {
			chunkCopy(dst, src, length)
		}
	}
}

// SafeCopy copies length bytes from src into dst, where dst and src may
// be views into the same backing array with dst positioned patternLen
// bytes after src (patternLen <= 0, or dst/src backed by different
// arrays, means no overlap: pass any non-positive value in that case).
// The result is always byte-identical to a strict
//
//	for i := 0; i < length; i++ { dst[i] = src[i] }
//
// loop, even when patternLen is smaller than length, which makes the
// source run into bytes the loop itself has already written.
//
// c-blosc2's own safecopy loads one machine word of the established
// pattern and repeats that single word across the rest of the run. That
// is only byte-exact when patternLen divides the word size; ndlz2d's
// wire format allows any patternLen up to 64, so this port instead
// doubles the written prefix each round (copy patternLen bytes, then
// copy that doubled, then doubled again...), which is byte-exact for
// every patternLen because each round only ever reads bytes the
// previous round already produced correctly.
func SafeCopy(dst, src []byte, patternLen, length int) {
	if patternLen <= 0 || patternLen >= length {
		FastCopy(dst, src, length)
		return
	}

	n := copy(dst[:patternLen], src[:patternLen])
	for n < length {
		chunk := n
		if n+chunk > length {
			chunk = length - n
		}
		copy(dst[n:n+chunk], dst[:chunk])
		n += chunk
	}
}
