package ndlz2d

import (
	"hash"

	"github.com/pierrec/xxHash/xxHash32"
)

// hashSeed is the XXH32 seed spec.md §3/§4.2.4 mandates for every match
// class: whole-cell (64 bytes), triple-row (24 bytes), and pair-row
// (16 bytes) hashes are all XXH32(data, seed=1).
const hashSeed = 1

// hashBits is the number of high bits of the 32-bit digest kept as the
// hash-table index (HASH_LOG in the original).
const hashBits = 12

// cellHasher wraps a reusable xxHash32 digest so the encoder's inner loop
// (one whole-cell hash plus every triple-row and pair-row probe hash per
// cell) never allocates a new hasher, per spec.md §5's
// "no heap allocation in the inner loops" invariant.
type cellHasher struct {
	h hash.Hash32
}

func newCellHasher() *cellHasher {
	return &cellHasher{h: xxHash32.New(hashSeed)}
}

// hash12 returns the high 12 bits of XXH32(data, seed=1).
func (c *cellHasher) hash12(data []byte) uint32 {
	c.h.Reset()
	_, _ = c.h.Write(data) // hash.Hash.Write never returns an error
	return c.h.Sum32() >> (32 - hashBits)
}
