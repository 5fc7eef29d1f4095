package ndlz2d

// Token tags, per spec.md §6.3. These fixed tags are disjoint from the
// match_type values used by the row-match tags (17 and 21 one-byte, 18,
// 19 and 22 two-byte composite), since match_type = token >> 3 and the
// fixed tags never collide with those five values.
const (
	tokenLiteral  byte = 0x00 // literal or padded cell, match_type 0
	tokenConstant byte = 0x40 // constant cell, match_type 8
	tokenCellRef  byte = 0xC0 // whole-cell back-reference, match_type 24
)

// matchType values for the row-oriented match classes. These are the
// values token>>3 (for one-byte tokens) or firstByte>>3 (for two-byte
// composite tokens) must equal.
const (
	matchOnePair    = 17
	matchTwoPairs   = 18 // the original decoder's stray "11" is a bug; see DESIGN.md
	matchThreePairs = 19
	matchOneTriple  = 21
	matchTwoTriples = 22
)

func matchTypeOf(firstByte byte) byte {
	return firstByte >> 3
}

// encodeOneRowToken builds the one-byte token (matchKind<<3)|row used by
// the one-pair and one-triple match classes.
func encodeOneRowToken(matchKind, row int) byte {
	return byte(matchKind<<3) | byte(row)
}

// rowOf extracts the embedded row index from a one-byte row-match token.
func rowOf(token byte) int {
	return int(token & 7)
}

// encodeTwoRowToken builds the two-byte big-endian composite token used by
// the two-pair and two-triple match classes: (matchKind<<11)|(i<<8)|(iP<<5).
func encodeTwoRowToken(matchKind, i, iP int) (byte, byte) {
	first := byte(matchKind<<3) | byte(i)
	second := byte(iP << 5)
	return first, second
}

// decodeTwoRowToken recovers i and iP from the two wire bytes of a
// two-pair/two-triple composite token.
func decodeTwoRowToken(first, second byte) (i, iP int) {
	i = int(first & 7)
	iP = int(second>>5) & 7
	return
}

// encodeThreeRowToken builds the two-byte composite token used by the
// three-pair match class: (19<<11)|(i<<8)|(iP<<5)|(iPP<<2).
func encodeThreeRowToken(i, iP, iPP int) (byte, byte) {
	first := byte(matchThreePairs<<3) | byte(i)
	second := byte(iP<<5) | byte(iPP<<2)
	return first, second
}

// decodeThreeRowToken recovers i, iP, iPP from the two wire bytes of a
// three-pair composite token.
func decodeThreeRowToken(first, second byte) (i, iP, iPP int) {
	i = int(first & 7)
	iP = int(second>>5) & 7
	iPP = int(second>>2) & 7
	return
}
