// Package xcrypt implements the challenge/response transform used by the
// handshake: a deterministic 32-bit → 32-bit function over a compile-time
// secret table that both endpoints carry identically. It is pure — no
// state, no randomness — so the handshake's challenge verification is just
// an equality check between Transform(nonce) and the value the client
// sent back.
package xcrypt

// xorConstant is folded into the result after the table lookups, per the
// handshake's wire contract.
const xorConstant uint32 = 0x5A7CE52E

// secretTable is the compile-time 256-byte table both endpoints must carry
// identically for the challenge to verify. It has no meaning beyond being
// a fixed, shared byte table (values may repeat, so it is not a
// permutation) — it is not derived from anything at runtime.
var secretTable = [256]byte{
	0x12, 0xFE, 0xA4, 0xDF, 0xC1, 0x65, 0x19, 0x81, 0x38, 0x4E, 0x3B, 0x93, 0x79, 0x48, 0x66, 0xA3,
	0x0E, 0xEF, 0x07, 0x53, 0x5D, 0x5C, 0x6A, 0x54, 0x6A, 0x57, 0xA7, 0x53, 0x94, 0xFF, 0x17, 0x22,
	0xAB, 0x0A, 0x5D, 0x5A, 0x99, 0x19, 0xE6, 0xB2, 0x12, 0xA7, 0x26, 0x60, 0x02, 0xCD, 0xC2, 0x11,
	0xBF, 0xC4, 0x67, 0x02, 0x0B, 0x3C, 0x1E, 0x7F, 0xCB, 0x53, 0xAB, 0x27, 0x48, 0x45, 0x26, 0xD3,
	0x83, 0x77, 0xD8, 0xB7, 0x90, 0xAA, 0x30, 0x86, 0x2B, 0x92, 0x3B, 0x4B, 0xA6, 0xFB, 0x85, 0x26,
	0x3C, 0x85, 0xB5, 0xAA, 0x34, 0x04, 0x17, 0xD4, 0x2C, 0x84, 0x7D, 0x0B, 0xBB, 0x8E, 0x3E, 0xF1,
	0x32, 0xF3, 0xD5, 0x44, 0x79, 0x20, 0x2D, 0x3D, 0xCE, 0x80, 0xDE, 0x95, 0xA4, 0xF3, 0x9D, 0x88,
	0x48, 0xF6, 0xEB, 0x3B, 0x04, 0xF8, 0x33, 0x3D, 0xFD, 0x6E, 0xE4, 0x58, 0x74, 0xE7, 0xFC, 0xCC,
	0x24, 0x0B, 0x9B, 0x16, 0xB8, 0x6B, 0x73, 0x9A, 0xBD, 0xC3, 0xA6, 0x3B, 0xAE, 0x08, 0xE7, 0xA9,
	0xD5, 0x39, 0xE4, 0xFF, 0x89, 0x2C, 0x87, 0xEA, 0x15, 0x3E, 0xE2, 0xB3, 0x19, 0x1D, 0x6C, 0x81,
	0xEC, 0x94, 0x17, 0x53, 0x37, 0x3C, 0x96, 0xFC, 0x0E, 0x05, 0xB5, 0x92, 0x8B, 0xED, 0x98, 0x0D,
	0x51, 0xC1, 0xFF, 0xBA, 0x63, 0x4A, 0xD4, 0x44, 0xC1, 0x63, 0xF6, 0xB6, 0x47, 0xEE, 0x8F, 0x9B,
	0xA5, 0x36, 0xFA, 0x5D, 0x8F, 0x80, 0x77, 0x8F, 0xEA, 0x8E, 0x54, 0x8A, 0x56, 0x7F, 0x1C, 0x45,
	0xA9, 0x4E, 0x14, 0x1F, 0xB3, 0xE4, 0x90, 0x1C, 0x7E, 0x4B, 0x48, 0xEC, 0x32, 0xEE, 0x38, 0xCB,
	0x41, 0xC3, 0x9F, 0x63, 0x17, 0xBC, 0x6C, 0x1B, 0x62, 0x0D, 0x1D, 0xDF, 0xA1, 0xA5, 0x7C, 0x8A,
	0xB2, 0x17, 0x32, 0x04, 0x83, 0xD6, 0x73, 0xEE, 0xFE, 0xA6, 0xEA, 0x80, 0xF3, 0x63, 0x3B, 0x94,
}

// Transform maps x to the handshake's expected response value: each of
// the four bytes of x (low byte first) indexes secretTable independently,
// the four lookups are summed into a 32-bit accumulator weighted by their
// byte position (shifts of 0, 8, 16, 24), and the result is XORed with
// xorConstant.
func Transform(x uint32) uint32 {
	b0 := secretTable[byte(x)]
	b1 := secretTable[byte(x>>8)]
	b2 := secretTable[byte(x>>16)]
	b3 := secretTable[byte(x>>24)]

	sum := uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
	return sum ^ xorConstant
}
