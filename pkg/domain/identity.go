package domain

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// DeriveID computes the identity digest for (seed, caller, nonce) and
// returns it both as a CreatureID (lowercase hex) and as the raw digest
// bytes used for genome material.
//
// The input encoding is pinned: any change to it changes every derived id.
//
//	uint32 LE length of seed  || seed bytes ||
//	uint32 LE length of caller || caller UTF-8 bytes ||
//	uint64 LE nonce
//
// The digest is BLAKE2b-256, so the result is always GenomeLength bytes.
func DeriveID(seed []byte, caller AccountID, nonce uint64) (CreatureID, Genome) {
	buf := make([]byte, 0, 4+len(seed)+4+len(caller)+8)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(seed)))
	buf = append(buf, seed...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(caller)))
	buf = append(buf, caller...)
	buf = binary.LittleEndian.AppendUint64(buf, nonce)

	digest := blake2b.Sum256(buf)
	return CreatureID(hex.EncodeToString(digest[:])), Genome(digest[:])
}
