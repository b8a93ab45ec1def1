// Package idgen generates the opaque hex identifiers used for domain
// entities and shareable links.
//
// No library in the retrieved example pack produces identifiers in this
// exact shape: google/uuid emits 36-character dashed UUIDs and rs/xid
// emits 20-character base32 strings, neither of which is the "24-hex"
// format the data model requires (the length and alphabet of a 12-byte
// MongoDB ObjectID). crypto/rand plus encoding/hex is the direct,
// dependency-free way to produce that exact shape, so it is used here
// instead of reshaping a third-party id into the right format.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns a 24-character lowercase hex identifier (12 random bytes).
func New() string {
	return hexID(12)
}

// ShareableLink returns a lowercase hex string of the given length (in
// hex characters). An odd length is produced by generating one extra hex
// character and truncating; a non-positive length falls back to 12.
func ShareableLink(hexLength int) string {
	if hexLength <= 0 {
		hexLength = 12
	}
	byteLen := (hexLength + 1) / 2
	s := hexID(byteLen)
	return s[:hexLength]
}

func hexID(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// unavailable, which is unrecoverable for this process.
		panic("idgen: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
