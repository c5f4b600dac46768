// Package checksum fingerprints blob contents so the file backend can tell
// its own writes from edits made by someone else.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Absent is the fingerprint of a file that does not exist.
const Absent = ""

// Of returns the hex-encoded SHA-256 digest of data. A nil slice (no file)
// yields Absent, while an empty but present file has a real digest.
func Of(data []byte) string {
	if data == nil {
		return Absent
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
