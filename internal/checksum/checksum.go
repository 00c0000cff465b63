package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum fingerprints an uploaded file so identical RESUXDOC exports can be
// recognized across uploads regardless of their file name.
func Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
