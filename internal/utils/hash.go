package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies an uploaded file by content.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
