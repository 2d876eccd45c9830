package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex sha256 of a downloaded file's bytes. The manifest
// stores it so a re-appearing filename can be told apart from a re-send of
// identical content.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether data hashes to expected. An empty expected value
// never matches.
func Matches(expected string, data []byte) bool {
	if expected == "" {
		return false
	}
	return Digest(data) == expected
}
