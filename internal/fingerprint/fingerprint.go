package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize prepares deck file content for hashing: line endings are
// unified and surrounding whitespace is trimmed, so that checkout
// differences between platforms do not look like new content.
func Normalize(data []byte) string {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(s)
}

// Hash returns the SHA-256 of the normalized content as a hex string.
// It identifies a deck file across sync passes.
func Hash(data []byte) string {
	sum := sha256.Sum256([]byte(Normalize(data)))
	return fmt.Sprintf("%x", sum)
}
