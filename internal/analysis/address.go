package analysis

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// AddressLength is the number of characters in a generated address.
const AddressLength = 24

var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateAddress returns a random, non-sequential public handle for an
// analysis owned by ownerID. It hashes a fresh v4 UUID together with the
// owner id; nothing about the row's primary key is encoded.
func GenerateAddress(ownerID string) string {
	nonce := uuid.New()

	h := sha256.New()
	h.Write([]byte(ownerID))
	h.Write([]byte{0})
	h.Write(nonce[:])

	enc := addressEncoding.EncodeToString(h.Sum(nil))
	return strings.ToLower(enc[:AddressLength])
}

// ValidAddress reports whether s has the shape GenerateAddress produces.
func ValidAddress(s string) bool {
	if len(s) != AddressLength {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			return false
		}
	}
	return true
}
