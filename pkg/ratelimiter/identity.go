package ratelimiter

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Identity derives a stable client key from the remote IP and, when the
// session is authenticated, the user id.
func Identity(ip, userID string) string {
	sum := blake2b.Sum256([]byte(ip + "|" + userID))
	return hex.EncodeToString(sum[:16])
}
