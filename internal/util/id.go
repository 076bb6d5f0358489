package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 24-character hex ID, used for request correlation.
func NewID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
