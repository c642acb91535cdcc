package dispatcher

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a 32-hex random id, matching the id shape jobs and
// workers use throughout the dispatcher.
func NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
