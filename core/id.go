package core

import (
	"crypto/rand"
	"encoding/hex"
)

func newEntryID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "entry-unknown"
	}
	return hex.EncodeToString(buf[:])
}
