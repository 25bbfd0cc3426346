package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// LocalIDPrefix marks identities assigned on-device, before the server has
// seen the record.
const LocalIDPrefix = "local-"

// NewLocalID returns a "local-<unix ms>-<hex>" identity. The random suffix
// keeps ids unique without server coordination even when two records are
// created in the same millisecond.
func NewLocalID() string {
	return fmt.Sprintf("%s%d-%s", LocalIDPrefix, time.Now().UnixMilli(), randHex(4))
}

// IsLocalID reports whether id was assigned on-device.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

func randHex(size int) string {
	b := make([]byte, size)
	// crypto/rand.Read does not fail on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
