// Package xid generates prefixed, sortable row identifiers such as
// "prod-1700000000000000000-a1b2c3d4". The nanosecond component keeps
// ids roughly time-ordered; the random suffix breaks collisions.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
