package session

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// generateID creates a session identifier: an "s_" prefix followed by a
// lowercased ULID drawn from crypto/rand entropy.
func generateID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return "s_" + strings.ToLower(id.String())
}
