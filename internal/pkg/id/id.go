package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a lexicographically sortable unique identifier.
func New() string {
	return ulid.Make().String()
}

// NewToken returns an opaque token with at least 160 bits of entropy,
// suitable for invitation links and session bridge cookies.
func NewToken() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String() + ulid.MustNew(ulid.Now(), rand.Reader).String()
}
