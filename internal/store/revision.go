package store

import "github.com/oklog/ulid/v2"

// NewRevision returns a fresh, lexically increasing revision id.
func NewRevision() string {
	return ulid.Make().String()
}
