package utils

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewID returns a lexically sortable unique identifier. Connection ids are
// unique across every server sharing the store.
func NewID() string {
	return strings.ToLower(ulid.Make().String())
}
