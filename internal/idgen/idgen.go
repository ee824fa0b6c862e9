// Package idgen generates run identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RunPrefix is prepended to every purge run ID.
const RunPrefix = "pr-"

// Run IDs end up as file names and S3 keys, so the alphabet is lower-case
// only to stay unique on case-insensitive filesystems.
const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	length   = 12
)

// RunID returns a new purge run ID such as "pr-3k9x0q2m7abc".
func RunID() (string, error) {
	return WithPrefix(RunPrefix)
}

// WithPrefix returns a new unique ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
