package id

import (
	"fmt"
	"strconv"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the ids handed out to clients.
const (
	PrefixViewer  = "vw"
	PrefixSession = "fs"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "vw-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Sequence hands out short ids that are unique within one owner, such as the
// markers and rows of a single figure session. Not safe for concurrent use.
type Sequence struct {
	prefix string
	n      uint64
}

// NewSequence returns a sequence producing prefix-1, prefix-2, ...
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next id.
func (s *Sequence) Next() string {
	s.n++
	return s.prefix + "-" + strconv.FormatUint(s.n, 36)
}
