// Package idgen provides id generation: short nanoid ids for broadcasts and
// generated message ids, random UUIDs for workspaces and journeys, and
// name-based UUIDs for records that must be idempotent.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated short ID.
var DefaultPrefix = "bc-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// Namespace scopes Deterministic ids.
var Namespace = uuid.MustParse("6f1d1c8e-3b7a-4f0e-9c4d-2a5e8b9d0f13")

// Generate returns a new unique ID using the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// NewUUID returns a random (v4) UUID string.
func NewUUID() string {
	return uuid.New().String()
}

// Deterministic returns a name-based (v5) UUID over parts. The same parts
// always produce the same id.
func Deterministic(parts ...string) string {
	return uuid.NewSHA1(Namespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
