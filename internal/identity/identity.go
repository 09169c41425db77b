// Package identity derives the canonical storage key for a principal.
package identity

import "strings"

// Key is the canonical identity used as the sole index into the users collection.
type Key string

func (k Key) String() string {
	return string(k)
}

// Normalize trims surrounding whitespace and lower-cases the address. It is
// total and idempotent.
func Normalize(raw string) Key {
	return Key(strings.ToLower(strings.TrimSpace(raw)))
}

// LocalPart returns the text before the first "@", or the whole key when
// there is none.
func LocalPart(k Key) string {
	s := string(k)
	if i := strings.IndexByte(s, '@'); i >= 0 {
		return s[:i]
	}
	return s
}

// Principal is the authenticated user supplied by the identity provider.
type Principal struct {
	Email       string
	DisplayName string
}

// Key returns the principal's canonical storage key.
func (p Principal) Key() Key {
	return Normalize(p.Email)
}

// IsZero reports whether no principal was supplied.
func (p Principal) IsZero() bool {
	return p.Key() == ""
}
