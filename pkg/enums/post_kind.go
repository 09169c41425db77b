package enums

import "fmt"

// PostKind discriminates records that share the posts collection.
type PostKind string

const (
	PostKindSocial PostKind = "social_post"
	PostKindChat   PostKind = "chat_message"
)

var validPostKinds = []PostKind{
	PostKindSocial,
	PostKindChat,
}

// String implements fmt.Stringer.
func (k PostKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PostKind.
func (k PostKind) IsValid() bool {
	for _, candidate := range validPostKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePostKind converts raw input into a PostKind.
func ParsePostKind(value string) (PostKind, error) {
	for _, candidate := range validPostKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid post kind %q", value)
}
