package store

import "strings"

const (
	PathUsers = "users"
	PathPosts = "posts"

	SegmentStatus = "status"
)

// Split breaks a path into its non-empty segments.
func Split(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Join builds a path from segments, ignoring empty ones.
func Join(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		clean = append(clean, Split(part)...)
	}
	return strings.Join(clean, "/")
}

// IsSegment reports whether s names exactly one child: non-empty, without a
// separator and without whitespace that Split would discard.
func IsSegment(s string) bool {
	return s != "" && !strings.Contains(s, "/") && strings.TrimSpace(s) == s
}

func UserPath(key string) string {
	return Join(PathUsers, key)
}

// UserStatusPath addresses the presence sub-record of a profile.
func UserStatusPath(key string) string {
	return Join(PathUsers, key, SegmentStatus)
}

func PostPath(id string) string {
	return Join(PathPosts, id)
}

// Post fields shared by the feed, profile post counts and analytics.
const (
	FieldPostID     = "id"
	FieldAuthorID   = "authorId"
	FieldAuthorName = "authorName"
	FieldContent    = "content"
	FieldImage      = "image"
	FieldLikes      = "likes"
	FieldComments   = "comments"
	FieldShares     = "shares"
	FieldHashtags   = "hashtags"
	FieldIsActive   = "isActive"
	FieldKind       = "kind"
)
