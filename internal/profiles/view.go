package profiles

import (
	"time"

	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// View is the canonical profile every stored shape resolves to.
type View struct {
	Key          identity.Key `json:"key"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Username     string       `json:"username"`
	Bio          string       `json:"bio"`
	AvatarSource string       `json:"avatar_source"`
	Role         enums.Role   `json:"role"`
	IsOnline     bool         `json:"is_online"`
	LastSeen     *time.Time   `json:"last_seen,omitempty"`
	Joined       *time.Time   `json:"joined,omitempty"`
	PostCount    int          `json:"post_count"`
}

// IsAdmin reports whether the view carries the administrator role.
func (v View) IsAdmin() bool {
	return v.Role == enums.RoleAdmin
}

// FromRecord maps a stored profile of either shape into a View, applying
// defaults: email falls back to the key, name and username to the email's
// local part, role to user.
func (a Avatars) FromRecord(key identity.Key, rec store.Record, postCount int) View {
	f := decodeRecord(rec).fields()

	email := f.email
	if email == "" {
		email = key.String()
	}
	local := identity.LocalPart(identity.Normalize(email))
	name := firstNonEmpty(f.name, local)
	role := enums.Role(f.role)
	if role == "" {
		role = enums.RoleUser
	}

	return View{
		Key:          key,
		Email:        email,
		Name:         name,
		Username:     firstNonEmpty(f.username, local),
		Bio:          f.bio,
		AvatarSource: a.source(f, name),
		Role:         role,
		IsOnline:     f.online,
		LastSeen:     millisToTime(f.lastSeen),
		Joined:       millisToTime(f.joined),
		PostCount:    postCount,
	}
}

// Fallback synthesizes the placeholder view for a key with no readable
// record. The result depends on the key alone.
func (a Avatars) Fallback(key identity.Key) View {
	return View{
		Key:          key,
		Email:        key.String(),
		Name:         key.String(),
		Username:     key.String(),
		AvatarSource: a.Placeholder(key.String()),
		Role:         enums.RoleUser,
	}
}

// CountPosts counts entries authored by key that are not explicitly inactive.
func CountPosts(posts []store.Entry, key identity.Key) int {
	count := 0
	for _, entry := range posts {
		if identity.Normalize(entry.Record.String(store.FieldAuthorID)) != key {
			continue
		}
		if active, ok := entry.Record.Bool(store.FieldIsActive); ok && !active {
			continue
		}
		count++
	}
	return count
}

func millisToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
