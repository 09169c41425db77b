package profiles

import (
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// Stored profile field names. Legacy records are flat; current records nest
// display data under profile and presence under status.
const (
	fieldName        = "name"
	fieldUsername    = "username"
	fieldBio         = "bio"
	fieldEmail       = "email"
	fieldAvatar      = "avatar"
	fieldAvatarColor = "avatarColor"
	fieldRole        = "role"
	fieldPass        = "pass"
	fieldIsOnline    = "isOnline"
	fieldOnline      = "online"
	fieldLastSeen    = "lastSeen"
	fieldTyping      = "typing"
	fieldJoined      = "joined"
	fieldJoinDate    = "joinDate"
	fieldStatus      = "status"
	fieldProfile     = "profile"
)

// fields is the shape-neutral content of a stored profile before defaults.
type fields struct {
	name        string
	username    string
	bio         string
	email       string
	avatarURL   string
	avatarColor string
	role        string
	online      bool
	lastSeen    int64
	joined      int64
}

// profileRecord is the tagged union over the two admissible stored shapes.
type profileRecord interface {
	shape() string
	fields() fields
}

type legacyRecord struct{ rec store.Record }

type currentRecord struct {
	rec     store.Record
	profile store.Record
}

// decodeRecord picks the shape once: a profile sub-object means current schema.
func decodeRecord(rec store.Record) profileRecord {
	if profile, ok := rec.Child(fieldProfile); ok {
		return currentRecord{rec: rec, profile: profile}
	}
	return legacyRecord{rec: rec}
}

func (legacyRecord) shape() string { return "legacy" }

func (l legacyRecord) fields() fields {
	f := fields{
		name:      l.rec.String(fieldName),
		username:  l.rec.String(fieldUsername),
		bio:       l.rec.String(fieldBio),
		email:     l.rec.String(fieldEmail),
		avatarURL: l.rec.String(fieldAvatar),
		role:      l.rec.String(fieldRole),
		lastSeen:  l.rec.Int64(fieldLastSeen),
		joined:    l.rec.Int64(fieldJoined),
	}
	f.online, _ = l.rec.Bool(fieldIsOnline)
	// presence writes land under status even for legacy records
	if status, ok := l.rec.Child(fieldStatus); ok {
		if online, ok := status.Bool(fieldOnline); ok {
			f.online = online
		}
		if seen := status.Int64(fieldLastSeen); seen > 0 {
			f.lastSeen = seen
		}
	}
	return f
}

func (currentRecord) shape() string { return "current" }

func (c currentRecord) fields() fields {
	f := fields{
		name:        c.profile.String(fieldName),
		username:    c.profile.String(fieldUsername),
		bio:         c.profile.String(fieldBio),
		email:       c.profile.String(fieldEmail),
		avatarColor: c.profile.String(fieldAvatarColor),
		role:        c.rec.String(fieldRole),
		joined:      c.profile.Int64(fieldJoinDate),
	}
	if status, ok := c.rec.Child(fieldStatus); ok {
		f.online, _ = status.Bool(fieldOnline)
		f.lastSeen = status.Int64(fieldLastSeen)
	}
	return f
}

// CurrentRecord is the canonical current-schema profile written for new users.
type CurrentRecord struct {
	PasswordHash  string
	Role          string
	Name          string
	Username      string
	Bio           string
	Email         string
	AvatarColor   string
	AccountStatus string
}

// ToStore renders the record with join and last-seen times left for the store
// clock to resolve.
func (c CurrentRecord) ToStore() store.Record {
	return store.Record{
		fieldPass: c.PasswordHash,
		fieldRole: c.Role,
		fieldProfile: store.Record{
			fieldAvatarColor: c.AvatarColor,
			fieldStatus:      c.AccountStatus,
			fieldJoinDate:    store.ServerTimestamp,
			fieldName:        c.Name,
			fieldUsername:    c.Username,
			fieldBio:         c.Bio,
			fieldEmail:       c.Email,
		},
		fieldStatus: store.Record{
			fieldOnline:   false,
			fieldLastSeen: store.ServerTimestamp,
			fieldTyping:   false,
		},
	}
}

// PresenceUpdate is the partial record written to users/<key>/status.
func PresenceUpdate(online bool) store.Record {
	return store.Record{
		fieldOnline:   online,
		fieldLastSeen: store.ServerTimestamp,
	}
}
