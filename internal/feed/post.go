package feed

import (
	"github.com/angelmondragon/kiko-social-backend/internal/content"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// Post is a stored social post.
type Post struct {
	ID         string         `json:"id"`
	AuthorID   identity.Key   `json:"author_id"`
	AuthorName string         `json:"author_name"`
	Content    string         `json:"content"`
	Image      string         `json:"image,omitempty"`
	Timestamp  int64          `json:"timestamp"`
	Likes      int64          `json:"likes"`
	Comments   int64          `json:"comments"`
	Shares     int64          `json:"shares"`
	Hashtags   []string       `json:"hashtags"`
	IsActive   bool           `json:"is_active"`
	Kind       enums.PostKind `json:"kind"`
}

// Entry is one rendered feed item. It only lives for the load that built it.
type Entry struct {
	Post        Post           `json:"post"`
	Author      profiles.View  `json:"author"`
	Spans       []content.Span `json:"spans"`
	Hashtags    []string       `json:"hashtags"`
	RelativeAge string         `json:"relative_age"`
}

// CreatePostInput is the author-supplied part of a new post.
type CreatePostInput struct {
	Content string
	Image   string
}

// postFromEntry reads a stored post. A missing kind means social post and a
// missing isActive means active.
func postFromEntry(entry store.Entry) Post {
	rec := entry.Record
	id := rec.String(store.FieldPostID)
	if id == "" {
		id = entry.Key
	}
	active := true
	if v, ok := rec.Bool(store.FieldIsActive); ok {
		active = v
	}
	kind := enums.PostKind(rec.String(store.FieldKind))
	if kind == "" {
		kind = enums.PostKindSocial
	}
	hashtags := rec.Strings(store.FieldHashtags)
	if hashtags == nil {
		hashtags = []string{}
	}
	return Post{
		ID:         id,
		AuthorID:   identity.Normalize(rec.String(store.FieldAuthorID)),
		AuthorName: rec.String(store.FieldAuthorName),
		Content:    rec.String(store.FieldContent),
		Image:      rec.String(store.FieldImage),
		Timestamp:  rec.Int64(store.FieldTimestamp),
		Likes:      rec.Int64(store.FieldLikes),
		Comments:   rec.Int64(store.FieldComments),
		Shares:     rec.Int64(store.FieldShares),
		Hashtags:   hashtags,
		IsActive:   active,
		Kind:       kind,
	}
}

// visible drops soft-deleted posts and records of other kinds sharing the path.
func visible(rec store.Record) bool {
	if active, ok := rec.Bool(store.FieldIsActive); ok && !active {
		return false
	}
	if kind, ok := rec[store.FieldKind]; ok && kind != nil && rec.String(store.FieldKind) != enums.PostKindSocial.String() {
		return false
	}
	return true
}

// newPostRecord is the canonical record written for a new post.
func newPostRecord(id string, author identity.Key, authorName, body, image string, hashtags []string) store.Record {
	return store.Record{
		store.FieldPostID:     id,
		store.FieldAuthorID:   author.String(),
		store.FieldAuthorName: authorName,
		store.FieldContent:    body,
		store.FieldImage:      image,
		store.FieldTimestamp:  store.ServerTimestamp,
		store.FieldLikes:      int64(0),
		store.FieldComments:   int64(0),
		store.FieldShares:     int64(0),
		store.FieldHashtags:   hashtags,
		store.FieldIsActive:   true,
		store.FieldKind:       enums.PostKindSocial.String(),
	}
}
