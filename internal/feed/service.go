// Package feed assembles the bounded, newest-first post feed and owns post
// creation and soft-deletion.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/content"
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kiko-social-backend/pkg/errors"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/metrics"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

const (
	defaultWindow = 20
	maxWindow     = 50
)

// ServiceParams groups dependencies for the feed service.
type ServiceParams struct {
	Store    store.Store
	Profiles profiles.Service
	Access   access.Service
	Config   config.FeedConfig
	Logger   *logger.Logger
	Metrics  *metrics.FeedMetrics
	Clock    func() time.Time
}

// Service exposes feed reads and post writes.
type Service interface {
	// Load returns at most limit of the most recent social posts, newest
	// first. A store failure aborts the whole load.
	Load(ctx context.Context, limit int) ([]Entry, error)
	CreatePost(ctx context.Context, principal identity.Principal, input CreatePostInput) (Post, error)
	// Deactivate soft-deletes a post. Only its author or an administrator may.
	Deactivate(ctx context.Context, principal identity.Principal, postID string) error
}

type service struct {
	store    store.Store
	profiles profiles.Service
	access   access.Service
	cfg      config.FeedConfig
	logg     *logger.Logger
	metrics  *metrics.FeedMetrics
	clock    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record store is required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile service is required")
	}
	if params.Access == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access service is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	cfg := params.Config
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = defaultWindow
	}
	if cfg.MaxWindow < cfg.DefaultWindow {
		cfg.MaxWindow = max(maxWindow, cfg.DefaultWindow)
	}
	return &service{
		store:    params.Store,
		profiles: params.Profiles,
		access:   params.Access,
		cfg:      cfg,
		logg:     logg,
		metrics:  params.Metrics,
		clock:    clock,
	}, nil
}

func (s *service) Load(ctx context.Context, limit int) (entries []Entry, err error) {
	started := s.clock()
	defer func() {
		s.metrics.ObserveLoad(s.clock().Sub(started), err)
	}()

	window := s.window(limit)
	records, err := s.store.QueryOrderedBounded(ctx, store.PathPosts, store.FieldTimestamp, window)
	if err != nil {
		s.metrics.IncStoreError("load_feed")
		s.logg.Error(ctx, "feed.load.query_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load feed")
	}

	now := s.clock()
	authors := make(map[identity.Key]profiles.View)
	entries = make([]Entry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if !visible(records[i].Record) {
			continue
		}
		post := postFromEntry(records[i])
		author, ok := authors[post.AuthorID]
		if !ok {
			author, _ = s.profiles.ResolveOrFallback(ctx, post.AuthorID)
			authors[post.AuthorID] = author
		}
		formatted := content.Format(post.Content)
		entries = append(entries, Entry{
			Post:        post,
			Author:      author,
			Spans:       formatted.Spans,
			Hashtags:    formatted.Hashtags,
			RelativeAge: content.RelativeAge(post.Timestamp, now),
		})
	}
	return entries, nil
}

func (s *service) window(limit int) int {
	switch {
	case limit <= 0:
		return s.cfg.DefaultWindow
	case limit > s.cfg.MaxWindow:
		return s.cfg.MaxWindow
	}
	return limit
}

func (s *service) CreatePost(ctx context.Context, principal identity.Principal, input CreatePostInput) (Post, error) {
	author := principal.Key()
	if author == "" {
		return Post{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	body := strings.TrimSpace(input.Content)
	if body == "" {
		return Post{}, pkgerrors.New(pkgerrors.CodeValidation, "post content is required")
	}
	if s.cfg.MaxPostLength > 0 && utf8.RuneCountInString(body) > s.cfg.MaxPostLength {
		return Post{}, pkgerrors.New(pkgerrors.CodeValidation, "post content is too long").
			WithDetails(map[string]any{"max_length": s.cfg.MaxPostLength})
	}

	ctx = s.logg.WithPrincipal(ctx, author.String())
	id, err := s.store.Push(ctx, store.PathPosts)
	if err != nil {
		s.metrics.IncStoreError("push_post")
		return Post{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve post key")
	}

	authorName := strings.TrimSpace(principal.DisplayName)
	if authorName == "" {
		authorName = identity.LocalPart(author)
	}
	image := strings.TrimSpace(input.Image)
	rec := newPostRecord(id, author, authorName, body, image, content.Hashtags(body))
	if err := s.store.Set(ctx, store.PostPath(id), rec); err != nil {
		s.metrics.IncStoreError("create_post")
		s.logg.Error(ctx, "feed.create_post.write_failed", err)
		return Post{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create post")
	}
	s.metrics.IncPosts("created")

	ctx = s.logg.WithPostID(ctx, id)
	s.logg.Info(ctx, "feed.create_post")

	// read back for the resolved server timestamp
	stored, ok, err := s.store.Get(ctx, store.PostPath(id))
	if err != nil || !ok {
		if err != nil {
			s.logg.Warn(ctx, "feed.create_post.read_back_failed: "+err.Error())
		}
		stored = rec
	}
	return postFromEntry(store.Entry{Key: id, Record: stored}), nil
}

func (s *service) Deactivate(ctx context.Context, principal identity.Principal, postID string) error {
	caller := principal.Key()
	if caller == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	postID = strings.TrimSpace(postID)
	if !store.IsSegment(postID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid post id")
	}

	ctx = s.logg.WithPostID(s.logg.WithPrincipal(ctx, caller.String()), postID)
	rec, ok, err := s.store.Get(ctx, store.PostPath(postID))
	if err != nil && !errors.Is(err, store.ErrNotRecord) {
		s.metrics.IncStoreError("get_post")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	if !ok || err != nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	post := postFromEntry(store.Entry{Key: postID, Record: rec})
	if post.Kind != enums.PostKindSocial {
		return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	if !post.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "post is already inactive")
	}
	if post.AuthorID != caller && !s.access.IsAdministrator(ctx, principal) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an administrator may remove a post")
	}

	if err := s.store.Update(ctx, store.PostPath(postID), store.Record{store.FieldIsActive: false}); err != nil {
		s.metrics.IncStoreError("deactivate_post")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate post")
	}
	s.metrics.IncPosts("deactivated")
	s.logg.Info(ctx, "feed.deactivate_post")
	return nil
}
