package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kiko-social-backend/api/responses"
	"github.com/angelmondragon/kiko-social-backend/api/validators"
	"github.com/angelmondragon/kiko-social-backend/internal/feed"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

// maxQueryLimit bounds the parser only; the feed service clamps to its window.
const maxQueryLimit = 1000

type createPostRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
	Image   string `json:"image" validate:"omitempty,url,max=2048"`
}

type feedResponse struct {
	Entries []feed.Entry `json:"entries"`
}

// FeedLoad returns the newest-first feed window.
func FeedLoad(svc feed.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxQueryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.Load(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feedResponse{Entries: entries})
	}
}

// PostCreate publishes a post for the bearer's principal.
func PostCreate(svc feed.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createPostRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		post, err := svc.CreatePost(r.Context(), principal, feed.CreatePostInput{
			Content: body.Content,
			Image:   body.Image,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

// PostDeactivate soft-deletes a post.
func PostDeactivate(svc feed.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		postID := chi.URLParam(r, "postId")
		if err := svc.Deactivate(r.Context(), principal, postID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": postID, "status": "inactive"})
	}
}
