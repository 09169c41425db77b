package users

import (
	"context"

	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// Repository exposes user persistence over the record store.
type Repository struct {
	store store.Store
}

// NewRepository constructs a users repo bound to the provided store.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// Exists reports whether any record is stored for key.
func (r *Repository) Exists(ctx context.Context, key identity.Key) (bool, error) {
	_, ok, err := r.store.Get(ctx, store.UserPath(key.String()))
	return ok, err
}

// Create writes the full profile record for key.
func (r *Repository) Create(ctx context.Context, key identity.Key, rec store.Record) error {
	return r.store.Set(ctx, store.UserPath(key.String()), rec)
}

// Get returns the stored record for key.
func (r *Repository) Get(ctx context.Context, key identity.Key) (store.Record, bool, error) {
	return r.store.Get(ctx, store.UserPath(key.String()))
}

// List returns every stored user ordered by key.
func (r *Repository) List(ctx context.Context) ([]store.Entry, error) {
	all, ok, err := r.store.Get(ctx, store.PathUsers)
	if err != nil || !ok {
		return nil, err
	}
	return all.Children(), nil
}

// Posts returns the whole posts collection.
func (r *Repository) Posts(ctx context.Context) ([]store.Entry, error) {
	return r.store.QueryOrderedBounded(ctx, store.PathPosts, store.FieldTimestamp, 0)
}
