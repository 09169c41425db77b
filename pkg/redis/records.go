package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/angelmondragon/kiko-social-backend/pkg/store"
	"github.com/redis/go-redis/v9"
)

// RecordStore maps the record tree onto redis. Every collection child is one
// JSON document, each collection keeps a member set, and indexed fields are
// mirrored into a sorted set scored by the field value.
//
// Writes below a document are read-merge-write under WATCH on the document
// key, so concurrent partial updates to one document never drop each
// other's fields. Index keys are written in the same MULTI.
type RecordStore struct {
	client  *Client
	indexes store.Indexes
}

// NewRecordStore wraps client. A nil index set falls back to store.DefaultIndexes.
func NewRecordStore(client *Client, indexes store.Indexes) *RecordStore {
	if indexes == nil {
		indexes = store.DefaultIndexes()
	}
	return &RecordStore{client: client, indexes: indexes}
}

func (s *RecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *RecordStore) Get(ctx context.Context, path string) (store.Record, bool, error) {
	if s.client.store == nil {
		return nil, false, errNotInitialized
	}
	parts := store.Split(path)
	switch len(parts) {
	case 0:
		return nil, false, store.ErrInvalidPath
	case 1:
		entries, err := s.loadCollection(ctx, parts[0])
		if err != nil || len(entries) == 0 {
			return nil, false, err
		}
		out := make(store.Record, len(entries))
		for _, entry := range entries {
			out[entry.Key] = entry.Record
		}
		return out, true, nil
	}

	doc, ok, err := s.loadDoc(ctx, s.client.store, parts[0], parts[1])
	if err != nil || !ok {
		return nil, false, err
	}
	node := doc
	for i, part := range parts[2:] {
		if !node.Has(part) {
			return nil, false, nil
		}
		child, isRecord := node.Child(part)
		if !isRecord {
			if i == len(parts[2:])-1 && node[part] == nil {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("get %s: %w", path, store.ErrNotRecord)
		}
		node = child
	}
	return node, true, nil
}

func (s *RecordStore) Set(ctx context.Context, path string, rec store.Record) error {
	if s.client.store == nil {
		return errNotInitialized
	}
	parts := store.Split(path)
	if len(parts) < 2 {
		return store.ErrInvalidPath
	}
	collection, child := parts[0], parts[1]

	if len(parts) == 2 && rec == nil {
		return s.deleteDoc(ctx, collection, child)
	}

	now, err := s.now(ctx)
	if err != nil {
		return err
	}
	resolved := store.ResolveServerTimestamps(rec, now)
	if len(parts) == 2 {
		return s.writeDoc(ctx, s.client.store, collection, child, resolved)
	}

	var value any
	if resolved != nil {
		value = resolved
	}
	return s.mergeDoc(ctx, collection, child, func(doc store.Record) {
		doc.SetPath(parts[2:], value)
	})
}

func (s *RecordStore) Update(ctx context.Context, path string, partial store.Record) error {
	if s.client.store == nil {
		return errNotInitialized
	}
	parts := store.Split(path)
	if len(parts) < 2 {
		return store.ErrInvalidPath
	}
	collection, child := parts[0], parts[1]

	now, err := s.now(ctx)
	if err != nil {
		return err
	}
	resolved := store.ResolveServerTimestamps(partial, now)

	return s.mergeDoc(ctx, collection, child, func(doc store.Record) {
		for field, value := range resolved {
			target := append(append([]string(nil), parts[2:]...), store.Split(field)...)
			if len(target) == 0 {
				continue
			}
			doc.SetPath(target, value)
		}
	})
}

// mergeDoc applies apply to the current document and writes it back in one
// optimistic transaction, retried when the document changes underneath.
func (s *RecordStore) mergeDoc(ctx context.Context, collection, child string, apply func(store.Record)) error {
	key := s.client.docKey(collection, child)
	return s.client.withWatch(ctx, func(tx docTx) error {
		doc, _, err := s.loadDoc(ctx, tx, collection, child)
		if err != nil {
			return err
		}
		if doc == nil {
			doc = store.Record{}
		}
		apply(doc)
		return tx.Exec(ctx, func(w docWriter) error {
			return s.writeDoc(ctx, w, collection, child, doc)
		})
	}, key)
}

func (s *RecordStore) Push(_ context.Context, path string) (string, error) {
	if len(store.Split(path)) == 0 {
		return "", store.ErrInvalidPath
	}
	return store.NewPushKey(), nil
}

// QueryOrderedBounded serves indexed fields from the sorted set. Redis orders
// equal scores by member, which matches the key tie-break of store.OrderBounded.
// Unindexed fields fall back to loading the whole collection.
func (s *RecordStore) QueryOrderedBounded(ctx context.Context, path, orderField string, limit int) ([]store.Entry, error) {
	if s.client.store == nil {
		return nil, errNotInitialized
	}
	parts := store.Split(path)
	if len(parts) != 1 {
		return nil, store.ErrInvalidPath
	}
	collection := parts[0]

	if orderField == "" || s.indexes[collection] != orderField {
		entries, err := s.loadCollection(ctx, collection)
		if err != nil {
			return nil, err
		}
		return store.OrderBounded(entries, orderField, limit), nil
	}

	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	members, err := s.client.store.ZRange(ctx, s.client.indexKey(collection, orderField), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range %s by %s: %w", collection, orderField, err)
	}
	return s.loadDocs(ctx, collection, members)
}

func (s *RecordStore) now(ctx context.Context) (int64, error) {
	t, err := s.client.store.Time(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("redis time: %w", err)
	}
	return t.UnixMilli(), nil
}

type docGetter interface {
	Get(context.Context, string) *redis.StringCmd
}

func (s *RecordStore) loadDoc(ctx context.Context, r docGetter, collection, child string) (store.Record, bool, error) {
	raw, err := r.Get(ctx, s.client.docKey(collection, child)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, child, err)
	}
	doc, err := store.Decode([]byte(raw))
	if err != nil {
		return nil, false, fmt.Errorf("decode %s/%s: %w", collection, child, err)
	}
	return doc, doc != nil, nil
}

func (s *RecordStore) loadCollection(ctx context.Context, collection string) ([]store.Entry, error) {
	members, err := s.client.store.SMembers(ctx, s.client.membersKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("members %s: %w", collection, err)
	}
	sort.Strings(members)
	return s.loadDocs(ctx, collection, members)
}

// loadDocs fetches members in order, skipping ids whose document is gone.
func (s *RecordStore) loadDocs(ctx context.Context, collection string, members []string) ([]store.Entry, error) {
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]string, len(members))
	for i, member := range members {
		keys[i] = s.client.docKey(collection, member)
	}
	values, err := s.client.store.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget %s: %w", collection, err)
	}

	out := make([]store.Entry, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		doc, err := store.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, members[i], err)
		}
		if doc == nil {
			continue
		}
		out = append(out, store.Entry{Key: members[i], Record: doc})
	}
	return out, nil
}

func (s *RecordStore) writeDoc(ctx context.Context, w docWriter, collection, child string, doc store.Record) error {
	raw, err := store.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, child, err)
	}
	if err := w.Set(ctx, s.client.docKey(collection, child), raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, child, err)
	}
	if err := w.SAdd(ctx, s.client.membersKey(collection), child).Err(); err != nil {
		return fmt.Errorf("index members %s: %w", collection, err)
	}
	if field := s.indexes[collection]; field != "" {
		score := math.Inf(-1)
		if n, ok := doc.Number(field); ok {
			score = n
		}
		z := redis.Z{Score: score, Member: child}
		if err := w.ZAdd(ctx, s.client.indexKey(collection, field), z).Err(); err != nil {
			return fmt.Errorf("index %s by %s: %w", collection, field, err)
		}
	}
	return nil
}

func (s *RecordStore) deleteDoc(ctx context.Context, collection, child string) error {
	if err := s.client.store.Del(ctx, s.client.docKey(collection, child)).Err(); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, child, err)
	}
	if err := s.client.store.SRem(ctx, s.client.membersKey(collection), child).Err(); err != nil {
		return fmt.Errorf("unindex members %s: %w", collection, err)
	}
	if field := s.indexes[collection]; field != "" {
		if err := s.client.store.ZRem(ctx, s.client.indexKey(collection, field), child).Err(); err != nil {
			return fmt.Errorf("unindex %s by %s: %w", collection, field, err)
		}
	}
	return nil
}
