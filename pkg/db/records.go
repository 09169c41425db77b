package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/kiko-social-backend/pkg/db/models"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordStore keeps the record tree in the records table: one row per
// collection child holding the JSON document, plus the value of the
// collection's indexed field for ordered queries.
type RecordStore struct {
	client  *Client
	indexes store.Indexes
	clock   func() time.Time
}

// NewRecordStore wraps client. A nil index set falls back to store.DefaultIndexes.
func NewRecordStore(client *Client, indexes store.Indexes) *RecordStore {
	if indexes == nil {
		indexes = store.DefaultIndexes()
	}
	return &RecordStore{client: client, indexes: indexes, clock: time.Now}
}

func (s *RecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *RecordStore) Get(ctx context.Context, path string) (store.Record, bool, error) {
	parts := store.Split(path)
	switch len(parts) {
	case 0:
		return nil, false, store.ErrInvalidPath
	case 1:
		entries, err := s.loadCollection(ctx, s.client.conn, parts[0])
		if err != nil || len(entries) == 0 {
			return nil, false, err
		}
		out := make(store.Record, len(entries))
		for _, entry := range entries {
			out[entry.Key] = entry.Record
		}
		return out, true, nil
	}

	doc, ok, err := s.loadDoc(ctx, s.client.conn, parts[0], parts[1], false)
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
	parts := store.Split(path)
	if len(parts) < 2 {
		return store.ErrInvalidPath
	}
	collection, key := parts[0], parts[1]

	if len(parts) == 2 && rec == nil {
		err := s.client.conn.WithContext(ctx).
			Where("collection = ? AND record_key = ?", collection, key).
			Delete(&models.Record{}).Error
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, key, err)
		}
		return nil
	}

	resolved := store.ResolveServerTimestamps(rec, s.now())
	if len(parts) == 2 {
		return s.writeDoc(ctx, s.client.conn, collection, key, resolved)
	}

	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		doc, _, err := s.loadDoc(ctx, tx, collection, key, true)
		if err != nil {
			return err
		}
		if doc == nil {
			doc = store.Record{}
		}
		var value any
		if resolved != nil {
			value = resolved
		}
		doc.SetPath(parts[2:], value)
		return s.writeDoc(ctx, tx, collection, key, doc)
	})
}

func (s *RecordStore) Update(ctx context.Context, path string, partial store.Record) error {
	parts := store.Split(path)
	if len(parts) < 2 {
		return store.ErrInvalidPath
	}
	collection, key := parts[0], parts[1]
	resolved := store.ResolveServerTimestamps(partial, s.now())

	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		doc, _, err := s.loadDoc(ctx, tx, collection, key, true)
		if err != nil {
			return err
		}
		if doc == nil {
			doc = store.Record{}
		}
		for field, value := range resolved {
			target := append(append([]string(nil), parts[2:]...), store.Split(field)...)
			if len(target) == 0 {
				continue
			}
			doc.SetPath(target, value)
		}
		return s.writeDoc(ctx, tx, collection, key, doc)
	})
}

func (s *RecordStore) Push(_ context.Context, path string) (string, error) {
	if len(store.Split(path)) == 0 {
		return "", store.ErrInvalidPath
	}
	return store.NewPushKey(), nil
}

func (s *RecordStore) QueryOrderedBounded(ctx context.Context, path, orderField string, limit int) ([]store.Entry, error) {
	parts := store.Split(path)
	if len(parts) != 1 {
		return nil, store.ErrInvalidPath
	}
	collection := parts[0]

	if orderField == "" || s.indexes[collection] != orderField {
		entries, err := s.loadCollection(ctx, s.client.conn, collection)
		if err != nil {
			return nil, err
		}
		return store.OrderBounded(entries, orderField, limit), nil
	}

	// Newest first so LIMIT keeps the tail of the ascending order; rows
	// without the field rank lowest on every dialect.
	q := s.client.conn.WithContext(ctx).
		Where("collection = ?", collection).
		Order("CASE WHEN sort_value IS NULL THEN 0 ELSE 1 END DESC").
		Order("sort_value DESC").
		Order("record_key DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Record
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("range %s by %s: %w", collection, orderField, err)
	}

	out := make([]store.Entry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		doc, err := store.Decode([]byte(rows[i].Doc))
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, rows[i].Key, err)
		}
		out = append(out, store.Entry{Key: rows[i].Key, Record: doc})
	}
	return out, nil
}

func (s *RecordStore) now() int64 {
	return s.clock().UnixMilli()
}

func (s *RecordStore) loadDoc(ctx context.Context, conn *gorm.DB, collection, key string, lock bool) (store.Record, bool, error) {
	q := conn.WithContext(ctx)
	if lock && conn.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row models.Record
	err := q.Where("collection = ? AND record_key = ?", collection, key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	doc, err := store.Decode([]byte(row.Doc))
	if err != nil {
		return nil, false, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return doc, doc != nil, nil
}

func (s *RecordStore) loadCollection(ctx context.Context, conn *gorm.DB, collection string) ([]store.Entry, error) {
	var rows []models.Record
	err := conn.WithContext(ctx).
		Where("collection = ?", collection).
		Order("record_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]store.Entry, 0, len(rows))
	for _, row := range rows {
		doc, err := store.Decode([]byte(row.Doc))
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, row.Key, err)
		}
		out = append(out, store.Entry{Key: row.Key, Record: doc})
	}
	return out, nil
}

func (s *RecordStore) writeDoc(ctx context.Context, conn *gorm.DB, collection, key string, doc store.Record) error {
	raw, err := store.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	row := models.Record{
		Collection: collection,
		Key:        key,
		Doc:        string(raw),
	}
	if field := s.indexes[collection]; field != "" {
		if n, ok := doc.Number(field); ok {
			row.SortValue = &n
		}
	}

	err = conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc", "sort_value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}
	return nil
}
