package models

import "time"

// Record is one child document of a record-store collection, for example a
// single profile under users or a single post under posts.
type Record struct {
	Collection string    `gorm:"column:collection;primaryKey;index:idx_records_collection_sort,priority:1"`
	Key        string    `gorm:"column:record_key;primaryKey;index:idx_records_collection_sort,priority:3"`
	Doc        string    `gorm:"column:doc;type:text;not null"`
	SortValue  *float64  `gorm:"column:sort_value;index:idx_records_collection_sort,priority:2"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Record) TableName() string {
	return "records"
}
