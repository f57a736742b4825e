package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Document is the relational row backing one record. The collection sizes
// here (catalog sections, one entitlement per user) are small, so filtering
// and ordering happen in Go over the loaded collection instead of in SQL.
// That keeps Postgres and the sqlite test driver behaving identically.
type Document struct {
	Collection string `gorm:"primaryKey;size:64"`
	DocID      string `gorm:"primaryKey;size:128"`
	Data       []byte `gorm:"not null"`
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var doc Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore get %s/%s: %w", collection, id, err)
	}
	return decode(doc.Data)
}

func (s *GormStore) Put(ctx context.Context, collection, id string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("docstore put %s/%s: %w", collection, id, err)
	}

	doc := Document{Collection: collection, DocID: id, Data: data}
	err = s.db.WithContext(ctx).Save(&doc).Error
	if err != nil {
		return fmt.Errorf("docstore put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&Document{}).Error
	if err != nil {
		return fmt.Errorf("docstore delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, collection string, filters []Filter, order *Order, limit int) ([]Record, error) {
	var docs []Document
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("docstore query %s: %w", collection, err)
	}

	out := make([]Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := decode(doc.Data)
		if err != nil {
			return nil, err
		}
		if matches(rec, filters) {
			out = append(out, rec)
		}
	}

	sortRecords(out, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("docstore: corrupt document: %w", err)
	}
	return rec, nil
}
