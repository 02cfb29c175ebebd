package database

import (
	"context"
	"fmt"
	"strings"

	"studioops_go/storage"

	"gorm.io/gorm"
)

// GormStore implements storage.QueryStore on top of a GORM connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db. A nil db falls back to the package connection.
func NewGormStore(db *gorm.DB) *GormStore {
	if db == nil {
		db = DB
	}
	return &GormStore{db: db}
}

func (s *GormStore) Select(ctx context.Context, table string, dest interface{}, filters []storage.Filter, order ...storage.Order) error {
	if !storage.ValidIdentifier(table) {
		return fmt.Errorf("select %q: %w", table, storage.ErrInvalidColumn)
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}

	q := s.db.WithContext(ctx).Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	for _, o := range order {
		if !storage.ValidIdentifier(o.Column) {
			return fmt.Errorf("select %s order %q: %w", table, o.Column, storage.ErrInvalidColumn)
		}
		if o.Desc {
			q = q.Order(quote(o.Column) + " DESC")
		} else {
			q = q.Order(quote(o.Column) + " ASC")
		}
	}
	if err := q.Find(dest).Error; err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return nil
}

func (s *GormStore) Insert(ctx context.Context, table string, rows interface{}) error {
	if !storage.ValidIdentifier(table) {
		return fmt.Errorf("insert %q: %w", table, storage.ErrInvalidColumn)
	}
	if err := s.db.WithContext(ctx).Table(table).Create(rows).Error; err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, table string, filters []storage.Filter, patch map[string]interface{}) error {
	if !storage.ValidIdentifier(table) {
		return fmt.Errorf("update %q: %w", table, storage.ErrInvalidColumn)
	}
	if len(filters) == 0 {
		return fmt.Errorf("update %s: %w", table, storage.ErrMissingFilter)
	}
	for col := range patch {
		if !storage.ValidIdentifier(col) {
			return fmt.Errorf("update %s column %q: %w", table, col, storage.ErrInvalidColumn)
		}
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if err := s.db.WithContext(ctx).Table(table).Where(where, args...).Updates(patch).Error; err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, table string, filters []storage.Filter) error {
	if !storage.ValidIdentifier(table) {
		return fmt.Errorf("delete %q: %w", table, storage.ErrInvalidColumn)
	}
	if len(filters) == 0 {
		return fmt.Errorf("delete %s: %w", table, storage.ErrMissingFilter)
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if err := s.db.WithContext(ctx).Exec("DELETE FROM "+quote(table)+" WHERE "+where, args...).Error; err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func buildWhere(filters []storage.Filter) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return "", nil, fmt.Errorf("filter %q: %w", f.Column, err)
		}
		if f.Op == storage.OpIn {
			clauses = append(clauses, quote(f.Column)+" IN ?")
		} else {
			clauses = append(clauses, fmt.Sprintf("%s %s ?", quote(f.Column), f.Op))
		}
		args = append(args, f.Value)
	}
	return strings.Join(clauses, " AND "), args, nil
}

// quote wraps an already validated identifier. Backticks work for both MySQL
// and SQLite and keep columns such as "read" from parsing as keywords.
func quote(ident string) string {
	return "`" + ident + "`"
}
