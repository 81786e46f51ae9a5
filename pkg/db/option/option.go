package option

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before it is executed.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryFunc func(*gorm.DB) *gorm.DB

func (f queryFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// SortBy describes a validated ORDER BY clause.
type SortBy struct {
	Column    string
	Direction string
}

// WithQuerySortBy validates the requested column against allowed and falls back to id ascending.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) SortBy {
	column := strings.ToLower(strings.TrimSpace(sortBy))
	if column == "" || !allowed[column] {
		column = "id"
	}
	direction := strings.ToUpper(strings.TrimSpace(orderBy))
	if direction != "DESC" {
		direction = "ASC"
	}
	return SortBy{Column: column, Direction: direction}
}

func WithSortBy(sort SortBy) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		column := sort.Column
		if column == "" {
			column = "id"
		}
		direction := sort.Direction
		if direction == "" {
			direction = "ASC"
		}
		return db.Order(fmt.Sprintf("%s %s", column, direction))
	})
}

func WithLimit(limit int) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOffset(offset int) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	})
}

func WithWhere(query string, args ...any) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// WithNotDeleted hides soft-deleted rows.
func WithNotDeleted() QueryOption {
	return WithWhere("is_deleted = ?", false)
}

// WithDateRange bounds column to [start, end]; nil bounds are ignored.
func WithDateRange(column string, start, end *time.Time) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if start != nil {
			db = db.Where(column+" >= ?", *start)
		}
		if end != nil {
			db = db.Where(column+" <= ?", *end)
		}
		return db
	})
}

// WithCursor pages forward by primary key; one extra row is fetched so callers can detect more pages.
func WithCursor(afterID int64, pageSize int) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if afterID > 0 {
			db = db.Where("id > ?", afterID)
		}
		if pageSize <= 0 {
			pageSize = 10
		}
		return db.Order("id ASC").Limit(pageSize + 1)
	})
}
