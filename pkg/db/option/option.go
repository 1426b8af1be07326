package option

import (
	"time"

	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

// Option mutates a gorm statement before execution.
type Option interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// ApplyPagination applies cursor pagination to a statement ordered by
// (created_at desc, id desc). It fetches one extra row so callers can detect
// whether more pages exist.
func ApplyPagination(page pagination.Pagination) Option {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 10
		}
		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor != nil {
				// Comparing as time.Time keeps the predicate correct
				// across dialects with different timestamp encodings.
				if createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
					stmt = stmt.Where(
						"created_at < ? OR (created_at = ? AND id < ?)",
						createdAt, createdAt, cursor.ID,
					)
				}
			}
		}
		return stmt.Limit(size + 1)
	})
}
