// Package option provides composable gorm query modifiers.
package option

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/billfold/billfold/pkg/db/pagination"
)

// Option mutates a gorm query before execution.
type Option func(*gorm.DB) *gorm.DB

// QuerySortBy selects the sort column, constrained to an allow-list.
type QuerySortBy struct {
	Field string
	Asc   bool
	Allow map[string]bool
}

// WithSortBy orders the query by the requested column. Columns outside the
// allow-list fall back to created_at so callers cannot sort on arbitrary
// expressions.
func WithSortBy(sort QuerySortBy) Option {
	return func(tx *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] {
			field = "created_at"
		}
		direction := "DESC"
		if sort.Asc {
			direction = "ASC"
		}
		return tx.Order(field + " " + direction + ", id " + direction)
	}
}

// ApplyPagination applies the cursor window and fetches one extra row so the
// caller can detect whether more pages exist.
func ApplyPagination(p pagination.Pagination) Option {
	return func(tx *gorm.DB) *gorm.DB {
		pageSize := p.PageSize
		if pageSize <= 0 {
			pageSize = 50
		}
		tx = tx.Limit(pageSize + 1)

		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return tx
		}

		// Bind typed values so the comparison works the same on postgres
		// and sqlite regardless of how each stores timestamps.
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return tx
		}
		var id any = cursor.ID
		if parsed, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
			id = parsed
		}
		return tx.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			createdAt, createdAt, id,
		)
	}
}
