package repository

import (
	"context"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// Keyed is implemented by rows that are paginated on their creation time.
type Keyed interface {
	CreatedAtKey() time.Time
}

// Page is one slice of a created_at-descending collection.
// NextCursor is nil when the collection is exhausted.
type Page[T Keyed] struct {
	Items      []T
	NextCursor *time.Time
}

// Paginate runs base ordered by column descending, restricted to rows strictly
// older than cursor when one is given. It reads limit+1 rows: the extra row
// only signals that another page exists and is never returned.
//
// The cursor is the timestamp of the last returned row. Rows sharing that exact
// timestamp across a page boundary can be skipped; there is no secondary key.
func Paginate[T Keyed](ctx context.Context, base *gorm.DB, column string, cursor *time.Time, limit int) (Page[T], error) {
	if limit <= 0 {
		return Page[T]{}, models.NewValidationError("limit must be positive")
	}

	q := base.WithContext(ctx)
	if cursor != nil {
		q = q.Where(column+" < ?", cursor.UTC())
	}

	var rows []T
	if err := q.Order(column + " DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return Page[T]{}, models.NewInternalError(err)
	}

	page := Page[T]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		next := rows[limit-1].CreatedAtKey().UTC()
		page.NextCursor = &next
	}
	return page, nil
}
