package repo

import (
	"context"

	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Active scopes a query on model to rows whose is_deleted flag is unset.
func (b Base) Active(ctx context.Context, model any) *gorm.DB {
	return b.DB(ctx).Model(model).Where("is_deleted = ?", false)
}

// Keyset orders q newest first and applies the cursor and limit from params.
// One extra row is requested so the caller can tell whether a next page exists.
func Keyset(q *gorm.DB, params pagination.Params) (*gorm.DB, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	return q.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(params.Limit)), nil
}
