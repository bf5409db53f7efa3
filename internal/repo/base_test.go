package repo

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestNewBaseStoresConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil {
		t.Fatalf("expected non-nil DB when context provided")
	}
	if withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	withoutCtx := base.DB(nil)
	if withoutCtx != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

type keysetRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	IsDeleted bool
	CreatedAt time.Time
}

func seedKeysetRows(t *testing.T, conn *gorm.DB, n int) []keysetRow {
	t.Helper()
	if err := conn.AutoMigrate(&keysetRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]keysetRow, 0, n)
	for i := 0; i < n; i++ {
		row := keysetRow{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := conn.Create(&row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestBaseActiveSkipsDeletedRows(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:active?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows := seedKeysetRows(t, conn, 3)
	if err := conn.Model(&keysetRow{}).Where("id = ?", rows[0].ID).Update("is_deleted", true).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	var n int64
	if err := NewBase(conn).Active(context.Background(), &keysetRow{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 active rows, got %d", n)
	}
}

func TestKeysetPagesNewestFirst(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:keyset?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows := seedKeysetRows(t, conn, 3)

	q, err := Keyset(conn.Model(&keysetRow{}), pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("keyset: %v", err)
	}
	var first []keysetRow
	if err := q.Find(&first).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(first) != 3 || first[0].ID != rows[2].ID {
		t.Fatalf("expected limit+1 rows newest first, got %d", len(first))
	}

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID})
	q, err = Keyset(conn.Model(&keysetRow{}), pagination.Params{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("keyset: %v", err)
	}
	var second []keysetRow
	if err := q.Find(&second).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(second) != 1 || second[0].ID != rows[0].ID {
		t.Fatalf("expected the oldest row on the second page, got %v", second)
	}
}

func TestKeysetRejectsBadCursor(t *testing.T) {
	_, err := Keyset(newTestDB(t), pagination.Params{Cursor: "%%%"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
