package option

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type pagedRow struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
}

func seedRows(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&pagedRow{}))

	base := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		// Rows 3 and 4 share a timestamp so the id tie-break is exercised.
		at := base.Add(time.Duration(i) * time.Minute)
		if i == 4 {
			at = base.Add(3 * time.Minute)
		}
		require.NoError(t, db.Create(&pagedRow{ID: i, CreatedAt: at}).Error)
	}
	return db
}

func fetch(t *testing.T, db *gorm.DB, page pagination.Pagination) []pagedRow {
	t.Helper()
	var rows []pagedRow
	stmt := db.Model(&pagedRow{}).Order("created_at desc, id desc")
	stmt = ApplyPagination(page).Apply(stmt)
	require.NoError(t, stmt.Find(&rows).Error)
	return rows
}

func cursorFor(t *testing.T, row pagedRow) string {
	t.Helper()
	token, err := pagination.EncodeCursor(pagination.Cursor{
		ID:        fmt.Sprintf("%d", row.ID),
		CreatedAt: row.CreatedAt.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	return token
}

func TestApplyPaginationFetchesOneExtraRow(t *testing.T) {
	db := seedRows(t)

	rows := fetch(t, db, pagination.Pagination{PageSize: 2})
	require.Len(t, rows, 3)
	assert.Equal(t, int64(5), rows[0].ID)
	assert.Equal(t, int64(4), rows[1].ID)
}

func TestApplyPaginationWalksWithoutOverlap(t *testing.T) {
	db := seedRows(t)

	seen := map[int64]bool{}
	token := ""
	for {
		rows := fetch(t, db, pagination.Pagination{PageSize: 2, PageToken: token})
		hasMore := len(rows) > 2
		if hasMore {
			rows = rows[:2]
		}
		for _, row := range rows {
			assert.False(t, seen[row.ID], "row %d appeared twice", row.ID)
			seen[row.ID] = true
		}
		if !hasMore {
			break
		}
		token = cursorFor(t, rows[len(rows)-1])
	}
	assert.Len(t, seen, 5)
}

func TestApplyPaginationTieBreaksOnID(t *testing.T) {
	db := seedRows(t)

	// Rows 4 and 3 share created_at; paging past 4 must still return 3.
	first := fetch(t, db, pagination.Pagination{PageSize: 2})
	require.True(t, len(first) > 2)
	token := cursorFor(t, first[1])

	second := fetch(t, db, pagination.Pagination{PageSize: 2, PageToken: token})
	require.NotEmpty(t, second)
	assert.Equal(t, int64(3), second[0].ID)
}

func TestApplyPaginationIgnoresMalformedToken(t *testing.T) {
	db := seedRows(t)

	rows := fetch(t, db, pagination.Pagination{PageSize: 10, PageToken: "not-base64!"})
	assert.Len(t, rows, 5)
}
