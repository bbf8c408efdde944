package pagination

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID string
}

func makeRows(n int) []row {
	rows := make([]row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, row{ID: fmt.Sprintf("id-%03d", i)})
	}
	return rows
}

func cursorOf(r row) Cursor {
	return Cursor{ID: r.ID}
}

func TestBuildCursorPageTrimsOverfetch(t *testing.T) {
	rows := makeRows(4)

	page, info, err := BuildCursorPage(rows, 3, cursorOf)
	require.NoError(t, err)

	assert.Len(t, page, 3)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "id-002", cursor.ID)
}

func TestBuildCursorPageLastPage(t *testing.T) {
	rows := makeRows(2)

	page, info, err := BuildCursorPage(rows, 3, cursorOf)
	require.NoError(t, err)

	assert.Len(t, page, 2)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestBuildCursorPageEmpty(t *testing.T) {
	page, info, err := BuildCursorPage(nil, 3, cursorOf)
	require.NoError(t, err)

	assert.Empty(t, page)
	assert.False(t, info.HasMore)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not base64!")
	assert.Error(t, err)

	_, err = DecodeCursor("bm90IGpzb24=")
	assert.Error(t, err)
}
