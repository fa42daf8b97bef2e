package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	require.NoError(t, err)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, want.ID, got.ID)
}

func TestParseCursorEdgeCases(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = ParseCursor("%%%")
	require.Error(t, err)

	_, err = ParseCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	require.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(1000))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, 10, NormalizeLimitWithDefault(-1, 10))
}

func TestTrim(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	cursorOf := func(id uuid.UUID) Cursor { return Cursor{CreatedAt: time.Unix(0, 0).UTC(), ID: id} }

	page := Trim(ids, 2, cursorOf)
	require.Len(t, page.Items, 2)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	require.Equal(t, ids[1], next.ID)

	page = Trim(ids, 5, cursorOf)
	require.Len(t, page.Items, 3)
	require.Empty(t, page.NextCursor)

	empty := Trim[uuid.UUID](nil, 5, cursorOf)
	require.NotNil(t, empty.Items)
}
