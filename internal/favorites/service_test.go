package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
)

func TestFavoritesLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	ctx := context.Background()

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Products: catalog.NewRepository(conn),
	})
	require.NoError(t, err)

	user := dbtest.User(t, conn, "fan@example.com")
	first := dbtest.Product(t, conn, "First Item", "10.00", nil)
	second := dbtest.Product(t, conn, "Second Item", "12.00", nil)
	third := dbtest.Product(t, conn, "Third Item", "14.00", nil)

	for _, p := range []uuid.UUID{first.ID, second.ID, third.ID} {
		require.NoError(t, svc.Add(ctx, user.ID, p))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, svc.Add(ctx, user.ID, first.ID), "adding twice is idempotent")

	err = svc.Add(ctx, user.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := svc.List(ctx, user.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, third.ID, page.Items[0].Product.ID)
	require.Equal(t, second.ID, page.Items[1].Product.ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = svc.List(ctx, user.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, first.ID, page.Items[0].Product.ID)
	require.Empty(t, page.NextCursor)

	require.NoError(t, svc.Remove(ctx, user.ID, second.ID))
	require.NoError(t, svc.Remove(ctx, user.ID, second.ID))

	ids, err := svc.ListIDs(ctx, user.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{first.ID, third.ID}, ids.ProductIDs)

	_, err = svc.List(ctx, user.ID, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
