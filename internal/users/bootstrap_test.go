package users

import (
	"context"
	"testing"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

func TestEnsureSuperuserCreatesOnce(t *testing.T) {
	_, repo, _ := newTestService(t)
	ctx := context.Background()
	cfg := config.BootstrapConfig{SuperuserEmail: " Owner@Muxdry.com ", SuperuserPassword: "owner-secret-1"}

	outcome, err := EnsureSuperuser(ctx, repo, cfg, testPasswordConfig(), nil)
	require.NoError(t, err)
	require.Equal(t, BootstrapCreated, outcome)

	user, err := repo.FindByEmail(ctx, "owner@muxdry.com")
	require.NoError(t, err)
	require.True(t, user.IsSuperuser)
	require.True(t, user.IsStaff)
	ok, err := security.VerifyPassword("owner-secret-1", user.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	cfg.SuperuserPassword = "another-secret-2"
	outcome, err = EnsureSuperuser(ctx, repo, cfg, testPasswordConfig(), nil)
	require.NoError(t, err)
	require.Equal(t, BootstrapExists, outcome)

	again, err := repo.FindByEmail(ctx, "owner@muxdry.com")
	require.NoError(t, err)
	require.Equal(t, user.PasswordHash, again.PasswordHash, "existing superuser untouched")
}

func TestEnsureSuperuserPromotesExistingAccount(t *testing.T) {
	_, repo, _ := newTestService(t)
	ctx := context.Background()
	existing := createUser(t, repo, "lead@muxdry.com", "original-pass")

	outcome, err := EnsureSuperuser(ctx, repo, config.BootstrapConfig{SuperuserEmail: "lead@muxdry.com", SuperuserPassword: "ignored-pass"}, testPasswordConfig(), nil)
	require.NoError(t, err)
	require.Equal(t, BootstrapPromoted, outcome)

	user, err := repo.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	require.True(t, user.IsSuperuser)
	require.True(t, user.IsStaff)
	require.Equal(t, existing.PasswordHash, user.PasswordHash)
}

func TestEnsureSuperuserSkipsAndValidates(t *testing.T) {
	_, repo, _ := newTestService(t)
	ctx := context.Background()

	outcome, err := EnsureSuperuser(ctx, repo, config.BootstrapConfig{}, testPasswordConfig(), nil)
	require.NoError(t, err)
	require.Equal(t, BootstrapSkipped, outcome)

	_, err = EnsureSuperuser(ctx, repo, config.BootstrapConfig{SuperuserEmail: "a@b.com", SuperuserPassword: "short"}, testPasswordConfig(), nil)
	require.Error(t, err)

	has, err := repo.HasSuperuser(ctx)
	require.NoError(t, err)
	require.False(t, has)
}
