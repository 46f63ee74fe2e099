package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

func TestCapabilityIdentity(t *testing.T) {
	a := NewCapability()
	b := NewCapability()

	// Capabilities compare by pointer identity only.
	require.True(t, a == a)
	require.False(t, a == b)
}

func TestRolesGrantRevoke(t *testing.T) {
	admin := types.AccountID("admin")
	other := types.AccountID("other")

	roles := NewRoles(admin)
	require.True(t, roles.IsAdmin(admin))
	require.False(t, roles.IsAdmin(other))

	roles.GrantAdmin(other)
	require.True(t, roles.IsAdmin(other))

	roles.RevokeAdmin(admin)
	require.False(t, roles.IsAdmin(admin))
	require.True(t, roles.IsAdmin(other))
}

func TestRolesEmpty(t *testing.T) {
	roles := NewRoles()
	require.False(t, roles.IsAdmin(types.AccountID("anyone")))
}
