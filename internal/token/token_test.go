package token

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/auth"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

const (
	alice = types.AccountID("alice")
	bob   = types.AccountID("bob")
	pool  = types.AccountID("pool")
)

func TestMintAndTransfer(t *testing.T) {
	tok := New("US Dollar", "USD")

	require.NoError(t, tok.Mint(nil, alice, sdkmath.NewInt(1000)))
	require.Equal(t, sdkmath.NewInt(1000), tok.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(1000), tok.TotalSupply())

	require.NoError(t, tok.Transfer(alice, bob, sdkmath.NewInt(300)))
	require.Equal(t, sdkmath.NewInt(700), tok.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(300), tok.BalanceOf(bob))
	// Supply is unchanged by transfers.
	require.Equal(t, sdkmath.NewInt(1000), tok.TotalSupply())
}

func TestTransferInsufficientBalance(t *testing.T) {
	tok := New("US Dollar", "USD")
	require.NoError(t, tok.Mint(nil, alice, sdkmath.NewInt(10)))

	err := tok.Transfer(alice, bob, sdkmath.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, sdkmath.NewInt(10), tok.BalanceOf(alice))
	require.True(t, tok.BalanceOf(bob).IsZero())
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	tok := New("US Dollar", "USD")
	require.NoError(t, tok.Mint(nil, alice, sdkmath.NewInt(1000)))
	require.NoError(t, tok.Approve(alice, pool, sdkmath.NewInt(400)))

	require.NoError(t, tok.TransferFrom(pool, alice, pool, sdkmath.NewInt(250)))
	require.Equal(t, sdkmath.NewInt(150), tok.Allowance(alice, pool))
	require.Equal(t, sdkmath.NewInt(250), tok.BalanceOf(pool))

	err := tok.TransferFrom(pool, alice, pool, sdkmath.NewInt(151))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
	require.Equal(t, sdkmath.NewInt(150), tok.Allowance(alice, pool))
}

func TestTransferFromWithoutApproval(t *testing.T) {
	tok := New("US Dollar", "USD")
	require.NoError(t, tok.Mint(nil, alice, sdkmath.NewInt(1000)))

	err := tok.TransferFrom(pool, alice, pool, sdkmath.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestShareTokenMintBurnGating(t *testing.T) {
	owner := auth.NewCapability()
	stranger := auth.NewCapability()
	tok := NewShareToken("USD Pool Shares", "bUSD", owner)

	require.ErrorIs(t, tok.Mint(stranger, alice, sdkmath.NewInt(100)), ErrNotOwner)
	require.ErrorIs(t, tok.Mint(nil, alice, sdkmath.NewInt(100)), ErrNotOwner)
	require.NoError(t, tok.Mint(owner, alice, sdkmath.NewInt(100)))

	require.ErrorIs(t, tok.Burn(stranger, alice, sdkmath.NewInt(50)), ErrNotOwner)
	require.NoError(t, tok.Burn(owner, alice, sdkmath.NewInt(50)))
	require.Equal(t, sdkmath.NewInt(50), tok.BalanceOf(alice))
	require.Equal(t, sdkmath.NewInt(50), tok.TotalSupply())
}

func TestBurnInsufficientBalance(t *testing.T) {
	owner := auth.NewCapability()
	tok := NewShareToken("USD Pool Shares", "bUSD", owner)
	require.NoError(t, tok.Mint(owner, alice, sdkmath.NewInt(5)))

	err := tok.Burn(owner, alice, sdkmath.NewInt(6))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, sdkmath.NewInt(5), tok.BalanceOf(alice))
}

func TestNegativeAmountsRejected(t *testing.T) {
	tok := New("US Dollar", "USD")
	neg := sdkmath.NewInt(-1)

	require.ErrorIs(t, tok.Mint(nil, alice, neg), ErrInvalidAmount)
	require.ErrorIs(t, tok.Burn(nil, alice, neg), ErrInvalidAmount)
	require.ErrorIs(t, tok.Transfer(alice, bob, neg), ErrInvalidAmount)
	require.ErrorIs(t, tok.TransferFrom(pool, alice, bob, neg), ErrInvalidAmount)
	require.ErrorIs(t, tok.Approve(alice, pool, neg), ErrInvalidAmount)
}

func TestMetadata(t *testing.T) {
	tok := New("US Dollar", "USD")
	require.Equal(t, "US Dollar", tok.Name())
	require.Equal(t, "USD", tok.Symbol())
}
