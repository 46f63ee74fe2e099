package pool

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/auth"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/oracle"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/registry"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/token"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

const (
	admin    = types.AccountID("admin")
	poolAcct = types.AccountID("pool")
	alice    = types.AccountID("alice")
	bob      = types.AccountID("bob")
	carol    = types.AccountID("carol")
	dave     = types.AccountID("dave")

	usd = types.AssetID("usd")
	eth = types.AssetID("eth")
)

// fixture wires a manager with a usd lending pool, eth collateral and an
// eth -> usd rate of 2, driven by a controllable clock.
type fixture struct {
	t *testing.T

	now      int64
	manager  *Manager
	registry *registry.Registry
	rates    *oracle.Static
	usd      *token.Token
	eth      *token.Token
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{t: t, now: 1700000000}

	cap := auth.NewCapability()
	f.registry = registry.New(cap)
	f.rates = oracle.NewStatic()

	manager, err := NewManager(Config{
		Account:     poolAcct,
		Roles:       auth.NewRoles(admin),
		Registry:    f.registry,
		RegistryCap: cap,
		Rates:       f.rates,
		Clock:       func() time.Time { return time.Unix(f.now, 0) },
	})
	require.NoError(t, err)
	f.manager = manager

	f.usd = token.New("US Dollar", "USD")
	f.eth = token.New("Ether", "ETH")
	require.NoError(t, manager.AllowAsset(admin, usd, f.usd))
	require.NoError(t, manager.AllowCollateral(admin, eth, f.eth))
	require.NoError(t, manager.SetConversionRate(admin, eth, usd, sdkmath.LegacyNewDec(2)))

	return f
}

func (f *fixture) fund(tok *token.Token, account types.AccountID, amount int64) {
	f.t.Helper()
	require.NoError(f.t, tok.Mint(nil, account, sdkmath.NewInt(amount)))
}

func (f *fixture) approve(tok *token.Token, owner types.AccountID, amount int64) {
	f.t.Helper()
	require.NoError(f.t, tok.Approve(owner, poolAcct, sdkmath.NewInt(amount)))
}

func (f *fixture) lend(account types.AccountID, amount int64) {
	f.t.Helper()
	f.fund(f.usd, account, amount)
	f.approve(f.usd, account, amount)
	require.NoError(f.t, f.manager.Lend(account, usd, sdkmath.NewInt(amount)))
}

// borrow funds the borrower with collateral eth, approves it and opens the
// loan for the full collateral amount.
func (f *fixture) borrow(account types.AccountID, collateral int64) types.LoanID {
	f.t.Helper()
	f.fund(f.eth, account, collateral)
	f.approve(f.eth, account, collateral)
	id, err := f.manager.Borrow(account, usd, eth, sdkmath.NewInt(collateral))
	require.NoError(f.t, err)
	return id
}

func (f *fixture) claimBalance(account types.AccountID) sdkmath.Int {
	f.t.Helper()
	balance, err := f.manager.ClaimBalanceOf(usd, account)
	require.NoError(f.t, err)
	return balance
}

func TestNewManagerValidation(t *testing.T) {
	cap := auth.NewCapability()
	valid := Config{
		Account:     poolAcct,
		Roles:       auth.NewRoles(admin),
		Registry:    registry.New(cap),
		RegistryCap: cap,
		Rates:       oracle.NewStatic(),
	}

	_, err := NewManager(valid)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty account", func(c *Config) { c.Account = "" }},
		{"nil roles", func(c *Config) { c.Roles = nil }},
		{"nil registry", func(c *Config) { c.Registry = nil }},
		{"nil registry capability", func(c *Config) { c.RegistryCap = nil }},
		{"nil rates", func(c *Config) { c.Rates = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			_, err := NewManager(cfg)
			require.Error(t, err)
		})
	}
}

func TestAdminGating(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.manager.Pause(alice), ErrAccessDenied)
	require.ErrorIs(t, f.manager.Unpause(alice), ErrAccessDenied)
	require.ErrorIs(t, f.manager.AllowAsset(alice, "doge", token.New("Doge", "DOGE")), ErrAccessDenied)
	require.ErrorIs(t, f.manager.DisallowAsset(alice, usd), ErrAccessDenied)
	require.ErrorIs(t, f.manager.AllowCollateral(alice, "doge", token.New("Doge", "DOGE")), ErrAccessDenied)
	require.ErrorIs(t, f.manager.DisallowCollateral(alice, eth), ErrAccessDenied)
	require.ErrorIs(t, f.manager.SetConversionRate(alice, eth, usd, sdkmath.LegacyNewDec(3)), ErrAccessDenied)

	// None of the rejected calls changed anything.
	require.False(t, f.manager.Paused())
	require.True(t, f.manager.AssetAccepted(usd))
	require.True(t, f.manager.CollateralAccepted(eth))
	require.Equal(t, sdkmath.LegacyNewDec(2), f.rates.Rate(eth, usd))
}

func TestAssetLifecycle(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.manager.AllowAsset(admin, usd, f.usd), ErrAssetAlreadySupported)
	require.ErrorIs(t, f.manager.AllowCollateral(admin, eth, f.eth), ErrCollateralAlreadySupported)

	require.NoError(t, f.manager.DisallowCollateral(admin, eth))
	require.False(t, f.manager.CollateralAccepted(eth))
	require.ErrorIs(t, f.manager.DisallowCollateral(admin, eth), ErrCollateralAlreadyUnsupported)

	require.ErrorIs(t, f.manager.DisallowAsset(admin, "doge"), ErrAssetNotFound)

	// A pool with outstanding deposits cannot be retired.
	f.lend(alice, 100)
	require.ErrorIs(t, f.manager.DisallowAsset(admin, usd), ErrPoolNotEmpty)

	// Once drained it can.
	require.NoError(t, f.manager.Withdraw(alice, "busd", sdkmath.NewInt(100)))
	require.NoError(t, f.manager.DisallowAsset(admin, usd))
	require.False(t, f.manager.AssetAccepted(usd))

	_, err := f.manager.ClaimTokenFor(usd)
	require.ErrorIs(t, err, ErrAssetNotFound)
	_, err = f.manager.AssetForClaim("busd")
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestClaimIndexConsistency(t *testing.T) {
	f := newFixture(t)

	claim, err := f.manager.ClaimTokenFor(usd)
	require.NoError(t, err)
	require.Equal(t, types.AssetID("busd"), claim)

	asset, err := f.manager.AssetForClaim(claim)
	require.NoError(t, err)
	require.Equal(t, usd, asset)

	_, err = f.manager.AssetForClaim(usd)
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestAssetLedgerRebindMismatch(t *testing.T) {
	f := newFixture(t)

	// usd is already bound to f.usd; binding a different ledger instance under
	// the same id must fail.
	err := f.manager.AllowCollateral(admin, usd, token.New("US Dollar", "USD"))
	require.ErrorIs(t, err, ErrAssetLedgerMismatch)

	// The same instance is fine.
	require.NoError(t, f.manager.AllowCollateral(admin, usd, f.usd))
	require.True(t, f.manager.CollateralAccepted(usd))
}

func TestPoolInfo(t *testing.T) {
	f := newFixture(t)
	f.lend(alice, 1000)

	info, err := f.manager.PoolInfoFor(usd)
	require.NoError(t, err)
	require.Equal(t, usd, info.Asset)
	require.Equal(t, types.AssetID("busd"), info.ClaimToken)
	require.Equal(t, types.AccountID("reserve:usd"), info.ReserveAccount)
	require.Equal(t, sdkmath.NewInt(1000), info.TotalAsset)
	require.Equal(t, sdkmath.NewInt(1000), info.Available)
	require.Equal(t, sdkmath.NewInt(1000), info.TotalShares)
	require.False(t, info.CollateralAccepted)

	_, err = f.manager.PoolInfoFor("doge")
	require.ErrorIs(t, err, ErrAssetNotFound)

	require.NoError(t, f.manager.AllowAsset(admin, "aave", token.New("Aave", "AAVE")))
	pools := f.manager.Pools()
	require.Len(t, pools, 2)
	// Ordered by asset id.
	require.Equal(t, types.AssetID("aave"), pools[0].Asset)
	require.Equal(t, usd, pools[1].Asset)
}

func TestPauseGating(t *testing.T) {
	f := newFixture(t)
	f.lend(alice, 1000)
	loanID := f.borrow(carol, 100)

	require.NoError(t, f.manager.Pause(admin))
	require.True(t, f.manager.Paused())

	f.fund(f.usd, bob, 10)
	f.approve(f.usd, bob, 10)
	require.ErrorIs(t, f.manager.Lend(bob, usd, sdkmath.NewInt(10)), ErrPaused)

	f.fund(f.eth, bob, 10)
	f.approve(f.eth, bob, 10)
	_, err := f.manager.Borrow(bob, usd, eth, sdkmath.NewInt(10))
	require.ErrorIs(t, err, ErrPaused)

	// Withdraw and repay stay open so depositors and borrowers can exit.
	require.NoError(t, f.manager.Withdraw(alice, "busd", sdkmath.NewInt(100)))
	f.approve(f.usd, carol, 141)
	f.fund(f.usd, carol, 1)
	settled, err := f.manager.Repay(carol, loanID, sdkmath.NewInt(141))
	require.NoError(t, err)
	require.True(t, settled)

	require.NoError(t, f.manager.Unpause(admin))
	require.NoError(t, f.manager.Lend(bob, usd, sdkmath.NewInt(10)))
}
