/*

The pool manager is the protocol orchestrator. It owns per-asset pool state
(asset ledger binding, reserve sub-account, claim token, collateral
acceptance), consults the conversion rate source, and composes the share
token, loan registry and asset ledgers into the lend/withdraw/borrow/repay/
liquidate operations.

*/

package pool

import (
	"fmt"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/auth"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/logger"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/oracle"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/registry"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/token"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

const (
	// secondsPerYear anchors linear interest accrual.
	secondsPerYear = 31536000

	// DefaultAPYBps is the simple-interest annual rate in basis points used
	// when the configuration does not override it.
	DefaultAPYBps = 1000

	// Collateral valuation constants: a borrower receives 70% of the posted
	// collateral value and is liquidatable below 75% of it.
	borrowRatioPercent      = 70
	liquidationRatioPercent = 75

	// Liquidation reward: 1% of the remaining collateral.
	liquidationRewardNum   = 1000
	liquidationRewardDenom = 100000

	interestScaleBps = 10000
)

// Recorder receives audit records for completed operations and loan lifecycle
// transitions. Implementations must not fail the operation; persistence
// errors are theirs to log.
type Recorder interface {
	RecordOperation(receipt types.OperationReceipt)
	RecordLoan(snapshot types.LoanSnapshot)
}

// poolEntry is the per-asset pool state. The claim index (asset -> claim and
// claim -> asset) is mutated only together with this map.
type poolEntry struct {
	asset          types.AssetID
	reserveAccount types.AccountID
	claimID        types.AssetID
	claim          *token.Token
}

// Manager implements the protocol operations.
type Manager struct {
	logger  zerolog.Logger
	account types.AccountID

	roles    *auth.Roles
	registry *registry.Registry
	// registryCap authorizes loan registry mutation; shareCap authorizes
	// claim token mint/burn. Both are held exclusively by the manager.
	registryCap *auth.Capability
	shareCap    *auth.Capability

	rates    *oracle.Static
	apyBps   uint64
	clock    func() time.Time
	recorder Recorder

	// mu serializes protocol invocations: each public operation runs to
	// completion before the next starts, which is the execution model the
	// accounting formulas assume. All pool state below is guarded by it.
	mu         sync.Mutex
	paused     bool
	assets     map[types.AssetID]token.Fungible
	pools      map[types.AssetID]*poolEntry
	claimIndex map[types.AssetID]types.AssetID // claim token id -> asset id
	collateral map[types.AssetID]bool
}

// Config holds the dependencies for creating a Manager.
type Config struct {
	// Account is the ledger account holding pooled funds and collateral.
	Account types.AccountID
	// Roles gates the admin operations.
	Roles *auth.Roles
	// Registry is the loan ledger; RegistryCap must be the capability it was
	// constructed with.
	Registry    *registry.Registry
	RegistryCap *auth.Capability
	// Rates is the conversion rate table fed through SetConversionRate.
	Rates *oracle.Static
	// APYBps overrides the default interest rate when non-zero.
	APYBps uint64
	// Clock overrides time.Now, used by tests to control interest accrual.
	Clock func() time.Time
	// Recorder is optional; nil disables audit persistence.
	Recorder Recorder
}

// NewManager creates a pool manager with dependency injection.
func NewManager(cfg Config) (*Manager, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("pool manager configuration validation failed: %w", err)
	}

	m := &Manager{
		logger:      logger.GetForComponent("pool_manager"),
		account:     cfg.Account,
		roles:       cfg.Roles,
		registry:    cfg.Registry,
		registryCap: cfg.RegistryCap,
		shareCap:    auth.NewCapability(),
		rates:       cfg.Rates,
		apyBps:      cfg.APYBps,
		clock:       cfg.Clock,
		recorder:    cfg.Recorder,
		assets:      make(map[types.AssetID]token.Fungible),
		pools:       make(map[types.AssetID]*poolEntry),
		claimIndex:  make(map[types.AssetID]types.AssetID),
		collateral:  make(map[types.AssetID]bool),
	}
	if m.apyBps == 0 {
		m.apyBps = DefaultAPYBps
	}
	if m.clock == nil {
		m.clock = time.Now
	}

	m.logger.Info().
		Str("account", string(m.account)).
		Uint64("apyBps", m.apyBps).
		Msg("Pool manager created")
	return m, nil
}

func validateConfig(cfg Config) error {
	if cfg.Account == "" {
		return fmt.Errorf("manager account cannot be empty")
	}
	if cfg.Roles == nil {
		return fmt.Errorf("role registry cannot be nil")
	}
	if cfg.Registry == nil {
		return fmt.Errorf("loan registry cannot be nil")
	}
	if cfg.RegistryCap == nil {
		return fmt.Errorf("loan registry capability cannot be nil")
	}
	if cfg.Rates == nil {
		return fmt.Errorf("rate table cannot be nil")
	}
	return nil
}

// Account returns the manager's fund account.
func (m *Manager) Account() types.AccountID { return m.account }

// --- Admin operations ---

func (m *Manager) requireAdmin(caller types.AccountID) error {
	if !m.roles.IsAdmin(caller) {
		return ErrAccessDenied
	}
	return nil
}

// Pause halts the state-mutating entry points that are pause-gated (lend and
// borrow). Admin only.
func (m *Manager) Pause(caller types.AccountID) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.logger.Warn().Str("caller", string(caller)).Msg("Protocol paused")
	return nil
}

// Unpause re-enables the pause-gated entry points. Admin only.
func (m *Manager) Unpause(caller types.AccountID) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	m.logger.Info().Str("caller", string(caller)).Msg("Protocol unpaused")
	return nil
}

// AllowAsset makes an asset lendable: it binds the asset ledger, creates the
// pool's claim token and reserve sub-account, and registers the pairing in
// the claim index. Admin only.
func (m *Manager) AllowAsset(caller types.AccountID, asset types.AssetID, ledger token.Fungible) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pools[asset]; exists {
		return ErrAssetAlreadySupported
	}
	if err := m.bindAssetLocked(asset, ledger); err != nil {
		return err
	}

	claimID := types.AssetID("b" + string(asset))
	entry := &poolEntry{
		asset:          asset,
		reserveAccount: types.AccountID("reserve:" + string(asset)),
		claimID:        claimID,
		claim:          token.NewShareToken(string(asset)+" Pool Shares", string(claimID), m.shareCap),
	}
	// Pool map and claim index are updated together to keep the bidirectional
	// pairing consistent.
	m.pools[asset] = entry
	m.claimIndex[claimID] = asset

	m.logger.Info().
		Str("asset", string(asset)).
		Str("claimToken", string(claimID)).
		Str("reserveAccount", string(entry.reserveAccount)).
		Msg("Asset allowed for lending")
	return nil
}

// DisallowAsset retires a pool. It requires the pool's on-contract balance
// (fund account plus reserve sub-account) and the claim token supply to both
// be exactly zero, so no depositor claim can be stranded. Admin only.
func (m *Manager) DisallowAsset(caller types.AccountID, asset types.AssetID) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.pools[asset]
	if !exists {
		return ErrAssetNotFound
	}
	ledger := m.assets[asset]
	balance := ledger.BalanceOf(m.account).Add(ledger.BalanceOf(entry.reserveAccount))
	if !balance.IsZero() || !entry.claim.TotalSupply().IsZero() {
		return ErrPoolNotEmpty
	}

	delete(m.pools, asset)
	delete(m.claimIndex, entry.claimID)
	if !m.collateral[asset] {
		delete(m.assets, asset)
	}

	m.logger.Info().Str("asset", string(asset)).Msg("Asset disallowed for lending")
	return nil
}

// AllowCollateral makes an asset acceptable as loan collateral. Admin only.
func (m *Manager) AllowCollateral(caller types.AccountID, asset types.AssetID, ledger token.Fungible) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collateral[asset] {
		return ErrCollateralAlreadySupported
	}
	if err := m.bindAssetLocked(asset, ledger); err != nil {
		return err
	}
	m.collateral[asset] = true

	m.logger.Info().Str("asset", string(asset)).Msg("Asset allowed as collateral")
	return nil
}

// DisallowCollateral stops accepting an asset as collateral for new loans.
// Existing loans keep their pledged collateral. Admin only.
func (m *Manager) DisallowCollateral(caller types.AccountID, asset types.AssetID) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.collateral[asset] {
		return ErrCollateralAlreadyUnsupported
	}
	m.collateral[asset] = false

	m.logger.Info().Str("asset", string(asset)).Msg("Asset disallowed as collateral")
	return nil
}

// SetConversionRate stores the directional rate valuing one unit of from in
// units of to. Admin only.
func (m *Manager) SetConversionRate(caller types.AccountID, from, to types.AssetID, rate sdkmath.LegacyDec) error {
	if err := m.requireAdmin(caller); err != nil {
		return err
	}
	m.rates.SetRate(from, to, rate)
	m.logger.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("rate", rate.String()).
		Msg("Conversion rate set")
	return nil
}

// bindAssetLocked registers the asset ledger, rejecting a rebind to a
// different ledger instance.
func (m *Manager) bindAssetLocked(asset types.AssetID, ledger token.Fungible) error {
	if ledger == nil {
		return fmt.Errorf("%w: nil ledger for %s", ErrAssetLedgerMismatch, asset)
	}
	if bound, ok := m.assets[asset]; ok {
		if bound != ledger {
			return ErrAssetLedgerMismatch
		}
		return nil
	}
	m.assets[asset] = ledger
	return nil
}

// --- Views ---

// Paused reports whether deposits and borrows are currently halted.
func (m *Manager) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// AssetAccepted reports whether the asset is currently lendable, which holds
// exactly when its claim token pairing exists.
func (m *Manager) AssetAccepted(asset types.AssetID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pools[asset]
	return ok
}

// CollateralAccepted reports whether the asset may be pledged as collateral.
func (m *Manager) CollateralAccepted(asset types.AssetID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collateral[asset]
}

// ClaimTokenFor resolves the claim token id of a lendable asset.
func (m *Manager) ClaimTokenFor(asset types.AssetID) (types.AssetID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pools[asset]
	if !ok {
		return "", ErrAssetNotFound
	}
	return entry.claimID, nil
}

// AssetForClaim resolves the asset an existing claim token belongs to.
func (m *Manager) AssetForClaim(claim types.AssetID) (types.AssetID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.claimIndex[claim]
	if !ok {
		return "", ErrAssetNotFound
	}
	return asset, nil
}

// ClaimBalanceOf returns an account's claim token balance for an asset pool.
func (m *Manager) ClaimBalanceOf(asset types.AssetID, account types.AccountID) (sdkmath.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pools[asset]
	if !ok {
		return sdkmath.ZeroInt(), ErrAssetNotFound
	}
	return entry.claim.BalanceOf(account), nil
}

// PoolInfoFor assembles the read-only view of one pool.
func (m *Manager) PoolInfoFor(asset types.AssetID) (types.PoolInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pools[asset]
	if !ok {
		return types.PoolInfo{}, ErrAssetNotFound
	}
	return m.poolInfoLocked(entry), nil
}

// Pools returns views of all pools ordered by asset id.
func (m *Manager) Pools() []types.PoolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]types.PoolInfo, 0, len(m.pools))
	for _, entry := range m.pools {
		infos = append(infos, m.poolInfoLocked(entry))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Asset < infos[j].Asset })
	return infos
}

func (m *Manager) poolInfoLocked(entry *poolEntry) types.PoolInfo {
	ledger := m.assets[entry.asset]
	available := ledger.BalanceOf(m.account)
	return types.PoolInfo{
		Asset:              entry.asset,
		ReserveAccount:     entry.reserveAccount,
		ClaimToken:         entry.claimID,
		TotalAsset:         available.Add(ledger.BalanceOf(entry.reserveAccount)),
		Available:          available,
		TotalShares:        entry.claim.TotalSupply(),
		CollateralAccepted: m.collateral[entry.asset],
	}
}

// totalAssetLocked values a pool as on-hand funds plus the reserve
// sub-account balance holding lent-out liquidity.
func (m *Manager) totalAssetLocked(entry *poolEntry) sdkmath.Int {
	ledger := m.assets[entry.asset]
	return ledger.BalanceOf(m.account).Add(ledger.BalanceOf(entry.reserveAccount))
}
