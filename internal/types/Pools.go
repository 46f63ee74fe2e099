/*

This is a custom type for pools which contains all the state reported for one
lendable asset pool.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// PoolInfo is a read-only view of one asset pool assembled by the pool
// manager for the API and for diagnostics.
type PoolInfo struct {
	Asset AssetID `json:"asset"`
	// ReserveAccount is the sub-account whose balance counts as lent-out
	// liquidity when valuing the pool.
	ReserveAccount AccountID `json:"reserve_account"`
	// ClaimToken identifies the share token representing proportional
	// ownership of this pool.
	ClaimToken AssetID `json:"claim_token"`
	// TotalAsset is on-hand balance plus reserve balance.
	TotalAsset sdkmath.Int `json:"total_asset"`
	// Available is the immediately withdrawable (non-lent) balance.
	Available sdkmath.Int `json:"available"`
	// TotalShares is the claim token total supply.
	TotalShares sdkmath.Int `json:"total_shares"`
	// CollateralAccepted reports whether the asset may be pledged as
	// collateral, which is independent from it being lendable.
	CollateralAccepted bool `json:"collateral_accepted"`
}
