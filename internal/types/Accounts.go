/*

Identifier types shared across the protocol components.

*/

package types

// AccountID identifies an account on a fungible ledger. Protocol-internal
// accounts (the pool manager's fund account, per-pool reserve sub-accounts)
// use the same identifier space as user accounts.
type AccountID string

// AssetID identifies a fungible asset ledger. Claim tokens live in the same
// identifier space as the assets they represent so they can be addressed by
// operations such as withdraw.
type AssetID string

// LoanID identifies a loan record in the registry. Ids are allocated
// monotonically starting at 1 and are never reused.
type LoanID uint64
