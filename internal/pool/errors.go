package pool

import "errors"

// Protocol errors returned by the pool manager. Collaborator failures (ledger
// transfers, registry mutations) are wrapped and propagate alongside these.
var (
	ErrPaused       = errors.New("pool manager: protocol is paused")
	ErrAccessDenied = errors.New("pool manager: caller lacks the admin role")

	ErrAssetNotFound                = errors.New("pool manager: asset is not a lendable pool")
	ErrAssetAlreadySupported        = errors.New("pool manager: asset is already lendable")
	ErrCollateralNotSupported       = errors.New("pool manager: asset is not accepted as collateral")
	ErrCollateralAlreadySupported   = errors.New("pool manager: asset is already accepted as collateral")
	ErrCollateralAlreadyUnsupported = errors.New("pool manager: asset is already not accepted as collateral")
	ErrPoolNotEmpty                 = errors.New("pool manager: pool balance or claim supply is not zero")
	ErrAssetLedgerMismatch          = errors.New("pool manager: asset is already bound to a different ledger")

	ErrInsufficientAllowance     = errors.New("pool manager: insufficient allowance")
	ErrInsufficientBalance       = errors.New("pool manager: insufficient balance")
	ErrInsufficientPoolLiquidity = errors.New("pool manager: insufficient pool liquidity")

	// ErrAmountNotSupported covers the defensive borrow check and non-positive
	// operation amounts.
	ErrAmountNotSupported = errors.New("pool manager: amount or ratio not supported")

	ErrLoanAlreadyLiquidated = errors.New("pool manager: loan already liquidated")
	ErrLoanNotLiquidatable   = errors.New("pool manager: loan is healthy and cannot be liquidated")
)
