/*

This is a custom type for loans which contains all the state tracked for a
single collateralized borrowing position.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// LoanInfo is the registry record for one open borrowing position.
type LoanInfo struct {
	ID LoanID `json:"id"`
	// Borrower opened the loan and owns the loan ownership token.
	Borrower AccountID `json:"borrower"`
	// CollateralToken and CollateralAmount describe the pledged asset held by
	// the pool manager for the lifetime of the loan.
	CollateralToken  AssetID     `json:"collateral_token"`
	CollateralAmount sdkmath.Int `json:"collateral_amount"`
	// BorrowToken and BorrowAmount describe the borrowed principal still owed.
	// BorrowAmount decreases on partial repayment, never on interest accrual.
	BorrowToken  AssetID     `json:"borrow_token"`
	BorrowAmount sdkmath.Int `json:"borrow_amount"`
	// LiquidationPrice is the collateral value, in borrow-asset units at
	// origination, below which the position becomes liquidatable.
	LiquidationPrice sdkmath.Int `json:"liquidation_price"`
	// Timestamp is the unix time of the last principal/collateral adjustment
	// and anchors interest accrual.
	Timestamp int64 `json:"timestamp"`
	// AlreadyLiquidated is a terminal flag; the record persists until the
	// borrower clears it.
	AlreadyLiquidated bool `json:"already_liquidated"`
}

// Clone returns a deep copy so callers cannot mutate registry state through
// the shared big-integer backing of sdkmath.Int.
func (l LoanInfo) Clone() LoanInfo {
	c := l
	if !l.CollateralAmount.IsNil() {
		c.CollateralAmount = l.CollateralAmount.Add(sdkmath.ZeroInt())
	}
	if !l.BorrowAmount.IsNil() {
		c.BorrowAmount = l.BorrowAmount.Add(sdkmath.ZeroInt())
	}
	if !l.LiquidationPrice.IsNil() {
		c.LiquidationPrice = l.LiquidationPrice.Add(sdkmath.ZeroInt())
	}
	return c
}

// LoanStatus labels the lifecycle stage recorded in loan snapshots.
type LoanStatus string

const (
	LoanStatusOpen       LoanStatus = "open"
	LoanStatusRepaid     LoanStatus = "repaid"
	LoanStatusLiquidated LoanStatus = "liquidated"
	LoanStatusClosed     LoanStatus = "closed"
)

// LoanSnapshot is the persisted view of a loan at a lifecycle transition.
type LoanSnapshot struct {
	LoanID           LoanID     `json:"loan_id"`
	Borrower         AccountID  `json:"borrower"`
	CollateralToken  AssetID    `json:"collateral_token"`
	CollateralAmount string     `json:"collateral_amount"`
	BorrowToken      AssetID    `json:"borrow_token"`
	BorrowAmount     string     `json:"borrow_amount"`
	LiquidationPrice string     `json:"liquidation_price"`
	Status           LoanStatus `json:"status"`
	Timestamp        int64      `json:"timestamp"`
}
