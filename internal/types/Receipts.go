/*

This file contains the types for operation receipts which record every
completed protocol operation for auditing and the API.

*/

package types

import (
	"time"
)

// OperationKind labels the protocol operation a receipt belongs to.
type OperationKind string

const (
	OpLend      OperationKind = "LEND"
	OpWithdraw  OperationKind = "WITHDRAW"
	OpBorrow    OperationKind = "BORROW"
	OpRepay     OperationKind = "REPAY"
	OpLiquidate OperationKind = "LIQUIDATE"
)

// OperationReceipt records one completed protocol operation. Receipts are
// appended after the operation has fully succeeded; failed operations leave no
// receipt.
type OperationReceipt struct {
	ReceiptID string        `json:"receipt_id"` // uuid assigned at creation
	Kind      OperationKind `json:"kind"`
	Caller    AccountID     `json:"caller"`
	Asset     AssetID       `json:"asset"`
	// Amount is the principal amount moved by the operation, rendered as a
	// decimal string to survive serialization.
	Amount string `json:"amount"`
	// LoanID is zero for pool operations that do not touch a loan.
	LoanID    LoanID    `json:"loan_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
