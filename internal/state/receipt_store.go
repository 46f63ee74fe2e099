// ./internal/state/receipt_store.go
package state

import (
	"fmt"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

// SaveOperationReceipt appends one completed operation to the audit log.
func SaveOperationReceipt(receipt types.OperationReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO operation_receipts (receipt_id, kind, caller, asset, amount, loan_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`
	_, err := DB.Exec(stmt,
		receipt.ReceiptID, string(receipt.Kind), string(receipt.Caller),
		string(receipt.Asset), receipt.Amount, uint64(receipt.LoanID), receipt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation receipt: %w", err)
	}
	return nil
}

// GetRecentReceipts returns the most recent operation receipts, newest first.
func GetRecentReceipts(limit int) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
		SELECT receipt_id, kind, caller, asset, amount, loan_id, created_at
		FROM operation_receipts
		ORDER BY created_at DESC
		LIMIT $1;`
	rows, err := DB.Query(stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]types.OperationReceipt, 0, limit)
	for rows.Next() {
		var r types.OperationReceipt
		var kind, caller, asset string
		var loanID uint64
		if err := rows.Scan(&r.ReceiptID, &kind, &caller, &asset, &r.Amount, &loanID, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan operation receipt: %w", err)
		}
		r.Kind = types.OperationKind(kind)
		r.Caller = types.AccountID(caller)
		r.Asset = types.AssetID(asset)
		r.LoanID = types.LoanID(loanID)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation receipts: %w", err)
	}
	return receipts, nil
}

// GetReceiptsForLoan returns all receipts touching one loan, oldest first.
func GetReceiptsForLoan(loanID types.LoanID) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
		SELECT receipt_id, kind, caller, asset, amount, loan_id, created_at
		FROM operation_receipts
		WHERE loan_id = $1
		ORDER BY created_at ASC;`
	rows, err := DB.Query(stmt, uint64(loanID))
	if err != nil {
		return nil, fmt.Errorf("failed to query loan receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.OperationReceipt
	for rows.Next() {
		var r types.OperationReceipt
		var kind, caller, asset string
		var id uint64
		if err := rows.Scan(&r.ReceiptID, &kind, &caller, &asset, &r.Amount, &id, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan loan receipt: %w", err)
		}
		r.Kind = types.OperationKind(kind)
		r.Caller = types.AccountID(caller)
		r.Asset = types.AssetID(asset)
		r.LoanID = types.LoanID(id)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loan receipts: %w", err)
	}
	return receipts, nil
}
