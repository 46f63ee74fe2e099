// ./internal/state/loan_store.go
package state

import (
	"fmt"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

// SaveLoanSnapshot appends the state of a loan at a lifecycle transition.
func SaveLoanSnapshot(snapshot types.LoanSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO loan_snapshots (
			loan_id, borrower, collateral_token, collateral_amount,
			borrow_token, borrow_amount, liquidation_price, status, loan_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING snapshot_id;`

	var snapshotID int64
	err := DB.QueryRow(stmt,
		uint64(snapshot.LoanID), string(snapshot.Borrower),
		string(snapshot.CollateralToken), snapshot.CollateralAmount,
		string(snapshot.BorrowToken), snapshot.BorrowAmount,
		snapshot.LiquidationPrice, string(snapshot.Status), snapshot.Timestamp,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert loan snapshot: %w", err)
	}
	return snapshotID, nil
}

// GetLoanHistory returns all snapshots for one loan, oldest first.
func GetLoanHistory(loanID types.LoanID) ([]types.LoanSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stmt := `
		SELECT loan_id, borrower, collateral_token, collateral_amount,
		       borrow_token, borrow_amount, liquidation_price, status, loan_timestamp
		FROM loan_snapshots
		WHERE loan_id = $1
		ORDER BY snapshot_id ASC;`
	rows, err := DB.Query(stmt, uint64(loanID))
	if err != nil {
		return nil, fmt.Errorf("failed to query loan history: %w", err)
	}
	defer rows.Close()

	var snapshots []types.LoanSnapshot
	for rows.Next() {
		var s types.LoanSnapshot
		var id uint64
		var borrower, collateralToken, borrowToken, status string
		if err := rows.Scan(&id, &borrower, &collateralToken, &s.CollateralAmount,
			&borrowToken, &s.BorrowAmount, &s.LiquidationPrice, &status, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan loan snapshot: %w", err)
		}
		s.LoanID = types.LoanID(id)
		s.Borrower = types.AccountID(borrower)
		s.CollateralToken = types.AssetID(collateralToken)
		s.BorrowToken = types.AssetID(borrowToken)
		s.Status = types.LoanStatus(status)
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loan snapshots: %w", err)
	}
	return snapshots, nil
}
