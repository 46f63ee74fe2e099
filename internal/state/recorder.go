// ./internal/state/recorder.go
package state

import (
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/logger"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

// Recorder persists audit records produced by the pool manager. Persistence
// failures are logged and swallowed so they can never fail a protocol
// operation.
type Recorder struct{}

// NewRecorder returns a recorder backed by the global database pool.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordOperation stores one operation receipt.
func (r *Recorder) RecordOperation(receipt types.OperationReceipt) {
	recorderLogger := logger.GetForComponent("state_recorder")
	if err := SaveOperationReceipt(receipt); err != nil {
		recorderLogger.Error().Err(err).Str("receiptID", receipt.ReceiptID).Msg("Failed to save operation receipt")
		return
	}
	recorderLogger.Debug().Str("receiptID", receipt.ReceiptID).Str("kind", string(receipt.Kind)).Msg("Operation receipt saved")
}

// RecordLoan stores one loan lifecycle snapshot.
func (r *Recorder) RecordLoan(snapshot types.LoanSnapshot) {
	recorderLogger := logger.GetForComponent("state_recorder")
	snapshotID, err := SaveLoanSnapshot(snapshot)
	if err != nil {
		recorderLogger.Error().Err(err).Uint64("loanID", uint64(snapshot.LoanID)).Msg("Failed to save loan snapshot")
		return
	}
	recorderLogger.Debug().Int64("snapshotID", snapshotID).Uint64("loanID", uint64(snapshot.LoanID)).Msg("Loan snapshot saved")
}
