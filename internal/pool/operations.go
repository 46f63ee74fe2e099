package pool

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/registry"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

// Lend deposits amount of asset into its pool and mints proportional claim
// tokens to the caller. The caller must have approved the manager account for
// at least amount beforehand. The mint ratio is computed from the totals read
// before the deposit transfer lands, so a depositor cannot skew the ratio
// with their own incoming funds.
func (m *Manager) Lend(caller types.AccountID, asset types.AssetID, amount sdkmath.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		return ErrPaused
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrAmountNotSupported
	}
	entry, ok := m.pools[asset]
	if !ok {
		return ErrAssetNotFound
	}
	ledger := m.assets[asset]

	if ledger.Allowance(caller, m.account).LT(amount) {
		return ErrInsufficientAllowance
	}
	if ledger.BalanceOf(caller).LT(amount) {
		return ErrInsufficientBalance
	}

	// Pre-transfer totals: first depositor mints 1:1, later depositors mint
	// floor(amount * totalShares / totalAsset).
	totalAsset := m.totalAssetLocked(entry)
	totalShares := entry.claim.TotalSupply()
	var shares sdkmath.Int
	if totalAsset.IsZero() {
		shares = amount
	} else {
		shares = amount.Mul(totalShares).Quo(totalAsset)
	}

	if err := ledger.TransferFrom(m.account, caller, m.account, amount); err != nil {
		return fmt.Errorf("pool manager: deposit transfer failed: %w", err)
	}
	if err := entry.claim.Mint(m.shareCap, caller, shares); err != nil {
		return fmt.Errorf("pool manager: claim mint failed: %w", err)
	}

	m.logger.Info().
		Str("caller", string(caller)).
		Str("asset", string(asset)).
		Str("amount", amount.String()).
		Str("sharesMinted", shares.String()).
		Msg("Lend completed")
	m.recordOperation(types.OpLend, caller, asset, amount, 0)
	return nil
}

// Withdraw redeems shareAmount claim tokens of the given claim token for the
// proportional share of the pool. The payout is capped by the pool's on-hand
// balance: lent-out funds cannot be withdrawn even though they count toward
// the pool's total value.
func (m *Manager) Withdraw(caller types.AccountID, claimToken types.AssetID, shareAmount sdkmath.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if shareAmount.IsNil() || !shareAmount.IsPositive() {
		return ErrAmountNotSupported
	}
	asset, ok := m.claimIndex[claimToken]
	if !ok {
		return ErrAssetNotFound
	}
	entry := m.pools[asset]
	ledger := m.assets[asset]

	if entry.claim.BalanceOf(caller).LT(shareAmount) {
		return ErrInsufficientBalance
	}

	totalAsset := m.totalAssetLocked(entry)
	totalSupply := entry.claim.TotalSupply()
	owed := shareAmount.Mul(totalAsset).Quo(totalSupply)

	if owed.GT(ledger.BalanceOf(m.account)) {
		return ErrInsufficientPoolLiquidity
	}

	// Burn before paying out so a reentrant payout call cannot redeem the
	// same shares twice.
	if err := entry.claim.Burn(m.shareCap, caller, shareAmount); err != nil {
		return fmt.Errorf("pool manager: claim burn failed: %w", err)
	}
	if err := ledger.Transfer(m.account, caller, owed); err != nil {
		return fmt.Errorf("pool manager: withdrawal transfer failed: %w", err)
	}

	m.logger.Info().
		Str("caller", string(caller)).
		Str("asset", string(asset)).
		Str("sharesBurned", shareAmount.String()).
		Str("amountOut", owed.String()).
		Msg("Withdraw completed")
	m.recordOperation(types.OpWithdraw, caller, asset, owed, 0)
	return nil
}

// Borrow opens a collateralized loan: the caller pledges amount of
// collateralAsset and receives 70% of its value in the borrow asset. The loan
// becomes liquidatable when the collateral value falls to 75% of its value at
// origination.
func (m *Manager) Borrow(caller types.AccountID, asset, collateralAsset types.AssetID, amount sdkmath.Int) (types.LoanID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		return 0, ErrPaused
	}
	if amount.IsNil() || !amount.IsPositive() {
		return 0, ErrAmountNotSupported
	}
	entry, ok := m.pools[asset]
	if !ok {
		return 0, ErrAssetNotFound
	}
	if !m.collateral[collateralAsset] {
		return 0, ErrCollateralNotSupported
	}
	ledger := m.assets[asset]
	colLedger := m.assets[collateralAsset]

	if colLedger.Allowance(caller, m.account).LT(amount) {
		return 0, ErrInsufficientAllowance
	}
	if colLedger.BalanceOf(caller).LT(amount) {
		return 0, ErrInsufficientBalance
	}

	// Value the pledged collateral in borrow-asset units. An unset rate
	// values it at zero, which the defensive ratio check below rejects.
	price := m.rates.Rate(collateralAsset, asset).MulInt(amount).TruncateInt()
	liquidationPrice := price.MulRaw(liquidationRatioPercent).QuoRaw(100)
	borrowAmount := price.MulRaw(borrowRatioPercent).QuoRaw(100)
	// Structurally impossible with the fixed 70/75 constants for positive
	// price, but checked anyway.
	if borrowAmount.GTE(liquidationPrice) {
		return 0, ErrAmountNotSupported
	}
	if ledger.BalanceOf(m.account).LT(borrowAmount) {
		return 0, ErrInsufficientPoolLiquidity
	}

	if err := colLedger.TransferFrom(m.account, caller, m.account, amount); err != nil {
		return 0, fmt.Errorf("pool manager: collateral transfer failed: %w", err)
	}

	now := m.clock().Unix()
	info := types.LoanInfo{
		Borrower:          caller,
		CollateralToken:   collateralAsset,
		CollateralAmount:  amount,
		BorrowToken:       asset,
		BorrowAmount:      borrowAmount,
		LiquidationPrice:  liquidationPrice,
		Timestamp:         now,
		AlreadyLiquidated: false,
	}
	loanID, err := m.registry.CreateLoan(m.registryCap, info)
	if err != nil {
		return 0, fmt.Errorf("pool manager: loan creation failed: %w", err)
	}

	if err := ledger.Transfer(m.account, caller, borrowAmount); err != nil {
		return 0, fmt.Errorf("pool manager: borrow payout failed: %w", err)
	}
	// Mint the lent-out principal as claims held by the pool itself so the
	// share accounting keeps counting it for future depositors.
	if err := entry.claim.Mint(m.shareCap, m.account, borrowAmount); err != nil {
		return 0, fmt.Errorf("pool manager: principal claim mint failed: %w", err)
	}

	m.logger.Info().
		Uint64("loanID", uint64(loanID)).
		Str("caller", string(caller)).
		Str("asset", string(asset)).
		Str("collateral", string(collateralAsset)).
		Str("collateralAmount", amount.String()).
		Str("borrowAmount", borrowAmount.String()).
		Str("liquidationPrice", liquidationPrice.String()).
		Msg("Borrow completed")
	m.recordOperation(types.OpBorrow, caller, asset, borrowAmount, loanID)
	info.ID = loanID
	m.recordLoan(info, types.LoanStatusOpen)
	return loanID, nil
}

// Repay pays down a loan. Returned true means funds moved (full or partial
// repayment); false means the loan had already been liquidated and the call
// only cleaned up the record and ownership token without moving funds.
func (m *Manager) Repay(caller types.AccountID, loanID types.LoanID, repayAmount sdkmath.Int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := m.registry.GetLoanInfo(loanID)
	if err != nil {
		return false, fmt.Errorf("pool manager: %w", err)
	}

	if info.AlreadyLiquidated {
		if err := m.registry.DeleteLoan(m.registryCap, caller, loanID); err != nil {
			return false, fmt.Errorf("pool manager: liquidated loan cleanup failed: %w", err)
		}
		m.logger.Info().Uint64("loanID", uint64(loanID)).Msg("Liquidated loan cleaned up")
		m.recordLoan(info, types.LoanStatusClosed)
		return false, nil
	}

	if repayAmount.IsNil() || !repayAmount.IsPositive() {
		return false, ErrAmountNotSupported
	}
	entry, ok := m.pools[info.BorrowToken]
	if !ok {
		return false, ErrAssetNotFound
	}
	ledger := m.assets[info.BorrowToken]
	colLedger := m.assets[info.CollateralToken]

	if ledger.Allowance(caller, m.account).LT(repayAmount) {
		return false, ErrInsufficientAllowance
	}
	if ledger.BalanceOf(caller).LT(repayAmount) {
		return false, ErrInsufficientBalance
	}

	owed := m.owedLocked(info)

	if repayAmount.GTE(owed) {
		// Full repayment: collect exactly what is owed, return all remaining
		// collateral, and close out the record, the ownership token and the
		// principal claims minted at origination. Ownership is verified
		// before any funds move because loan deletion burns the caller's
		// ownership token and there is no rollback after a transfer.
		owner, err := m.registry.OwnerOf(loanID)
		if err != nil {
			return false, fmt.Errorf("pool manager: %w", err)
		}
		if owner != caller {
			return false, fmt.Errorf("pool manager: %w", registry.ErrNotLoanOwner)
		}
		if err := ledger.TransferFrom(m.account, caller, m.account, owed); err != nil {
			return false, fmt.Errorf("pool manager: repayment transfer failed: %w", err)
		}
		if err := colLedger.Transfer(m.account, caller, info.CollateralAmount); err != nil {
			return false, fmt.Errorf("pool manager: collateral return failed: %w", err)
		}
		if err := m.registry.DeleteLoan(m.registryCap, caller, loanID); err != nil {
			return false, fmt.Errorf("pool manager: loan deletion failed: %w", err)
		}
		if err := entry.claim.Burn(m.shareCap, m.account, info.BorrowAmount); err != nil {
			return false, fmt.Errorf("pool manager: principal claim burn failed: %w", err)
		}

		m.logger.Info().
			Uint64("loanID", uint64(loanID)).
			Str("caller", string(caller)).
			Str("repaid", owed.String()).
			Str("collateralReturned", info.CollateralAmount.String()).
			Msg("Loan fully repaid")
		m.recordOperation(types.OpRepay, caller, info.BorrowToken, owed, loanID)
		m.recordLoan(info, types.LoanStatusRepaid)
		return true, nil
	}

	// Partial repayment: collateral is released proportionally to the share
	// of the outstanding debt covered, and the interest clock restarts.
	if err := ledger.TransferFrom(m.account, caller, m.account, repayAmount); err != nil {
		return false, fmt.Errorf("pool manager: repayment transfer failed: %w", err)
	}
	collateralReturned := repayAmount.Mul(info.CollateralAmount).Quo(owed)
	if err := colLedger.Transfer(m.account, caller, collateralReturned); err != nil {
		return false, fmt.Errorf("pool manager: collateral return failed: %w", err)
	}

	now := m.clock().Unix()
	newBorrow := owed.Sub(repayAmount)
	newCollateral := info.CollateralAmount.Sub(collateralReturned)
	if err := m.registry.UpdateLoan(m.registryCap, loanID, newBorrow, newCollateral, now); err != nil {
		return false, fmt.Errorf("pool manager: loan update failed: %w", err)
	}

	// The accrued-interest delta becomes pool-owned claims. Truncation can
	// push the delta below zero; it is clamped because a negative mint has no
	// meaning in the share accounting.
	interestDelta := owed.Sub(repayAmount).Sub(info.BorrowAmount)
	if interestDelta.IsPositive() {
		if err := entry.claim.Mint(m.shareCap, m.account, interestDelta); err != nil {
			return false, fmt.Errorf("pool manager: interest claim mint failed: %w", err)
		}
	}

	m.logger.Info().
		Uint64("loanID", uint64(loanID)).
		Str("caller", string(caller)).
		Str("repaid", repayAmount.String()).
		Str("collateralReturned", collateralReturned.String()).
		Str("remainingDebt", newBorrow.String()).
		Msg("Loan partially repaid")
	m.recordOperation(types.OpRepay, caller, info.BorrowToken, repayAmount, loanID)
	info.BorrowAmount = newBorrow
	info.CollateralAmount = newCollateral
	info.Timestamp = now
	m.recordLoan(info, types.LoanStatusOpen)
	return true, nil
}

// LiquidateLoan liquidates an under-collateralized loan. The caller receives
// 1% of the remaining collateral as a reward; the rest stays with the pool.
// Healthy positions are rejected.
func (m *Manager) LiquidateLoan(caller types.AccountID, loanID types.LoanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := m.registry.GetLoanInfo(loanID)
	if err != nil {
		return fmt.Errorf("pool manager: %w", err)
	}
	if info.AlreadyLiquidated {
		return ErrLoanAlreadyLiquidated
	}

	value := m.rates.Rate(info.CollateralToken, info.BorrowToken).MulInt(info.CollateralAmount).TruncateInt()
	if value.GT(info.LiquidationPrice) {
		return ErrLoanNotLiquidatable
	}

	colLedger := m.assets[info.CollateralToken]
	reward := info.CollateralAmount.MulRaw(liquidationRewardNum).QuoRaw(liquidationRewardDenom)
	if colLedger.BalanceOf(m.account).LT(reward) {
		return ErrInsufficientPoolLiquidity
	}

	// Mark before paying the reward so a repeated call observes the terminal
	// flag no matter what the payout does.
	if err := m.registry.LiquidateLoan(m.registryCap, loanID); err != nil {
		return fmt.Errorf("pool manager: loan liquidation failed: %w", err)
	}
	if err := colLedger.Transfer(m.account, caller, reward); err != nil {
		return fmt.Errorf("pool manager: liquidation reward transfer failed: %w", err)
	}

	m.logger.Info().
		Uint64("loanID", uint64(loanID)).
		Str("liquidator", string(caller)).
		Str("collateralValue", value.String()).
		Str("liquidationPrice", info.LiquidationPrice.String()).
		Str("reward", reward.String()).
		Msg("Loan liquidated")
	m.recordOperation(types.OpLiquidate, caller, info.CollateralToken, reward, loanID)
	info.AlreadyLiquidated = true
	m.recordLoan(info, types.LoanStatusLiquidated)
	return nil
}

// OutstandingDebt returns what a full repayment of the loan would collect at
// the current time, interest included.
func (m *Manager) OutstandingDebt(loanID types.LoanID) (sdkmath.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, err := m.registry.GetLoanInfo(loanID)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("pool manager: %w", err)
	}
	return m.owedLocked(info), nil
}

// owedLocked computes the debt with linear simple interest since the loan's
// accrual anchor. The trailing +1 rounds in the protocol's favor so
// truncation can never under-collect.
func (m *Manager) owedLocked(info types.LoanInfo) sdkmath.Int {
	elapsed := m.clock().Unix() - info.Timestamp
	if elapsed < 0 {
		elapsed = 0
	}
	interest := sdkmath.NewIntFromUint64(m.apyBps).MulRaw(elapsed).QuoRaw(secondsPerYear)
	return info.BorrowAmount.
		Mul(sdkmath.NewInt(interestScaleBps).Add(interest)).
		QuoRaw(interestScaleBps).
		AddRaw(1)
}

func (m *Manager) recordOperation(kind types.OperationKind, caller types.AccountID, asset types.AssetID, amount sdkmath.Int, loanID types.LoanID) {
	if m.recorder == nil {
		return
	}
	m.recorder.RecordOperation(types.OperationReceipt{
		ReceiptID: uuid.New().String(),
		Kind:      kind,
		Caller:    caller,
		Asset:     asset,
		Amount:    amount.String(),
		LoanID:    loanID,
		Timestamp: time.Now().UTC(),
	})
}

func (m *Manager) recordLoan(info types.LoanInfo, status types.LoanStatus) {
	if m.recorder == nil {
		return
	}
	m.recorder.RecordLoan(types.LoanSnapshot{
		LoanID:           info.ID,
		Borrower:         info.Borrower,
		CollateralToken:  info.CollateralToken,
		CollateralAmount: info.CollateralAmount.String(),
		BorrowToken:      info.BorrowToken,
		BorrowAmount:     info.BorrowAmount.String(),
		LiquidationPrice: info.LiquidationPrice.String(),
		Status:           status,
		Timestamp:        info.Timestamp,
	})
}
