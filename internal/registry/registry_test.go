package registry

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/auth"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

func testLoan(borrower types.AccountID) types.LoanInfo {
	return types.LoanInfo{
		Borrower:         borrower,
		CollateralToken:  "eth",
		CollateralAmount: sdkmath.NewInt(100),
		BorrowToken:      "usd",
		BorrowAmount:     sdkmath.NewInt(140),
		LiquidationPrice: sdkmath.NewInt(150),
		Timestamp:        1700000000,
	}
}

func TestCreateLoanAllocatesMonotonicIDs(t *testing.T) {
	cap := auth.NewCapability()
	r := New(cap)

	require.Equal(t, types.LoanID(0), r.LastLoanID())

	id1, err := r.CreateLoan(cap, testLoan("carol"))
	require.NoError(t, err)
	require.Equal(t, types.LoanID(1), id1)

	id2, err := r.CreateLoan(cap, testLoan("dave"))
	require.NoError(t, err)
	require.Equal(t, types.LoanID(2), id2)
	require.Equal(t, types.LoanID(2), r.LastLoanID())
	require.Equal(t, []types.LoanID{1, 2}, r.LoanIDs())
}

func TestCreateLoanIgnoresSuppliedID(t *testing.T) {
	cap := auth.NewCapability()
	r := New(cap)

	info := testLoan("carol")
	info.ID = 999
	id, err := r.CreateLoan(cap, info)
	require.NoError(t, err)
	require.Equal(t, types.LoanID(1), id)

	stored, err := r.GetLoanInfo(id)
	require.NoError(t, err)
	require.Equal(t, types.LoanID(1), stored.ID)
}

func TestCreateLoanIDExhaustion(t *testing.T) {
	cap := auth.NewCapability()
	r := New(cap)
	r.lastID = types.LoanID(math.MaxUint64)

	_, err := r.CreateLoan(cap, testLoan("carol"))
	require.ErrorIs(t, err, ErrLoanIDExhausted)
	// The counter does not wrap.
	require.Equal(t, types.LoanID(math.MaxUint64), r.LastLoanID())
}

func TestMutationRequiresCapability(t *testing.T) {
	cap := auth.NewCapability()
	wrong := auth.NewCapability()
	r := New(cap)

	id, err := r.CreateLoan(cap, testLoan("carol"))
	require.NoError(t, err)

	_, err = r.CreateLoan(wrong, testLoan("dave"))
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = r.CreateLoan(nil, testLoan("dave"))
	require.ErrorIs(t, err, ErrUnauthorized)

	require.ErrorIs(t, r.DeleteLoan(wrong, "carol", id), ErrUnauthorized)
	require.ErrorIs(t, r.UpdateLoan(wrong, id, sdkmath.NewInt(1), sdkmath.NewInt(1), 0), ErrUnauthorized)
	require.ErrorIs(t, r.LiquidateLoan(wrong, id), ErrUnauthorized)

	// The failed calls left the record untouched.
	info, err := r.GetLoanInfo(id)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(140), info.BorrowAmount)
	require.False(t, info.AlreadyLiquidated)
}

func TestDeleteLoanOwnership(t *testing.T) {
	cap := auth.NewCapability()
	r := New(cap)

	id, err := r.CreateLoan(cap, testLoan("carol"))
	require.NoError(t, err)

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, types.AccountID("carol"), owner)

	require.ErrorIs(t, r.DeleteLoan(cap, "mallory", id), ErrNotLoanOwner)
	require.NoError(t, r.DeleteLoan(cap, "carol", id))

	_, err = r.GetLoanInfo(id)
	require.ErrorIs(t, err, ErrLoanNotFound)
	_, err = r.OwnerOf(id)
	require.ErrorIs(t, err, ErrLoanNotFound)

	// Deleted ids are never reissued.
	next, err := r.CreateLoan(cap, testLoan("dave"))
	require.NoError(t, err)
	require.Equal(t, types.LoanID(2), next)
}

func TestUpdateLoanMutableFieldsOnly(t *testing.T) {
	cap := auth.NewCapability()
	r := New(cap)

	id, err := r.CreateLoan(cap, testLoan("carol"))
	require.NoError(t, err)

	require.NoError(t, r.UpdateLoan(cap, id, sdkmath.NewInt(98), sdkmath.NewInt(67), 1700001000))

	info, err := r.GetLoanInfo(id)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(98), info.BorrowAmount)
	require.Equal(t, sdkmath.NewInt(67), info.CollateralAmount)
	require.Equal(t, int64(1700001000), info.Timestamp)
	// Identity fields are untouched.
	require.Equal(t, types.AccountID("carol"), info.Borrower)
	require.Equal(t, sdkmath.NewInt(150), info.LiquidationPrice)
	require.False(t, info.AlreadyLiquidated)

	require.ErrorIs(t, r.UpdateLoan(cap, 42, sdkmath.NewInt(1), sdkmath.NewInt(1), 0), ErrLoanNotFound)
}

func TestLiquidateLoanSetsFlag(t *testing.T) {
	cap := auth.NewCapability()
	r := New(cap)

	id, err := r.CreateLoan(cap, testLoan("carol"))
	require.NoError(t, err)

	require.NoError(t, r.LiquidateLoan(cap, id))

	info, err := r.GetLoanInfo(id)
	require.NoError(t, err)
	require.True(t, info.AlreadyLiquidated)

	// The record and ownership token survive liquidation.
	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, types.AccountID("carol"), owner)

	require.ErrorIs(t, r.LiquidateLoan(cap, 42), ErrLoanNotFound)
}

func TestGetLoanInfoReturnsCopy(t *testing.T) {
	cap := auth.NewCapability()
	r := New(cap)

	id, err := r.CreateLoan(cap, testLoan("carol"))
	require.NoError(t, err)

	info, err := r.GetLoanInfo(id)
	require.NoError(t, err)
	info.BorrowAmount = sdkmath.NewInt(1)

	again, err := r.GetLoanInfo(id)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(140), again.BorrowAmount)
}
