/*

Loan ledger: an append/update/delete store of loan records keyed by a
monotonically increasing id, with a non-fungible ownership token minted to the
borrower alongside every record. Mutation is gated on a capability handed to
the pool manager at construction, so no other component can touch loan state.

*/

package registry

import (
	"errors"
	"math"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/auth"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/logger"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

var (
	ErrLoanNotFound = errors.New("loan registry: loan does not exist")
	ErrNotLoanOwner = errors.New("loan registry: caller does not own the loan token")
	ErrUnauthorized = errors.New("loan registry: missing mutation capability")
	// ErrLoanExists signals an id collision on create. Ids are allocated
	// internally, so hitting this means the registry invariant is broken and
	// the condition is not a user error.
	ErrLoanExists = errors.New("loan registry: loan id already occupied")
	// ErrLoanIDExhausted is returned when the id counter reaches its numeric
	// ceiling. The counter never wraps; the registry is permanently unable to
	// create further loans at that point.
	ErrLoanIDExhausted = errors.New("loan registry: loan id space exhausted")
)

// Registry owns all loan records and their ownership tokens.
type Registry struct {
	logger zerolog.Logger

	// cap is the only capability accepted on mutating calls.
	cap *auth.Capability

	mu     sync.RWMutex
	lastID types.LoanID
	loans  map[types.LoanID]types.LoanInfo
	// owners is the ownership token ledger: one token per live loan, bound to
	// the borrower. Record and token are created and destroyed together.
	owners map[types.LoanID]types.AccountID
}

// New creates an empty registry whose mutating operations accept only the
// given capability.
func New(cap *auth.Capability) *Registry {
	return &Registry{
		logger: logger.GetForComponent("loan_registry"),
		cap:    cap,
		loans:  make(map[types.LoanID]types.LoanInfo),
		owners: make(map[types.LoanID]types.AccountID),
	}
}

func (r *Registry) authorize(cap *auth.Capability) error {
	if cap == nil || cap != r.cap {
		return ErrUnauthorized
	}
	return nil
}

// CreateLoan allocates the next id, stores the record and mints the ownership
// token to the borrower. The id field of the supplied info is overwritten;
// callers never choose ids.
func (r *Registry) CreateLoan(cap *auth.Capability, info types.LoanInfo) (types.LoanID, error) {
	if err := r.authorize(cap); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastID == types.LoanID(math.MaxUint64) {
		return 0, ErrLoanIDExhausted
	}
	id := r.lastID + 1
	if _, occupied := r.loans[id]; occupied {
		return 0, ErrLoanExists
	}
	r.lastID = id

	info.ID = id
	r.loans[id] = info.Clone()
	r.owners[id] = info.Borrower

	r.logger.Info().
		Uint64("loanID", uint64(id)).
		Str("borrower", string(info.Borrower)).
		Str("borrowToken", string(info.BorrowToken)).
		Str("borrowAmount", info.BorrowAmount.String()).
		Msg("Loan created")
	return id, nil
}

// DeleteLoan removes the record and burns the ownership token from the
// caller. It fails when the record does not exist or the caller does not own
// the token.
func (r *Registry) DeleteLoan(cap *auth.Capability, caller types.AccountID, id types.LoanID) error {
	if err := r.authorize(cap); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[id]; !ok {
		return ErrLoanNotFound
	}
	if r.owners[id] != caller {
		return ErrNotLoanOwner
	}
	delete(r.loans, id)
	delete(r.owners, id)

	r.logger.Info().Uint64("loanID", uint64(id)).Str("caller", string(caller)).Msg("Loan deleted")
	return nil
}

// UpdateLoan overwrites the three mutable fields of an existing record,
// leaving borrower, tokens and the liquidation flag untouched.
func (r *Registry) UpdateLoan(cap *auth.Capability, id types.LoanID, borrowAmount, collateralAmount sdkmath.Int, timestamp int64) error {
	if err := r.authorize(cap); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.loans[id]
	if !ok {
		return ErrLoanNotFound
	}
	info.BorrowAmount = borrowAmount
	info.CollateralAmount = collateralAmount
	info.Timestamp = timestamp
	r.loans[id] = info.Clone()

	r.logger.Debug().
		Uint64("loanID", uint64(id)).
		Str("borrowAmount", borrowAmount.String()).
		Str("collateralAmount", collateralAmount.String()).
		Msg("Loan updated")
	return nil
}

// LiquidateLoan marks an existing record as liquidated. The record and the
// ownership token persist until the borrower clears them via repay.
func (r *Registry) LiquidateLoan(cap *auth.Capability, id types.LoanID) error {
	if err := r.authorize(cap); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.loans[id]
	if !ok {
		return ErrLoanNotFound
	}
	info.AlreadyLiquidated = true
	r.loans[id] = info

	r.logger.Info().Uint64("loanID", uint64(id)).Msg("Loan marked liquidated")
	return nil
}

// GetLoanInfo returns a copy of the record for the given id.
func (r *Registry) GetLoanInfo(id types.LoanID) (types.LoanInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.loans[id]
	if !ok {
		return types.LoanInfo{}, ErrLoanNotFound
	}
	return info.Clone(), nil
}

// OwnerOf returns the account holding the ownership token for the given loan.
func (r *Registry) OwnerOf(id types.LoanID) (types.AccountID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[id]
	if !ok {
		return "", ErrLoanNotFound
	}
	return owner, nil
}

// LastLoanID returns the most recently allocated id, zero before any loan.
func (r *Registry) LastLoanID() types.LoanID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastID
}

// LoanIDs returns the ids of all live records in ascending order.
func (r *Registry) LoanIDs() []types.LoanID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.LoanID, 0, len(r.loans))
	for id := range r.loans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
