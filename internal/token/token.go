/*

In-process fungible ledger primitive. One Token instance corresponds to one
fungible asset: it keeps balances, allowances and total supply, and exposes
the transfer surface the pool manager consumes. ShareToken extends it with
mint/burn gated on a capability held by the pool manager, which is how claim
tokens are owned.

*/

package token

import (
	"errors"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/auth"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrNotOwner              = errors.New("token: caller does not hold the mint/burn capability")
	ErrInvalidAmount         = errors.New("token: amount must be non-negative")
)

// Fungible is the asset surface the pool manager depends on. All amounts are
// non-negative integers; failures are returned, never panicked.
type Fungible interface {
	BalanceOf(account types.AccountID) sdkmath.Int
	Allowance(owner, spender types.AccountID) sdkmath.Int
	TotalSupply() sdkmath.Int
	Approve(owner, spender types.AccountID, amount sdkmath.Int) error
	Transfer(from, to types.AccountID, amount sdkmath.Int) error
	TransferFrom(spender, from, to types.AccountID, amount sdkmath.Int) error
}

// Shares is the claim token surface: a fungible ledger whose supply is
// adjusted only by the capability holder.
type Shares interface {
	Fungible
	Mint(cap *auth.Capability, to types.AccountID, amount sdkmath.Int) error
	Burn(cap *auth.Capability, from types.AccountID, amount sdkmath.Int) error
}

// Token is the in-memory ledger backing one fungible asset.
type Token struct {
	name   string
	symbol string

	mu         sync.RWMutex
	balances   map[types.AccountID]sdkmath.Int
	allowances map[types.AccountID]map[types.AccountID]sdkmath.Int
	supply     sdkmath.Int

	// owner, when set, is the only capability allowed to mint or burn.
	owner *auth.Capability
}

// New creates an unowned token. Mint and burn accept any capability, which is
// what plain deposit assets use so tests and demo wiring can fund accounts.
func New(name, symbol string) *Token {
	return &Token{
		name:       name,
		symbol:     symbol,
		balances:   make(map[types.AccountID]sdkmath.Int),
		allowances: make(map[types.AccountID]map[types.AccountID]sdkmath.Int),
		supply:     sdkmath.ZeroInt(),
	}
}

// NewShareToken creates a token whose mint/burn is gated on the given
// capability. The pool manager creates one per lendable asset.
func NewShareToken(name, symbol string, owner *auth.Capability) *Token {
	t := New(name, symbol)
	t.owner = owner
	return t
}

// Name returns the token name set at construction.
func (t *Token) Name() string { return t.name }

// Symbol returns the token symbol set at construction.
func (t *Token) Symbol() string { return t.symbol }

// BalanceOf returns the account balance, zero when the account is unknown.
func (t *Token) BalanceOf(account types.AccountID) sdkmath.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if b, ok := t.balances[account]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

// Allowance returns how much spender may move out of owner's balance.
func (t *Token) Allowance(owner, spender types.AccountID) sdkmath.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if spenders, ok := t.allowances[owner]; ok {
		if a, ok := spenders[spender]; ok {
			return a
		}
	}
	return sdkmath.ZeroInt()
}

// TotalSupply returns the aggregate minted supply.
func (t *Token) TotalSupply() sdkmath.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supply
}

// Approve sets the allowance of spender over owner's balance.
func (t *Token) Approve(owner, spender types.AccountID, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[types.AccountID]sdkmath.Int)
		t.allowances[owner] = spenders
	}
	spenders[spender] = amount
	return nil
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to types.AccountID, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom moves amount from one account to another, consuming the
// spender's allowance over the source account.
func (t *Token) TransferFrom(spender, from, to types.AccountID, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	allowed := sdkmath.ZeroInt()
	if spenders, ok := t.allowances[from]; ok {
		if a, ok := spenders[spender]; ok {
			allowed = a
		}
	}
	if allowed.LT(amount) {
		return ErrInsufficientAllowance
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	t.allowances[from][spender] = allowed.Sub(amount)
	return nil
}

// Mint credits an account and grows total supply. On owned tokens the caller
// must present the owner capability.
func (t *Token) Mint(cap *auth.Capability, to types.AccountID, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owner != nil && cap != t.owner {
		return ErrNotOwner
	}
	t.balances[to] = t.balanceLocked(to).Add(amount)
	t.supply = t.supply.Add(amount)
	return nil
}

// Burn debits an account and shrinks total supply. Fails when the account
// balance is insufficient or, on owned tokens, when the capability is wrong.
func (t *Token) Burn(cap *auth.Capability, from types.AccountID, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owner != nil && cap != t.owner {
		return ErrNotOwner
	}
	balance := t.balanceLocked(from)
	if balance.LT(amount) {
		return ErrInsufficientBalance
	}
	t.balances[from] = balance.Sub(amount)
	t.supply = t.supply.Sub(amount)
	return nil
}

func (t *Token) balanceLocked(account types.AccountID) sdkmath.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (t *Token) move(from, to types.AccountID, amount sdkmath.Int) error {
	balance := t.balanceLocked(from)
	if balance.LT(amount) {
		return ErrInsufficientBalance
	}
	t.balances[from] = balance.Sub(amount)
	t.balances[to] = t.balanceLocked(to).Add(amount)
	return nil
}
