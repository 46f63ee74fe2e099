/*

Authorization primitives shared by the protocol components: opaque capability
tokens gating privileged mutation, and the admin role registry consulted by the
pool manager before state-changing admin operations.

*/

package auth

import (
	"sync"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

// Capability is an opaque authorization token. A component that should be the
// only mutator of another component receives the capability at construction
// time and presents it on every privileged call. Capabilities are compared by
// identity, so holding a pointer to the same instance is the only way to pass
// the check.
type Capability struct {
	_ [0]func() // prevent comparison by value and accidental copying
	_ byte      // nonzero size, so distinct allocations get distinct addresses
}

// NewCapability mints a fresh capability token.
func NewCapability() *Capability {
	return &Capability{}
}

// Roles tracks which accounts hold the admin role. Admin gating protects the
// asset/collateral allow-listing and conversion rate configuration.
type Roles struct {
	mu     sync.RWMutex
	admins map[types.AccountID]struct{}
}

// NewRoles creates a role registry with the given initial admin accounts.
func NewRoles(admins ...types.AccountID) *Roles {
	r := &Roles{admins: make(map[types.AccountID]struct{}, len(admins))}
	for _, a := range admins {
		r.admins[a] = struct{}{}
	}
	return r
}

// GrantAdmin adds an account to the admin set.
func (r *Roles) GrantAdmin(account types.AccountID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[account] = struct{}{}
}

// RevokeAdmin removes an account from the admin set.
func (r *Roles) RevokeAdmin(account types.AccountID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.admins, account)
}

// IsAdmin reports whether the account holds the admin role.
func (r *Roles) IsAdmin(account types.AccountID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[account]
	return ok
}
