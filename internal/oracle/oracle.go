/*

Conversion rate source. The protocol only consumes Rate lookups; where the
rates come from is outside the protocol. Static is the in-process
implementation fed by the admin surface of the pool manager.

*/

package oracle

import (
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

// Source resolves the price of one unit of a source asset expressed in a
// destination asset. Unknown pairs resolve to zero.
type Source interface {
	Rate(from, to types.AssetID) sdkmath.LegacyDec
}

type pairKey struct {
	from types.AssetID
	to   types.AssetID
}

// Static is a directional rate table. Rates are keyed by ordered pair, so
// setting from->to says nothing about to->from.
type Static struct {
	mu    sync.RWMutex
	rates map[pairKey]sdkmath.LegacyDec
}

// NewStatic creates an empty rate table.
func NewStatic() *Static {
	return &Static{rates: make(map[pairKey]sdkmath.LegacyDec)}
}

// SetRate stores the rate for the ordered pair, replacing any previous value.
func (s *Static) SetRate(from, to types.AssetID, rate sdkmath.LegacyDec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[pairKey{from: from, to: to}] = rate
}

// Rate returns the stored rate for the ordered pair, zero when unset.
func (s *Static) Rate(from, to types.AssetID) sdkmath.LegacyDec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rates[pairKey{from: from, to: to}]; ok {
		return rate
	}
	return sdkmath.LegacyZeroDec()
}
