package oracle

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
)

func TestStaticRates(t *testing.T) {
	s := NewStatic()

	eth := types.AssetID("eth")
	usd := types.AssetID("usd")

	// Unset pairs value at zero.
	require.True(t, s.Rate(eth, usd).IsZero())

	s.SetRate(eth, usd, sdkmath.LegacyNewDec(2))
	require.Equal(t, sdkmath.LegacyNewDec(2), s.Rate(eth, usd))

	// Rates are directional; the inverse stays unset.
	require.True(t, s.Rate(usd, eth).IsZero())

	// Overwrites replace the prior value.
	rate, err := sdkmath.LegacyNewDecFromStr("0.7")
	require.NoError(t, err)
	s.SetRate(eth, usd, rate)
	require.Equal(t, rate, s.Rate(eth, usd))
}

func TestFractionalRateTruncation(t *testing.T) {
	s := NewStatic()
	rate, err := sdkmath.LegacyNewDecFromStr("0.7")
	require.NoError(t, err)
	s.SetRate("eth", "usd", rate)

	// 0.7 * 100 = 70 exactly; 0.7 * 15 = 10.5 truncates to 10.
	require.Equal(t, sdkmath.NewInt(70), s.Rate("eth", "usd").MulInt64(100).TruncateInt())
	require.Equal(t, sdkmath.NewInt(10), s.Rate("eth", "usd").MulInt64(15).TruncateInt())
}
