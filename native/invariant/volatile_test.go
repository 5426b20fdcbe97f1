package invariant

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"unitvault/fixedpoint"
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixedpoint.WAD)
}

func volatileState(balances, weights []int64) State {
	s := State{
		OneMinusAmp: new(big.Int).Set(fixedpoint.WAD),
		TotalShares: wad(1_000_000),
		UnitTracker: new(big.Int),
	}
	for i := range balances {
		s.Balances = append(s.Balances, wad(balances[i]))
		s.Weights = append(s.Weights, big.NewInt(weights[i]))
	}
	return s
}

func TestVolatileEqualWeightSwapScenario(t *testing.T) {
	e := ForVariant(Volatile)
	s := volatileState([]int64{1000, 1000}, []int64{1, 1})

	out, err := e.QuoteLocalSwap(s, 0, 1, wad(100))
	require.NoError(t, err)

	// out = 1000*100/1100 = 90.9090...
	lower := new(big.Int).Div(new(big.Int).Mul(wad(1000), big.NewInt(909)), big.NewInt(1000))
	require.True(t, out.Cmp(lower) > 0, "out=%s below 90.9", out)
	require.True(t, out.Cmp(wad(100)) < 0, "out=%s not below input", out)
}

func TestVolatileCompositionMatchesShortcut(t *testing.T) {
	e := ForVariant(Volatile)
	s := volatileState([]int64{1000, 1000}, []int64{1, 1})

	shortcut, err := e.QuoteLocalSwap(s, 0, 1, wad(100))
	require.NoError(t, err)

	u, err := e.AssetToUnits(s, 0, wad(100))
	require.NoError(t, err)
	composed, err := e.UnitsToAsset(s, 1, u)
	require.NoError(t, err)

	diff := new(big.Int).Sub(shortcut, composed)
	diff.Abs(diff)
	bound := new(big.Int).Quo(shortcut, big.NewInt(1_000_000_000))
	require.True(t, diff.Cmp(bound) <= 0, "shortcut %s vs composed %s", shortcut, composed)
	// Two-step rounding may only lose against the closed form.
	require.True(t, composed.Cmp(shortcut) <= 0)
}

func TestVolatileInvariantConservedByFeeFreeSwap(t *testing.T) {
	e := ForVariant(Volatile)
	s := volatileState([]int64{1000, 1000}, []int64{1, 1})

	in := wad(100)
	out, err := e.QuoteLocalSwap(s, 0, 1, in)
	require.NoError(t, err)

	before := new(big.Int).Mul(s.Balances[0], s.Balances[1])
	a := new(big.Int).Add(s.Balances[0], in)
	b := new(big.Int).Sub(s.Balances[1], out)
	after := new(big.Int).Mul(a, b)

	require.True(t, after.Cmp(before) >= 0, "invariant decreased: %s -> %s", before, after)
	gain := new(big.Int).Sub(after, before)
	bound := new(big.Int).Quo(before, big.NewInt(1_000_000_000))
	require.True(t, gain.Cmp(bound) <= 0, "invariant gained too much: %s", gain)
}

func TestVolatileRoundTripNeverGains(t *testing.T) {
	e := ForVariant(Volatile)

	for _, amount := range []*big.Int{big.NewInt(1), wad(1), wad(100), wad(900)} {
		s := volatileState([]int64{1000, 1000}, []int64{2, 3})

		out, err := e.QuoteLocalSwap(s, 0, 1, amount)
		require.NoError(t, err)

		s.Balances[0].Add(s.Balances[0], amount)
		s.Balances[1].Sub(s.Balances[1], out)

		back, err := e.QuoteLocalSwap(s, 1, 0, out)
		require.NoError(t, err)
		require.True(t, back.Cmp(amount) <= 0, "round trip of %s returned %s", amount, back)
	}
}

func TestVolatileRejectsEmptyBalance(t *testing.T) {
	e := ForVariant(Volatile)
	s := volatileState([]int64{0, 1000}, []int64{1, 1})

	_, err := e.AssetToUnits(s, 0, wad(1))
	require.ErrorIs(t, err, ErrEmptyVault)

	_, err = e.AssetToUnits(s, 5, wad(1))
	require.ErrorIs(t, err, ErrBadIndex)
}

func TestVolatileLiquidityUnitsRoundTrip(t *testing.T) {
	e := ForVariant(Volatile)
	s := volatileState([]int64{1000, 1000}, []int64{1, 1})

	shares := wad(10_000) // 1% of supply
	u, err := e.SharesToUnits(s, shares)
	require.NoError(t, err)
	require.True(t, u.Sign() > 0)

	minted, err := e.UnitsToShares(s, u)
	require.NoError(t, err)
	// ln(ts/(ts-x)) then exp(U/W)-1 on the same supply overshoots x by the
	// factor ts/(ts-x), about 1.01% for a 1% move.
	diff := new(big.Int).Sub(minted, shares)
	diff.Abs(diff)
	bound := new(big.Int).Quo(shares, big.NewInt(50))
	require.True(t, diff.Cmp(bound) <= 0, "shares %s -> units -> %s", shares, minted)

	_, err = e.WithdrawToUnits(s, s.TotalShares)
	require.ErrorIs(t, err, ErrDrainsBalance)
}

func TestVolatileMaxLimitCapacity(t *testing.T) {
	e := ForVariant(Volatile)
	s := volatileState([]int64{1000, 1000}, []int64{2, 3})

	got, err := e.MaxLimitCapacity(s)
	require.NoError(t, err)
	want := new(big.Int).Mul(fixedpoint.LN2Wad, big.NewInt(5))
	require.Equal(t, want.String(), got.String())
}

func TestVolatileChargesUnitsDirectly(t *testing.T) {
	e := ForVariant(Volatile)
	s := volatileState([]int64{1000, 1000}, []int64{1, 1})

	u := wad(3)
	charge, err := e.ReceiveAssetCharge(s, 1, u, wad(2))
	require.NoError(t, err)
	require.Equal(t, u.String(), charge.String())

	charge, err = e.ReceiveLiquidityCharge(s, u, wad(2))
	require.NoError(t, err)
	require.Equal(t, u.String(), charge.String())
}
