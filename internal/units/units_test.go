package units_test

import (
	"math"
	"testing"

	"github.com/jakecourtright/HayFlow/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeight(t *testing.T) {
	tests := []struct {
		name     string
		baleSize string
		expected float64
	}{
		{name: "3x3", baleSize: "3x3", expected: 1100},
		{name: "3x4", baleSize: "3x4", expected: 1200},
		{name: "4x4", baleSize: "4x4", expected: 1800},
		{name: "2-Tie", baleSize: "2-Tie", expected: 60},
		{name: "3-Tie", baleSize: "3-Tie", expected: 90},
		{name: "legacy round maps to 4x4", baleSize: "Round", expected: 1800},
		{name: "legacy small square maps to 3-Tie", baleSize: "Small Square", expected: 90},
		{name: "unknown falls back", baleSize: "5x5", expected: 1200},
		{name: "empty falls back", baleSize: "", expected: 1200},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, units.DefaultWeight(tc.baleSize))
		})
	}
}

func TestNormalizeBaleSize(t *testing.T) {
	assert.Equal(t, "3x4", units.NormalizeBaleSize("3x4x8"))
	assert.Equal(t, "3x3", units.NormalizeBaleSize("3x3x8"))
	assert.Equal(t, "4x4", units.NormalizeBaleSize("Round"))
	assert.Equal(t, "3-Tie", units.NormalizeBaleSize(" Small Square "))
	assert.Equal(t, "2-Tie", units.NormalizeBaleSize("2-Tie"))
	assert.Equal(t, "Custom", units.NormalizeBaleSize("Custom"))
}

func TestResolveWeight(t *testing.T) {
	explicit := 950.0
	zero := 0.0

	assert.Equal(t, 950.0, units.ResolveWeight(&explicit, "3x4"))
	assert.Equal(t, 1800.0, units.ResolveWeight(&zero, "4x4"))
	assert.Equal(t, 1100.0, units.ResolveWeight(nil, "3x3"))
}

func TestTonsToBales_RoundTripWithinOneBale(t *testing.T) {
	weights := []float64{60, 90, 1100, 1200, 1800, 1333}
	for _, w := range weights {
		for b := 0.0; b <= 500; b += 7 {
			got := units.TonsToBales(units.BalesToTons(b, w), w)
			assert.LessOrEqual(t, math.Abs(got-b), 1.0, "weight %v bales %v", w, b)
			assert.Equal(t, math.Round(got), got)
		}
	}
}

func TestTonsToBales_Rounds(t *testing.T) {
	// 1 ton at 1200 lbs per bale is 1.67 bales
	assert.Equal(t, 2.0, units.TonsToBales(1, 1200))
	assert.Equal(t, 100.0, units.TonsToBales(60, 1200))
}

func TestNormalizePrice(t *testing.T) {
	t.Run("ton is identity", func(t *testing.T) {
		for _, w := range []float64{60, 1200, 1800} {
			assert.Equal(t, 42.5, units.NormalizePrice(42.5, units.PriceUnitTon, w))
		}
	})

	t.Run("bale price converts to per ton", func(t *testing.T) {
		got := units.NormalizePrice(50, units.PriceUnitBale, 1200)
		assert.InDelta(t, 83.3333, got, 0.0001)
	})

	t.Run("round trip back to per bale", func(t *testing.T) {
		for _, p := range []float64{0, 1, 50, 87.25, 1000} {
			for _, w := range []float64{60, 90, 1100, 1200, 1800} {
				perTon := units.NormalizePrice(p, units.PriceUnitBale, w)
				assert.InDelta(t, p, units.PricePerTonToPerBale(perTon, w), 1e-9)
			}
		}
	})
}

func TestToBales(t *testing.T) {
	assert.Equal(t, 40.0, units.ToBales(40, units.AmountUnitBales, 1200))
	assert.Equal(t, 50.0, units.ToBales(30, units.AmountUnitTons, 1200))
}

func TestParseUnits(t *testing.T) {
	u, err := units.ParseAmountUnit("")
	require.NoError(t, err)
	assert.Equal(t, units.AmountUnitBales, u)

	u, err = units.ParseAmountUnit("Tons")
	require.NoError(t, err)
	assert.Equal(t, units.AmountUnitTons, u)

	_, err = units.ParseAmountUnit("kg")
	assert.Error(t, err)

	p, err := units.ParsePriceUnit("", units.PriceUnitBale)
	require.NoError(t, err)
	assert.Equal(t, units.PriceUnitBale, p)

	p, err = units.ParsePriceUnit("ton", units.PriceUnitBale)
	require.NoError(t, err)
	assert.Equal(t, units.PriceUnitTon, p)

	_, err = units.ParsePriceUnit("pallet", units.PriceUnitTon)
	assert.Error(t, err)
}

func TestFormatDualUnits(t *testing.T) {
	assert.Equal(t, "1,250 bales (750.00 tons)", units.FormatDualUnits(1250, 1200))
	assert.Equal(t, "10 bales (0.30 tons)", units.FormatDualUnits(10, 60))
	assert.Equal(t, "1,000,000 bales (600,000.00 tons)", units.FormatDualUnits(1000000, 1200))
	assert.Equal(t, "-2,000 bales (-1,200.00 tons)", units.FormatDualUnits(-2000, 1200))
}
