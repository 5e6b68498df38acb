package climate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCO2Saved(t *testing.T) {
	got, err := CO2Saved(1000)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, got, 1e-9)

	got, err = CO2Saved(0)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestTreesEquivalent(t *testing.T) {
	assert.InDelta(t, 2.045, TreesEquivalent(45.0), 0.001)
}

func TestWaterAndWaste(t *testing.T) {
	water, err := WaterSaved(100)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, water, 1e-9)

	waste, err := WasteReduced(100)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, waste, 1e-9)
}

func TestEquivalenceDays(t *testing.T) {
	// 411 g/mile * 13500 miles/yr / 365 / 1000 ≈ 15.2 kg/day
	assert.InDelta(t, 1.0, CarDaysEquivalent((411.0*13500.0)/365.0/1000.0), 1e-9)
	assert.InDelta(t, 1.0, HomeDaysEquivalent(4500.0/365.0), 1e-9)
}

func TestNegativeBottlesRejected(t *testing.T) {
	for _, fn := range []func(int) (float64, error){CO2Saved, WaterSaved, WasteReduced} {
		_, err := fn(-1)
		assert.ErrorIs(t, err, ErrNegativeBottles)
	}
}
