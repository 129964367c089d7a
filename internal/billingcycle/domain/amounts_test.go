package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAmountsQuarterly(t *testing.T) {
	amounts := ComputeAmounts(8097, CycleTypeQuarterly, 10, 18)

	assert.Equal(t, int64(8097), amounts.Base)
	assert.Equal(t, int64(810), amounts.Discount)
	assert.Equal(t, int64(7287), amounts.Final)
	assert.Equal(t, int64(1312), amounts.GST)
	assert.Equal(t, int64(8599), amounts.Total)
}

func TestComputeAmountsNonQuarterlySkipsDiscount(t *testing.T) {
	for _, cycleType := range []CycleType{CycleTypeTrial, CycleTypeAnnual, CycleTypeCustom} {
		amounts := ComputeAmounts(1000, cycleType, 10, 18)
		assert.Zero(t, amounts.Discount, "cycle type %s", cycleType)
		assert.Equal(t, int64(1000), amounts.Final)
		assert.Equal(t, int64(180), amounts.GST)
		assert.Equal(t, int64(1180), amounts.Total)
	}
}

func TestComputeAmountsRoundsHalfAwayFromZero(t *testing.T) {
	// 1885 × 10% = 188.5, rounds up.
	amounts := ComputeAmounts(1885, CycleTypeQuarterly, 10, 18)
	assert.Equal(t, int64(189), amounts.Discount)
	assert.Equal(t, int64(1696), amounts.Final)
}
