package service

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adisetya/collection-engine/internal/domain"
	customError "github.com/adisetya/collection-engine/pkg/errors"
)

func makeBatch(n int) []uuid.UUID {
	batch := make([]uuid.UUID, n)
	for i := range batch {
		batch[i] = uuid.New()
	}
	return batch
}

func ratioConfig(vendorType string, ratio float64, active bool) domain.VendorRatioConfig {
	return domain.VendorRatioConfig{
		ID:         uuid.New(),
		VendorID:   uuid.New(),
		VendorType: vendorType,
		Ratio:      ratio,
		IsActive:   active,
	}
}

// Ten accounts over 0.34/0.33/0.33: the 0.34 vendor's discarded fraction
// beats both others, so it rounds up and the rest round down.
func TestApportionThreeVendorSplit(t *testing.T) {
	batch := makeBatch(10)
	configs := []domain.VendorRatioConfig{
		ratioConfig(domain.VendorTypeGeneral, 0.34, true),
		ratioConfig(domain.VendorTypeGeneral, 0.33, true),
		ratioConfig(domain.VendorTypeGeneral, 0.33, true),
	}

	allocation, err := Apportion(batch, configs)
	require.NoError(t, err)
	require.Len(t, allocation.Shares, 3)

	assert.Len(t, allocation.Shares[0].AccountIDs, 4)
	assert.Len(t, allocation.Shares[1].AccountIDs, 3)
	assert.Len(t, allocation.Shares[2].AccountIDs, 3)
	assert.Empty(t, allocation.Leftover)

	// Vendors draw one at a time from the tail of the batch.
	assert.Equal(t, []uuid.UUID{batch[9], batch[8], batch[7], batch[6]}, allocation.Shares[0].AccountIDs)
	assert.Equal(t, []uuid.UUID{batch[5], batch[4], batch[3]}, allocation.Shares[1].AccountIDs)
	assert.Equal(t, []uuid.UUID{batch[2], batch[1], batch[0]}, allocation.Shares[2].AccountIDs)
}

// Equal discarded fractions never round up, so the undistributed account
// stays leftover for the next cycle.
func TestApportionEqualFractionsAllFloor(t *testing.T) {
	batch := makeBatch(5)
	configs := []domain.VendorRatioConfig{
		ratioConfig(domain.VendorTypeGeneral, 0.5, true),
		ratioConfig(domain.VendorTypeGeneral, 0.5, true),
	}

	allocation, err := Apportion(batch, configs)
	require.NoError(t, err)
	require.Len(t, allocation.Shares, 2)

	assert.Len(t, allocation.Shares[0].AccountIDs, 2)
	assert.Len(t, allocation.Shares[1].AccountIDs, 2)
	assert.Equal(t, []uuid.UUID{batch[0]}, allocation.Leftover)
}

func TestApportionWholeShares(t *testing.T) {
	batch := makeBatch(10)
	configs := []domain.VendorRatioConfig{
		ratioConfig(domain.VendorTypeSpecial, 0.4, true),
		ratioConfig(domain.VendorTypeSpecial, 0.6, true),
	}

	allocation, err := Apportion(batch, configs)
	require.NoError(t, err)

	assert.Len(t, allocation.Shares[0].AccountIDs, 4)
	assert.Len(t, allocation.Shares[1].AccountIDs, 6)
	assert.Empty(t, allocation.Leftover)
}

// A share that floors to zero is promoted to ceil so a configured active
// vendor is never starved outright.
func TestApportionZeroSharePromotion(t *testing.T) {
	batch := makeBatch(10)
	configs := []domain.VendorRatioConfig{
		ratioConfig(domain.VendorTypeGeneral, 0.05, true),
		ratioConfig(domain.VendorTypeGeneral, 0.95, true),
	}

	allocation, err := Apportion(batch, configs)
	require.NoError(t, err)

	assert.Len(t, allocation.Shares[0].AccountIDs, 1)
	assert.Len(t, allocation.Shares[1].AccountIDs, 9)
	assert.Empty(t, allocation.Leftover)
}

func TestApportionInactiveVendorsSkipped(t *testing.T) {
	batch := makeBatch(6)
	active := ratioConfig(domain.VendorTypeFinal, 1.0, true)
	inactive := ratioConfig(domain.VendorTypeFinal, 0.5, false)

	allocation, err := Apportion(batch, []domain.VendorRatioConfig{inactive, active})
	require.NoError(t, err)
	require.Len(t, allocation.Shares, 1, "inactive vendors hold no share at all")

	assert.Equal(t, active.VendorID, allocation.Shares[0].Config.VendorID)
	assert.Len(t, allocation.Shares[0].AccountIDs, 6)
	assert.Empty(t, allocation.Leftover)
}

func TestApportionNoActiveConfig(t *testing.T) {
	batch := makeBatch(3)
	configs := []domain.VendorRatioConfig{
		ratioConfig(domain.VendorTypeGeneral, 0.5, false),
	}

	allocation, err := Apportion(batch, configs)
	require.Error(t, err)
	assert.ErrorIs(t, err, customError.ErrNoVendorConfig)
	assert.Equal(t, batch, allocation.Leftover, "the whole batch must remain recoverable")
	assert.Empty(t, allocation.Shares)
}

func TestApportionEmptyBatch(t *testing.T) {
	configs := []domain.VendorRatioConfig{
		ratioConfig(domain.VendorTypeGeneral, 1.0, true),
	}

	allocation, err := Apportion(nil, configs)
	require.NoError(t, err)
	require.Len(t, allocation.Shares, 1)
	assert.Empty(t, allocation.Shares[0].AccountIDs)
	assert.Empty(t, allocation.Leftover)
}

// Conservation holds structurally for any ratio set: every account lands
// in exactly one share or in the leftover, never twice and never dropped.
func TestApportionConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(60)
		batch := makeBatch(n)

		vendors := 1 + rng.Intn(5)
		configs := make([]domain.VendorRatioConfig, vendors)
		for i := range configs {
			configs[i] = ratioConfig(domain.VendorTypeGeneral, rng.Float64(), true)
		}

		allocation, err := Apportion(batch, configs)
		require.NoError(t, err)

		seen := make(map[uuid.UUID]int, n)
		total := 0
		for _, share := range allocation.Shares {
			for _, id := range share.AccountIDs {
				seen[id]++
				total++
			}
		}
		for _, id := range allocation.Leftover {
			seen[id]++
			total++
		}

		require.Equalf(t, n, total, "iteration %d: assigned plus leftover must equal batch size", iter)
		for id, count := range seen {
			require.Equalf(t, 1, count, "iteration %d: account %s placed %d times", iter, id, count)
		}
	}
}
