package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adisetya/collection-engine/internal/config"
	"github.com/adisetya/collection-engine/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Collection: config.CollectionConfig{
			AgentMaxStayDays:  30,
			AgentCeilingB5:    300,
			VendorStayDaysB5:  60,
			VendorStayDaysB61: 60,
			VendorStayDaysB62: 60,
			VendorStayDaysB63: 90,
		},
	}
}

func TestBucketForBoundaries(t *testing.T) {
	catalog := NewCatalog(testConfig())

	tests := []struct {
		name     string
		dpd      int
		wantCode string
		wantOK   bool
	}{
		{"below engine floor", 90, "", false},
		{"zero dpd", 0, "", false},
		{"bucket 5 lower edge", 91, domain.SubBucket5, true},
		{"bucket 5 upper edge", 180, domain.SubBucket5, true},
		{"bucket 6.1 lower edge", 181, domain.SubBucket61, true},
		{"bucket 6.1 upper edge", 270, domain.SubBucket61, true},
		{"bucket 6.2 lower edge", 271, domain.SubBucket62, true},
		{"bucket 6.2 upper edge", 360, domain.SubBucket62, true},
		{"bucket 6.3 lower edge", 361, domain.SubBucket63, true},
		{"bucket 6.3 open ended", 10000, domain.SubBucket63, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := catalog.BucketFor(tt.dpd)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantCode, b.Code)
			}
		})
	}
}

func TestEveryDPDMapsToExactlyOneBucket(t *testing.T) {
	catalog := NewCatalog(testConfig())
	buckets := catalog.Buckets()

	for dpd := 0; dpd <= 2000; dpd++ {
		matches := 0
		for _, b := range buckets {
			if b.Contains(dpd) {
				matches++
			}
		}
		if dpd < EngineFloorDPD {
			require.Equalf(t, 0, matches, "dpd %d below the floor must match no bucket", dpd)
		} else {
			require.Equalf(t, 1, matches, "dpd %d must match exactly one bucket", dpd)
		}
	}
}

func TestEscalationOrder(t *testing.T) {
	catalog := NewCatalog(testConfig())

	assert.Equal(t, domain.SubBucket5, catalog.First().Code)

	next, ok := catalog.Next(domain.SubBucket5)
	require.True(t, ok)
	assert.Equal(t, domain.SubBucket61, next.Code)

	next, ok = catalog.Next(domain.SubBucket61)
	require.True(t, ok)
	assert.Equal(t, domain.SubBucket62, next.Code)

	next, ok = catalog.Next(domain.SubBucket62)
	require.True(t, ok)
	assert.Equal(t, domain.SubBucket63, next.Code)

	_, ok = catalog.Next(domain.SubBucket63)
	assert.False(t, ok, "final bucket has no successor")

	_, ok = catalog.Next("bucket_7")
	assert.False(t, ok)
}

func TestCapacityAndStayWindows(t *testing.T) {
	catalog := NewCatalog(testConfig())

	assert.Equal(t, 300, catalog.CapacityCeiling(domain.SubBucket5))
	assert.Equal(t, 0, catalog.CapacityCeiling(domain.SubBucket61), "6.x tiers are vendor-only")
	assert.Equal(t, 0, catalog.CapacityCeiling(domain.SubBucket62))
	assert.Equal(t, 0, catalog.CapacityCeiling(domain.SubBucket63))

	assert.Equal(t, 60, catalog.VendorStayWindow(domain.SubBucket5))
	assert.Equal(t, 60, catalog.VendorStayWindow(domain.SubBucket61))
	assert.Equal(t, 60, catalog.VendorStayWindow(domain.SubBucket62))
	assert.Equal(t, 90, catalog.VendorStayWindow(domain.SubBucket63))
}

func TestRank(t *testing.T) {
	catalog := NewCatalog(testConfig())

	assert.Equal(t, 1, catalog.Rank(domain.SubBucket5))
	assert.Equal(t, 2, catalog.Rank(domain.SubBucket61))
	assert.Equal(t, 3, catalog.Rank(domain.SubBucket62))
	assert.Equal(t, 4, catalog.Rank(domain.SubBucket63))
	assert.Equal(t, 0, catalog.Rank("unknown"))
}

func TestVendorTypes(t *testing.T) {
	catalog := NewCatalog(testConfig())

	b5, _ := catalog.ByCode(domain.SubBucket5)
	b61, _ := catalog.ByCode(domain.SubBucket61)
	b62, _ := catalog.ByCode(domain.SubBucket62)
	b63, _ := catalog.ByCode(domain.SubBucket63)

	assert.Equal(t, domain.VendorTypeSpecial, b5.VendorType)
	assert.Equal(t, domain.VendorTypeGeneral, b61.VendorType)
	assert.Equal(t, domain.VendorTypeGeneral, b62.VendorType)
	assert.Equal(t, domain.VendorTypeFinal, b63.VendorType)
}
