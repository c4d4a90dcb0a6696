package bucket

import (
	"sort"

	"github.com/adisetya/collection-engine/internal/config"
	"github.com/adisetya/collection-engine/internal/domain"
)

// EngineFloorDPD is the lowest DPD the escalation engine handles. Accounts
// younger than this stay with the earlier dunning tiers outside this
// system.
const EngineFloorDPD = 91

// Catalog is the static lookup for sub-bucket boundaries, agent capacity
// ceilings and vendor stay windows. Pure lookups, no side effects.
type Catalog struct {
	buckets  []domain.SubBucket
	ceilings map[string]int
	stayDays map[string]int
}

func intPtr(v int) *int { return &v }

// NewCatalog builds the catalog with the supported tiers. Ceilings and
// stay windows come from config; boundaries are fixed.
func NewCatalog(cfg *config.Config) *Catalog {
	buckets := []domain.SubBucket{
		{Code: domain.SubBucket5, StartDPD: 91, EndDPD: intPtr(180), Rank: 1, VendorType: domain.VendorTypeSpecial},
		{Code: domain.SubBucket61, StartDPD: 181, EndDPD: intPtr(270), Rank: 2, VendorType: domain.VendorTypeGeneral},
		{Code: domain.SubBucket62, StartDPD: 271, EndDPD: intPtr(360), Rank: 3, VendorType: domain.VendorTypeGeneral},
		{Code: domain.SubBucket63, StartDPD: 361, EndDPD: nil, Rank: 4, VendorType: domain.VendorTypeFinal},
	}

	// Only bucket 5 is agent-worked; the 6.x tiers are vendor-only.
	ceilings := map[string]int{
		domain.SubBucket5: cfg.Collection.AgentCeilingB5,
	}

	stayDays := map[string]int{
		domain.SubBucket5:  cfg.Collection.VendorStayDaysB5,
		domain.SubBucket61: cfg.Collection.VendorStayDaysB61,
		domain.SubBucket62: cfg.Collection.VendorStayDaysB62,
		domain.SubBucket63: cfg.Collection.VendorStayDaysB63,
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Rank < buckets[j].Rank })

	return &Catalog{
		buckets:  buckets,
		ceilings: ceilings,
		stayDays: stayDays,
	}
}

// BucketFor returns the sub-bucket covering the given DPD. The boolean is
// false below the engine floor.
func (c *Catalog) BucketFor(dpd int) (domain.SubBucket, bool) {
	for _, b := range c.buckets {
		if b.Contains(dpd) {
			return b, true
		}
	}
	return domain.SubBucket{}, false
}

// ByCode looks up a sub-bucket by its code.
func (c *Catalog) ByCode(code string) (domain.SubBucket, bool) {
	for _, b := range c.buckets {
		if b.Code == code {
			return b, true
		}
	}
	return domain.SubBucket{}, false
}

// Next returns the bucket that follows the given one in escalation order.
// The boolean is false for the final bucket.
func (c *Catalog) Next(code string) (domain.SubBucket, bool) {
	current, ok := c.ByCode(code)
	if !ok {
		return domain.SubBucket{}, false
	}
	for _, b := range c.buckets {
		if b.Rank == current.Rank+1 {
			return b, true
		}
	}
	return domain.SubBucket{}, false
}

// First returns the entry bucket of the escalation pipeline.
func (c *Catalog) First() domain.SubBucket {
	return c.buckets[0]
}

// Rank returns the ordinal rank of a sub-bucket code, or zero if unknown.
func (c *Catalog) Rank(code string) int {
	b, ok := c.ByCode(code)
	if !ok {
		return 0
	}
	return b.Rank
}

// CapacityCeiling returns the per-agent active assignment ceiling for a
// sub-bucket. Vendor-only tiers have no agent capacity and return zero.
func (c *Catalog) CapacityCeiling(code string) int {
	return c.ceilings[code]
}

// VendorStayWindow returns the days a vendor may retain an account in the
// given sub-bucket before forced review.
func (c *Catalog) VendorStayWindow(code string) int {
	return c.stayDays[code]
}

// Buckets returns all sub-buckets in escalation order.
func (c *Catalog) Buckets() []domain.SubBucket {
	out := make([]domain.SubBucket, len(c.buckets))
	copy(out, c.buckets)
	return out
}
