package service

import (
	"math"

	"github.com/google/uuid"

	"github.com/adisetya/collection-engine/internal/domain"
	customError "github.com/adisetya/collection-engine/pkg/errors"
)

// fracEpsilon absorbs float noise when deciding whether a raw share is a
// whole number and when comparing discarded fractions.
const fracEpsilon = 1e-9

// VendorShare is one vendor's slice of a distribution batch.
type VendorShare struct {
	Config     domain.VendorRatioConfig
	AccountIDs []uuid.UUID
}

// Allocation is the result of apportioning a batch across vendors.
// Leftover holds accounts not assigned this cycle; they are recovered on
// the next one.
type Allocation struct {
	Shares   []VendorShare
	Leftover []uuid.UUID
}

// Apportion splits a batch of account ids across the active vendors of a
// ratio config set.
//
// The rounding rule is reproduced from observed production behavior, not
// textbook largest-remainder: take floor unless this share's raw value
// exceeds some other vendor's floor-discarded portion, in which case take
// ceil. A share that rounds to zero is promoted to ceil(ratio*N) when that
// is at least one. Vendors draw their accounts from the tail of the batch,
// one at a time, so a vendor can never receive more than what remains and
// the head of the batch is what gets left over.
//
// Inactive vendors are skipped entirely and consume no inventory. Returns
// ErrNoVendorConfig when the set has no active vendors.
func Apportion(batch []uuid.UUID, configs []domain.VendorRatioConfig) (Allocation, error) {
	active := make([]domain.VendorRatioConfig, 0, len(configs))
	for _, cfg := range configs {
		if cfg.IsActive {
			active = append(active, cfg)
		}
	}
	if len(active) == 0 {
		vendorType := ""
		if len(configs) > 0 {
			vendorType = configs[0].VendorType
		}
		return Allocation{Leftover: batch}, customError.WrapNoVendorConfig(vendorType)
	}

	n := len(batch)
	raws := make([]float64, len(active))
	fracs := make([]float64, len(active))
	for i, cfg := range active {
		raws[i] = cfg.Ratio * float64(n)
		frac := raws[i] - math.Floor(raws[i])
		if frac < fracEpsilon || frac > 1-fracEpsilon {
			frac = 0
			raws[i] = math.Round(raws[i])
		}
		fracs[i] = frac
	}

	rest := make([]uuid.UUID, n)
	copy(rest, batch)

	shares := make([]VendorShare, 0, len(active))
	for i, cfg := range active {
		count := shareCount(i, raws, fracs)

		ids := make([]uuid.UUID, 0, count)
		for k := 0; k < count && len(rest) > 0; k++ {
			ids = append(ids, rest[len(rest)-1])
			rest = rest[:len(rest)-1]
		}

		shares = append(shares, VendorShare{Config: cfg, AccountIDs: ids})
	}

	return Allocation{Shares: shares, Leftover: rest}, nil
}

// shareCount applies the rounding policy for one vendor's raw share.
func shareCount(i int, raws, fracs []float64) int {
	raw := raws[i]
	if fracs[i] == 0 {
		return int(raw)
	}

	count := int(math.Floor(raw))
	for j := range raws {
		if j == i {
			continue
		}
		if fracs[i] > fracs[j]+fracEpsilon {
			count = int(math.Ceil(raw))
			break
		}
	}

	if count == 0 && math.Ceil(raw) >= 1 {
		count = int(math.Ceil(raw))
	}

	return count
}
