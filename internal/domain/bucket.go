package domain

// Sub-bucket codes for the supported collection tiers. Bucket 5 is the
// agent-worked tier; 6.1 through 6.3 are vendor-only tiers.
const (
	SubBucket5  = "bucket_5"
	SubBucket61 = "bucket_6_1"
	SubBucket62 = "bucket_6_2"
	SubBucket63 = "bucket_6_3"
)

// Vendor type tags. Each sub-bucket routes to exactly one vendor type.
const (
	VendorTypeSpecial = "special"
	VendorTypeGeneral = "general"
	VendorTypeFinal   = "final"
)

// SubBucket is a named inclusive DPD range. EndDPD is nil for the
// open-ended final bucket.
type SubBucket struct {
	Code       string `json:"code" db:"code"`
	StartDPD   int    `json:"start_dpd" db:"start_dpd"`
	EndDPD     *int   `json:"end_dpd" db:"end_dpd"`
	Rank       int    `json:"rank" db:"rank"`
	VendorType string `json:"vendor_type" db:"vendor_type"`
}

// Contains reports whether dpd falls inside the bucket's inclusive range.
func (b SubBucket) Contains(dpd int) bool {
	if dpd < b.StartDPD {
		return false
	}
	return b.EndDPD == nil || dpd <= *b.EndDPD
}
