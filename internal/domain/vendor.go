package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// VendorRatioConfig describes one vendor's share of a distribution batch.
// Ratios across active vendors of the same type must sum to at most 1.
type VendorRatioConfig struct {
	ID         uuid.UUID `json:"id" db:"id" validate:"required"`
	VendorID   uuid.UUID `json:"vendor_id" db:"vendor_id" validate:"required"`
	VendorType string    `json:"vendor_type" db:"vendor_type" validate:"required,oneof=special general final"`
	Ratio      float64   `json:"ratio" db:"ratio" validate:"gte=0,lte=1"`
	IsActive   bool      `json:"is_active" db:"is_active"`
}

// ValidateRatioConfigs checks each config's fields and that active ratios
// per vendor type do not exceed 1 in total.
func ValidateRatioConfigs(v *validator.Validate, configs []VendorRatioConfig) error {
	sums := make(map[string]float64)
	for i := range configs {
		if err := v.Struct(&configs[i]); err != nil {
			return fmt.Errorf("vendor ratio config %s: %w", configs[i].ID, err)
		}
		if configs[i].IsActive {
			sums[configs[i].VendorType] += configs[i].Ratio
		}
	}
	for vendorType, sum := range sums {
		// Small epsilon tolerates float accumulation on configs that sum
		// to exactly 1.
		if sum > 1.0000001 {
			return fmt.Errorf("active ratios for vendor type %s sum to %.4f, exceeding 1", vendorType, sum)
		}
	}
	return nil
}
