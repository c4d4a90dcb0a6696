package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/adisetya/collection-engine/internal/domain"
)

type vendorConfigRepository struct {
	db *sqlx.DB
}

func NewVendorConfigRepository(db *sqlx.DB) VendorConfigRepository {
	return &vendorConfigRepository{db: db}
}

func (r *vendorConfigRepository) ActiveByType(ctx context.Context, vendorType string) ([]domain.VendorRatioConfig, error) {
	query := `
		SELECT id, vendor_id, vendor_type, ratio, is_active
		FROM vendor_ratio_configs
		WHERE vendor_type = $1 AND is_active = true
		ORDER BY vendor_id ASC
	`

	var configs []domain.VendorRatioConfig
	err := r.db.SelectContext(ctx, &configs, query, vendorType)
	if err != nil {
		return nil, err
	}

	return configs, nil
}
