package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/repository"
)

// EligibilityFilter drops accounts that must never be auto-reassigned:
// active promise-to-pay, pending waiver, or an owning loan/account that
// already has an active vendor engagement. Read-only.
type EligibilityFilter struct {
	assignments repository.AssignmentRepository
	log         *zap.Logger
}

func NewEligibilityFilter(assignments repository.AssignmentRepository, log *zap.Logger) *EligibilityFilter {
	return &EligibilityFilter{
		assignments: assignments,
		log:         log,
	}
}

// Filter returns the subsequence of accounts that may be auto-processed
// for the given sub-bucket, preserving input order.
func (f *EligibilityFilter) Filter(ctx context.Context, b domain.SubBucket, accounts []*domain.OverdueAccount) []*domain.OverdueAccount {
	eligible := make([]*domain.OverdueAccount, 0, len(accounts))

	for _, account := range accounts {
		if account.HasActivePTP {
			f.log.Debug("excluded: active promise-to-pay",
				zap.String("account_id", account.ID.String()),
				zap.String("sub_bucket", b.Code),
			)
			continue
		}

		if account.HasPendingWaiver {
			f.log.Debug("excluded: pending waiver",
				zap.String("account_id", account.ID.String()),
				zap.String("sub_bucket", b.Code),
			)
			continue
		}

		// Exclusivity is checked at the owning loan/account, not the
		// payment: a sibling installment already at a vendor blocks this
		// one too.
		engaged, err := f.assignments.ActiveVendorAssignmentForOwner(ctx, account.OwnerID())
		if err != nil {
			f.log.Warn("excluded: vendor engagement check failed",
				zap.String("account_id", account.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if engaged != nil {
			f.log.Debug("excluded: owner already has an active vendor engagement",
				zap.String("account_id", account.ID.String()),
				zap.String("vendor_assignment_id", engaged.ID.String()),
			)
			continue
		}

		eligible = append(eligible, account)
	}

	return eligible
}
