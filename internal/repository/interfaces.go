package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adisetya/collection-engine/internal/domain"
)

// AccountRepository defines read access to overdue accounts. The engine
// never sees SQL; these are black-box queries.
type AccountRepository interface {
	// GetByID retrieves an overdue account by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OverdueAccount, error)

	// OldestOverdueCandidates returns unpaid accounts inside the bucket's
	// DPD range, oldest due date first, excluding the given ids
	OldestOverdueCandidates(ctx context.Context, bucket domain.SubBucket, excludeIDs []uuid.UUID, now time.Time) ([]*domain.OverdueAccount, error)

	// NextUnpaidSibling returns the next unpaid installment on the same
	// loan, by installment sequence. Returns nil when there is none or the
	// account is not a loan-based product.
	NextUnpaidSibling(ctx context.Context, account *domain.OverdueAccount) (*domain.OverdueAccount, error)
}

// AssignmentRepository defines access to agent/vendor assignments and the
// append-only history. Active* lookups return nil (no error) when no
// active record exists.
type AssignmentRepository interface {
	ActiveAgentAssignment(ctx context.Context, accountID uuid.UUID) (*domain.AgentAssignment, error)
	ActiveVendorAssignment(ctx context.Context, accountID uuid.UUID) (*domain.VendorAssignment, error)

	// ActiveVendorAssignmentForOwner finds an active vendor assignment on
	// any payment of the owning loan/account. This is the loan/account
	// level exclusivity check.
	ActiveVendorAssignmentForOwner(ctx context.Context, ownerID uuid.UUID) (*domain.VendorAssignment, error)

	ActiveAgentAssignmentsByBucket(ctx context.Context, subBucket string) ([]*domain.AgentAssignment, error)
	ActiveVendorAssignmentsByBucket(ctx context.Context, subBucket string) ([]*domain.VendorAssignment, error)

	// ExpiredVendorAssignments lists active vendor assignments in the
	// bucket assigned before the cutoff.
	ExpiredVendorAssignments(ctx context.Context, subBucket string, cutoff time.Time) ([]*domain.VendorAssignment, error)

	// ExpiredAgentAssignments lists active agent assignments assigned
	// before the cutoff, across all buckets.
	ExpiredAgentAssignments(ctx context.Context, cutoff time.Time) ([]*domain.AgentAssignment, error)

	// WithinTx runs fn inside a database transaction. Every mutation for
	// one account, including its history entry, goes through one call.
	WithinTx(ctx context.Context, fn func(tx AssignmentTx) error) error
}

// AssignmentTx is the mutation surface available inside a unit of work.
type AssignmentTx interface {
	CreateAgentAssignment(ctx context.Context, assignment *domain.AgentAssignment) error
	CreateVendorAssignment(ctx context.Context, assignment *domain.VendorAssignment) error
	DeactivateAgentAssignment(ctx context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error
	DeactivateVendorAssignment(ctx context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error
	AppendHistory(ctx context.Context, entry *domain.AssignmentHistoryEntry) error
}

// VendorConfigRepository defines access to vendor ratio configurations.
type VendorConfigRepository interface {
	// ActiveByType returns active ratio configs for a vendor type,
	// ordered by vendor id for a stable distribution order
	ActiveByType(ctx context.Context, vendorType string) ([]domain.VendorRatioConfig, error)
}
