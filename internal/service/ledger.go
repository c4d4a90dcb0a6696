package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/repository"
	customError "github.com/adisetya/collection-engine/pkg/errors"
)

// AssignmentLedger materializes channel transitions: it creates and
// retires assignment records and writes the audit history. Each account's
// mutation and its history entry commit in one unit of work, so a mutated
// account is never left unaudited.
type AssignmentLedger struct {
	assignments repository.AssignmentRepository
	log         *zap.Logger
	now         func() time.Time
}

func NewAssignmentLedger(assignments repository.AssignmentRepository, log *zap.Logger) *AssignmentLedger {
	return &AssignmentLedger{
		assignments: assignments,
		log:         log,
		now:         time.Now,
	}
}

// AssignToAgent creates an active agent assignment for the account.
// Returns a conflict error when one already exists; the caller skips the
// account and continues its batch. A protected account here means a
// caller bypassed the eligibility filter, which is a loud failure.
func (l *AssignmentLedger) AssignToAgent(ctx context.Context, account *domain.OverdueAccount, agentID uuid.UUID, b domain.SubBucket, reason string) (*domain.AgentAssignment, error) {
	if account.HasActivePTP || account.HasPendingWaiver {
		return nil, customError.WrapEligibilityViolation(account.ID.String())
	}

	existing, err := l.assignments.ActiveAgentAssignment(ctx, account.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if existing != nil {
		return nil, customError.WrapAssignmentConflict(account.ID.String(), domain.ChannelAgent)
	}

	supersededVendor, err := l.assignments.ActiveVendorAssignment(ctx, account.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	now := l.now()
	assignment := &domain.AgentAssignment{
		ID:              uuid.New(),
		AccountID:       account.ID,
		AgentID:         agentID,
		SubBucket:       b.Code,
		DPDAtAssignment: account.DaysPastDue(now),
		AssignTime:      now,
		IsActive:        true,
	}

	entry := l.historyEntry(account.ID, reason, now)
	entry.NewChannel = domain.ChannelAgent
	entry.NewRef = &assignment.ID

	err = l.assignments.WithinTx(ctx, func(tx repository.AssignmentTx) error {
		if supersededVendor != nil {
			entry.OldChannel = domain.ChannelVendor
			entry.OldRef = &supersededVendor.ID
			if err := tx.DeactivateVendorAssignment(ctx, supersededVendor.ID, now, false); err != nil {
				return err
			}
		}
		if err := tx.CreateAgentAssignment(ctx, assignment); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return assignment, nil
}

// AssignToVendor creates an active vendor assignment for the account,
// deactivating whatever currently holds the owner in the same unit of
// work. When the owning loan/account already has an active vendor
// engagement the call is a logged no-op, which also makes task redelivery
// idempotent: the second delivery finds the guard tripped and does
// nothing. The exception is a vendor-to-vendor move to a different
// vendor, which displaces the owner's engagement wherever it sits.
func (l *AssignmentLedger) AssignToVendor(ctx context.Context, account *domain.OverdueAccount, cfg domain.VendorRatioConfig, b domain.SubBucket, transition, reason string) (*domain.VendorAssignment, error) {
	if account.HasActivePTP || account.HasPendingWaiver {
		return nil, customError.WrapEligibilityViolation(account.ID.String())
	}

	engaged, err := l.assignments.ActiveVendorAssignmentForOwner(ctx, account.OwnerID())
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if engaged != nil {
		// A vendor-to-vendor move may supersede the existing engagement;
		// anything else, including a redelivered task that finds its own
		// earlier write, is a logged no-op.
		superseding := transition == domain.TransitionVendorToVendor && engaged.VendorID != cfg.VendorID
		if !superseding {
			l.log.Info("vendor assignment skipped, owner already engaged",
				zap.String("account_id", account.ID.String()),
				zap.String("owner_id", account.OwnerID().String()),
				zap.String("existing_assignment_id", engaged.ID.String()),
			)
			return nil, nil
		}
	}

	now := l.now()
	assignment := &domain.VendorAssignment{
		ID:                     uuid.New(),
		AccountID:              account.ID,
		VendorID:               cfg.VendorID,
		RatioConfigID:          cfg.ID,
		SubBucket:              b.Code,
		DPDAtAssignment:        account.DaysPastDue(now),
		AssignTime:             now,
		IsActive:               true,
		IsTransferredFromOther: transition == domain.TransitionVendorToVendor,
	}

	entry := l.historyEntry(account.ID, reason, now)
	entry.NewChannel = domain.ChannelVendor
	entry.NewRef = &assignment.ID

	// Vendor exclusivity lives at the owner, so the record a superseding
	// move must displace is the owner-level engagement, which may sit on a
	// sibling payment of the same loan. Only when no engagement exists can
	// an agent assignment on this payment be the one to displace.
	var supersededAgent *domain.AgentAssignment
	if engaged == nil {
		supersededAgent, err = l.assignments.ActiveAgentAssignment(ctx, account.ID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	err = l.assignments.WithinTx(ctx, func(tx repository.AssignmentTx) error {
		switch {
		case engaged != nil:
			entry.OldChannel = domain.ChannelVendor
			entry.OldRef = &engaged.ID
			if err := tx.DeactivateVendorAssignment(ctx, engaged.ID, now, true); err != nil {
				return err
			}
		case supersededAgent != nil:
			entry.OldChannel = domain.ChannelAgent
			entry.OldRef = &supersededAgent.ID
			if err := tx.DeactivateAgentAssignment(ctx, supersededAgent.ID, now, true); err != nil {
				return err
			}
		}

		if err := tx.CreateVendorAssignment(ctx, assignment); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return assignment, nil
}

// RetireAgent deactivates an agent assignment and records the account as
// returned to unassigned.
func (l *AssignmentLedger) RetireAgent(ctx context.Context, assignment *domain.AgentAssignment, reason string) error {
	now := l.now()
	entry := l.historyEntry(assignment.AccountID, reason, now)
	entry.OldChannel = domain.ChannelAgent
	entry.OldRef = &assignment.ID

	err := l.assignments.WithinTx(ctx, func(tx repository.AssignmentTx) error {
		if err := tx.DeactivateAgentAssignment(ctx, assignment.ID, now, false); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	return nil
}

// RetireVendor deactivates a vendor assignment and records the account as
// returned to unassigned.
func (l *AssignmentLedger) RetireVendor(ctx context.Context, assignment *domain.VendorAssignment, reason string) error {
	now := l.now()
	entry := l.historyEntry(assignment.AccountID, reason, now)
	entry.OldChannel = domain.ChannelVendor
	entry.OldRef = &assignment.ID

	err := l.assignments.WithinTx(ctx, func(tx repository.AssignmentTx) error {
		if err := tx.DeactivateVendorAssignment(ctx, assignment.ID, now, false); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	return nil
}

// ContinueWithAgent transfers a paid-off account's next unpaid sibling to
// the same agent, preserving the original assign time so capacity and
// expiry ordering treat the pair as one engagement.
func (l *AssignmentLedger) ContinueWithAgent(ctx context.Context, sibling *domain.OverdueAccount, original *domain.AgentAssignment) (*domain.AgentAssignment, error) {
	if sibling.HasActivePTP || sibling.HasPendingWaiver {
		return nil, customError.WrapEligibilityViolation(sibling.ID.String())
	}

	existing, err := l.assignments.ActiveAgentAssignment(ctx, sibling.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if existing != nil {
		return nil, customError.WrapAssignmentConflict(sibling.ID.String(), domain.ChannelAgent)
	}

	now := l.now()
	assignment := &domain.AgentAssignment{
		ID:              uuid.New(),
		AccountID:       sibling.ID,
		AgentID:         original.AgentID,
		SubBucket:       original.SubBucket,
		DPDAtAssignment: sibling.DaysPastDue(now),
		AssignTime:      original.AssignTime,
		IsActive:        true,
	}

	entry := l.historyEntry(sibling.ID, domain.ReasonSiblingContinuity, now)
	entry.NewChannel = domain.ChannelAgent
	entry.NewRef = &assignment.ID

	err = l.assignments.WithinTx(ctx, func(tx repository.AssignmentTx) error {
		if err := tx.CreateAgentAssignment(ctx, assignment); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return assignment, nil
}

// ContinueWithVendor transfers a paid-off account's next unpaid sibling
// to the same vendor, preserving the original assign time.
func (l *AssignmentLedger) ContinueWithVendor(ctx context.Context, sibling *domain.OverdueAccount, original *domain.VendorAssignment) (*domain.VendorAssignment, error) {
	if sibling.HasActivePTP || sibling.HasPendingWaiver {
		return nil, customError.WrapEligibilityViolation(sibling.ID.String())
	}

	engaged, err := l.assignments.ActiveVendorAssignmentForOwner(ctx, sibling.OwnerID())
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if engaged != nil {
		l.log.Info("sibling vendor continuity skipped, owner already engaged",
			zap.String("account_id", sibling.ID.String()),
			zap.String("existing_assignment_id", engaged.ID.String()),
		)
		return nil, nil
	}

	now := l.now()
	assignment := &domain.VendorAssignment{
		ID:              uuid.New(),
		AccountID:       sibling.ID,
		VendorID:        original.VendorID,
		RatioConfigID:   original.RatioConfigID,
		SubBucket:       original.SubBucket,
		DPDAtAssignment: sibling.DaysPastDue(now),
		AssignTime:      original.AssignTime,
		IsActive:        true,
	}

	entry := l.historyEntry(sibling.ID, domain.ReasonSiblingContinuity, now)
	entry.NewChannel = domain.ChannelVendor
	entry.NewRef = &assignment.ID

	err = l.assignments.WithinTx(ctx, func(tx repository.AssignmentTx) error {
		if err := tx.CreateVendorAssignment(ctx, assignment); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return assignment, nil
}

func (l *AssignmentLedger) historyEntry(accountID uuid.UUID, reason string, now time.Time) *domain.AssignmentHistoryEntry {
	return &domain.AssignmentHistoryEntry{
		ID:         uuid.New(),
		AccountID:  accountID,
		OldChannel: domain.ChannelNone,
		NewChannel: domain.ChannelNone,
		Reason:     reason,
		CreatedAt:  now,
	}
}
