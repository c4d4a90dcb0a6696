package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/bucket"
	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/queue"
	"github.com/adisetya/collection-engine/internal/repository"
	"github.com/adisetya/collection-engine/pkg/utils"
)

// ExpiryScanner is the periodic sweep. It retires assignments that
// outstayed their window, paid off, or aged past their sub-bucket, and
// forwards freed accounts back into the escalation pipeline. Collector
// continuity: a payoff inside the freshness window moves the next unpaid
// sibling installment to the same collector instead of re-triaging.
type ExpiryScanner struct {
	accounts         repository.AccountRepository
	assignments      repository.AssignmentRepository
	catalog          *bucket.Catalog
	ledger           *AssignmentLedger
	dispatcher       queue.Dispatcher
	agentMaxStayDays int
	log              *zap.Logger
	now              func() time.Time
}

func NewExpiryScanner(
	accounts repository.AccountRepository,
	assignments repository.AssignmentRepository,
	catalog *bucket.Catalog,
	ledger *AssignmentLedger,
	dispatcher queue.Dispatcher,
	agentMaxStayDays int,
	log *zap.Logger,
) *ExpiryScanner {
	return &ExpiryScanner{
		accounts:         accounts,
		assignments:      assignments,
		catalog:          catalog,
		ledger:           ledger,
		dispatcher:       dispatcher,
		agentMaxStayDays: agentMaxStayDays,
		log:              log,
		now:              time.Now,
	}
}

// Sweep walks every sub-bucket once. Per-assignment failures are logged
// and never abort the rest of the sweep.
func (s *ExpiryScanner) Sweep(ctx context.Context) error {
	now := s.now()
	retired := make(map[uuid.UUID]bool)

	// Agent assignments past the fixed stay cap, across all buckets.
	agentCutoff := now.AddDate(0, 0, -s.agentMaxStayDays)
	expiredAgents, err := s.assignments.ExpiredAgentAssignments(ctx, agentCutoff)
	if err != nil {
		return err
	}
	for _, assignment := range expiredAgents {
		s.sweepAgentAssignment(ctx, assignment, now, retired)
	}

	for _, b := range s.catalog.Buckets() {
		// Vendor assignments past the bucket's stay window.
		stayCutoff := now.AddDate(0, 0, -s.catalog.VendorStayWindow(b.Code))
		expiredVendors, err := s.assignments.ExpiredVendorAssignments(ctx, b.Code, stayCutoff)
		if err != nil {
			s.log.Error("expired vendor scan failed", zap.String("sub_bucket", b.Code), zap.Error(err))
			continue
		}
		for _, assignment := range expiredVendors {
			s.sweepVendorAssignment(ctx, b, assignment, now, retired)
		}

		// Remaining active assignments: paid off or aged past the bucket.
		activeVendors, err := s.assignments.ActiveVendorAssignmentsByBucket(ctx, b.Code)
		if err != nil {
			s.log.Error("active vendor scan failed", zap.String("sub_bucket", b.Code), zap.Error(err))
			continue
		}
		for _, assignment := range activeVendors {
			if retired[assignment.ID] {
				continue
			}
			s.sweepVendorAssignment(ctx, b, assignment, now, retired)
		}

		if s.catalog.CapacityCeiling(b.Code) > 0 {
			activeAgents, err := s.assignments.ActiveAgentAssignmentsByBucket(ctx, b.Code)
			if err != nil {
				s.log.Error("active agent scan failed", zap.String("sub_bucket", b.Code), zap.Error(err))
				continue
			}
			for _, assignment := range activeAgents {
				if retired[assignment.ID] {
					continue
				}
				s.sweepAgentAssignment(ctx, assignment, now, retired)
			}
		}
	}

	return nil
}

func (s *ExpiryScanner) sweepAgentAssignment(ctx context.Context, assignment *domain.AgentAssignment, now time.Time, retired map[uuid.UUID]bool) {
	account, err := s.accounts.GetByID(ctx, assignment.AccountID)
	if err != nil {
		s.log.Error("agent sweep: account lookup failed",
			zap.String("account_id", assignment.AccountID.String()),
			zap.Error(err),
		)
		return
	}

	age := utils.DaysSince(assignment.AssignTime, now)

	if account.IsPaid {
		if err := s.ledger.RetireAgent(ctx, assignment, domain.ReasonPaidOff); err != nil {
			s.log.Error("agent retirement failed", zap.String("assignment_id", assignment.ID.String()), zap.Error(err))
			return
		}
		retired[assignment.ID] = true

		if age < s.agentMaxStayDays {
			s.transferSiblingToAgent(ctx, account, assignment)
		}
		return
	}

	if age > s.agentMaxStayDays {
		s.retireAgentAndFollowup(ctx, assignment, account, domain.ReasonAgentCapExpired, retired)
		return
	}

	currentBucket, ok := s.catalog.BucketFor(account.DaysPastDue(now))
	if ok && s.catalog.Rank(currentBucket.Code) > s.catalog.Rank(assignment.SubBucket) {
		s.retireAgentAndFollowup(ctx, assignment, account, domain.ReasonBucketAged, retired)
	}
}

func (s *ExpiryScanner) sweepVendorAssignment(ctx context.Context, b domain.SubBucket, assignment *domain.VendorAssignment, now time.Time, retired map[uuid.UUID]bool) {
	account, err := s.accounts.GetByID(ctx, assignment.AccountID)
	if err != nil {
		s.log.Error("vendor sweep: account lookup failed",
			zap.String("account_id", assignment.AccountID.String()),
			zap.Error(err),
		)
		return
	}

	age := utils.DaysSince(assignment.AssignTime, now)
	stayWindow := s.catalog.VendorStayWindow(b.Code)

	if account.IsPaid {
		if err := s.ledger.RetireVendor(ctx, assignment, domain.ReasonPaidOff); err != nil {
			s.log.Error("vendor retirement failed", zap.String("assignment_id", assignment.ID.String()), zap.Error(err))
			return
		}
		retired[assignment.ID] = true

		if age <= stayWindow {
			s.transferSiblingToVendor(ctx, account, assignment)
		}
		return
	}

	if age > stayWindow {
		s.retireVendorAndFollowup(ctx, assignment, account, domain.ReasonStayWindowExpired, retired)
		return
	}

	currentBucket, ok := s.catalog.BucketFor(account.DaysPastDue(now))
	if ok && s.catalog.Rank(currentBucket.Code) > s.catalog.Rank(assignment.SubBucket) {
		s.retireVendorAndFollowup(ctx, assignment, account, domain.ReasonBucketAged, retired)
	}
}

func (s *ExpiryScanner) retireAgentAndFollowup(ctx context.Context, assignment *domain.AgentAssignment, account *domain.OverdueAccount, reason string, retired map[uuid.UUID]bool) {
	if err := s.ledger.RetireAgent(ctx, assignment, reason); err != nil {
		s.log.Error("agent retirement failed",
			zap.String("assignment_id", assignment.ID.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	retired[assignment.ID] = true
	s.followup(ctx, account)
}

func (s *ExpiryScanner) retireVendorAndFollowup(ctx context.Context, assignment *domain.VendorAssignment, account *domain.OverdueAccount, reason string, retired map[uuid.UUID]bool) {
	if err := s.ledger.RetireVendor(ctx, assignment, reason); err != nil {
		s.log.Error("vendor retirement failed",
			zap.String("assignment_id", assignment.ID.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	retired[assignment.ID] = true
	s.followup(ctx, account)
}

// followup re-enqueues an account for triage unless it is paid or
// waiver-protected.
func (s *ExpiryScanner) followup(ctx context.Context, account *domain.OverdueAccount) {
	if account.IsPaid || account.HasPendingWaiver {
		return
	}

	payload := queue.ExpiryFollowupPayload{AccountID: account.ID.String()}
	if err := s.dispatcher.Enqueue(ctx, queue.TaskExpiryFollowup, payload); err != nil {
		s.log.Error("expiry followup dispatch failed",
			zap.String("account_id", account.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *ExpiryScanner) transferSiblingToAgent(ctx context.Context, account *domain.OverdueAccount, original *domain.AgentAssignment) {
	sibling, err := s.accounts.NextUnpaidSibling(ctx, account)
	if err != nil {
		s.log.Error("sibling lookup failed", zap.String("account_id", account.ID.String()), zap.Error(err))
		return
	}
	if sibling == nil || sibling.HasActivePTP || sibling.HasPendingWaiver {
		return
	}

	if _, err := s.ledger.ContinueWithAgent(ctx, sibling, original); err != nil {
		s.log.Error("sibling agent continuity failed",
			zap.String("sibling_id", sibling.ID.String()),
			zap.Error(err),
		)
		return
	}

	s.log.Info("sibling installment kept with agent",
		zap.String("sibling_id", sibling.ID.String()),
		zap.String("agent_id", original.AgentID.String()),
	)
}

func (s *ExpiryScanner) transferSiblingToVendor(ctx context.Context, account *domain.OverdueAccount, original *domain.VendorAssignment) {
	sibling, err := s.accounts.NextUnpaidSibling(ctx, account)
	if err != nil {
		s.log.Error("sibling lookup failed", zap.String("account_id", account.ID.String()), zap.Error(err))
		return
	}
	if sibling == nil || sibling.HasActivePTP || sibling.HasPendingWaiver {
		return
	}

	if _, err := s.ledger.ContinueWithVendor(ctx, sibling, original); err != nil {
		s.log.Error("sibling vendor continuity failed",
			zap.String("sibling_id", sibling.ID.String()),
			zap.Error(err),
		)
		return
	}

	s.log.Info("sibling installment kept with vendor",
		zap.String("sibling_id", sibling.ID.String()),
		zap.String("vendor_id", original.VendorID.String()),
	)
}
