package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/bucket"
	"github.com/adisetya/collection-engine/internal/cache"
	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/queue"
	"github.com/adisetya/collection-engine/internal/repository"
	customError "github.com/adisetya/collection-engine/pkg/errors"
)

// Stage states. Every run walks the full chain; an empty batch
// short-circuits the middle steps but still reaches STAGE_DONE and still
// dispatches the next stage.
const (
	StagePending             = "PENDING"
	StageEligibilityFiltered = "ELIGIBILITY_FILTERED"
	StageOverflowResolved    = "OVERFLOW_RESOLVED"
	StageApportioned         = "APPORTIONED"
	StageLedgerCommitted     = "LEDGER_COMMITTED"
	StageDone                = "STAGE_DONE"
)

// EscalationOrchestrator sequences bucket stages: bucket 5 feeds 6.1,
// 6.1 feeds 6.2, 6.2 feeds 6.3, and the final stage loops back into an
// expiry re-scan. Stages run as independently dispatched tasks; there is
// no shared in-process state, only the ledger.
type EscalationOrchestrator struct {
	accounts      repository.AccountRepository
	vendorConfigs repository.VendorConfigRepository
	catalog       *bucket.Catalog
	filter        *EligibilityFilter
	overflow      *CapacityOverflowResolver
	ledger        *AssignmentLedger
	candidates    cache.CandidateCache
	dispatcher    queue.Dispatcher
	validate      *validator.Validate
	log           *zap.Logger
	now           func() time.Time
}

func NewEscalationOrchestrator(
	accounts repository.AccountRepository,
	vendorConfigs repository.VendorConfigRepository,
	catalog *bucket.Catalog,
	filter *EligibilityFilter,
	overflow *CapacityOverflowResolver,
	ledger *AssignmentLedger,
	candidates cache.CandidateCache,
	dispatcher queue.Dispatcher,
	log *zap.Logger,
) *EscalationOrchestrator {
	return &EscalationOrchestrator{
		accounts:      accounts,
		vendorConfigs: vendorConfigs,
		catalog:       catalog,
		filter:        filter,
		overflow:      overflow,
		ledger:        ledger,
		candidates:    candidates,
		dispatcher:    dispatcher,
		validate:      validator.New(),
		log:           log,
		now:           time.Now,
	}
}

// RunStage executes one sub-bucket stage end to end. Per-account failures
// are logged and skipped; a configuration failure aborts only the
// apportionment, leaving the whole batch recoverable as leftover. The
// next stage is dispatched in every path.
func (o *EscalationOrchestrator) RunStage(ctx context.Context, payload queue.StagePayload) error {
	b, ok := o.catalog.ByCode(payload.SubBucket)
	if !ok {
		return customError.WrapUnknownSubBucket(payload.SubBucket)
	}

	state := StagePending
	o.logState(b, state)

	accounts, err := o.loadCandidates(ctx, b)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	eligible := o.filter.Filter(ctx, b, accounts)
	state = StageEligibilityFiltered
	o.logState(b, state, zap.Int("candidates", len(accounts)), zap.Int("eligible", len(eligible)))

	evictions, err := o.overflow.Resolve(ctx, b)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	state = StageOverflowResolved
	o.logState(b, state, zap.Int("evictions", len(evictions)))

	// Fresh escalations first, capacity releases appended after. The
	// apportioner drains from the tail, so evictions are placed first in
	// line for vendors.
	byID := make(map[uuid.UUID]*domain.OverdueAccount, len(eligible)+len(evictions))
	transitions := make(map[uuid.UUID]string, len(eligible)+len(evictions))
	batch := make([]uuid.UUID, 0, len(eligible)+len(evictions))
	for _, account := range eligible {
		batch = append(batch, account.ID)
		byID[account.ID] = account
		transitions[account.ID] = domain.TransitionFreshToVendor
	}
	for _, ev := range evictions {
		if _, seen := byID[ev.Account.ID]; seen {
			continue
		}
		batch = append(batch, ev.Account.ID)
		byID[ev.Account.ID] = ev.Account
		transitions[ev.Account.ID] = ev.Transition
	}

	if len(batch) > 0 {
		allocation, err := o.apportionBatch(ctx, b, batch)
		if err != nil {
			// Configuration failure: the batch stays leftover and the
			// pipeline moves on. Accounts are recovered next cycle.
			o.log.Error("apportionment aborted for stage",
				zap.String("sub_bucket", b.Code),
				zap.Int("leftover", len(batch)),
				zap.Error(err),
			)
		} else {
			state = StageApportioned
			o.logState(b, state, zap.Int("leftover", len(allocation.Leftover)))

			o.commitAllocation(ctx, b, allocation, byID, transitions)
			state = StageLedgerCommitted
			o.logState(b, state)
		}
	}

	state = StageDone
	o.logState(b, state)

	return o.dispatchNext(ctx, b)
}

// HandleExpiryFollowup routes an account freed by the expiry sweep back
// into its applicable stage.
func (o *EscalationOrchestrator) HandleExpiryFollowup(ctx context.Context, payload queue.ExpiryFollowupPayload) error {
	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		return err
	}

	account, err := o.accounts.GetByID(ctx, accountID)
	if err != nil {
		return customError.WrapAccountNotFound(payload.AccountID)
	}

	if account.IsPaid || account.HasPendingWaiver {
		return nil
	}

	b, ok := o.catalog.BucketFor(account.DaysPastDue(o.now()))
	if !ok {
		o.log.Debug("freed account below engine floor, nothing to do",
			zap.String("account_id", account.ID.String()),
		)
		return nil
	}

	// Drop the memoized candidate list so the re-run sees this account.
	if err := o.candidates.Invalidate(ctx, b.Code); err != nil {
		o.log.Warn("candidate cache invalidation failed", zap.Error(err))
	}

	if err := o.dispatcher.Enqueue(ctx, queue.TaskRunStage, queue.StagePayload{SubBucket: b.Code}); err != nil {
		return customError.WrapQueueError(err)
	}
	return nil
}

// loadCandidates serves the oldest-overdue scan from the cache when
// possible, falling back to the repository. The cache is never
// authoritative: ids that no longer resolve are dropped.
func (o *EscalationOrchestrator) loadCandidates(ctx context.Context, b domain.SubBucket) ([]*domain.OverdueAccount, error) {
	ids, hit, err := o.candidates.Get(ctx, b.Code)
	if err != nil {
		o.log.Warn("candidate cache read failed, falling back to repository", zap.Error(err))
	} else if hit {
		accounts := make([]*domain.OverdueAccount, 0, len(ids))
		for _, id := range ids {
			account, err := o.accounts.GetByID(ctx, id)
			if err != nil {
				continue
			}
			accounts = append(accounts, account)
		}
		return accounts, nil
	}

	accounts, err := o.accounts.OldestOverdueCandidates(ctx, b, nil, o.now())
	if err != nil {
		return nil, err
	}

	ids = make([]uuid.UUID, len(accounts))
	for i, account := range accounts {
		ids[i] = account.ID
	}
	if err := o.candidates.Set(ctx, b.Code, ids); err != nil {
		o.log.Warn("candidate cache write failed", zap.Error(err))
	}

	return accounts, nil
}

func (o *EscalationOrchestrator) apportionBatch(ctx context.Context, b domain.SubBucket, batch []uuid.UUID) (Allocation, error) {
	configs, err := o.vendorConfigs.ActiveByType(ctx, b.VendorType)
	if err != nil {
		return Allocation{}, customError.WrapDatabaseError(err)
	}

	if err := domain.ValidateRatioConfigs(o.validate, configs); err != nil {
		return Allocation{}, customError.WrapNoVendorConfig(b.VendorType)
	}

	return Apportion(batch, configs)
}

func (o *EscalationOrchestrator) commitAllocation(ctx context.Context, b domain.SubBucket, allocation Allocation, byID map[uuid.UUID]*domain.OverdueAccount, transitions map[uuid.UUID]string) {
	for _, share := range allocation.Shares {
		for _, accountID := range share.AccountIDs {
			account := byID[accountID]
			transition := transitions[accountID]

			reason := domain.ReasonEscalation
			if transition == domain.TransitionAgentToVendor {
				reason = domain.ReasonCapacityOverflow
			}

			assignment, err := o.ledger.AssignToVendor(ctx, account, share.Config, b, transition, reason)
			if err != nil {
				o.log.Error("vendor assignment failed, account skipped",
					zap.String("account_id", accountID.String()),
					zap.String("vendor_id", share.Config.VendorID.String()),
					zap.Error(err),
				)
				continue
			}
			if assignment == nil {
				// Exclusivity guard tripped; already logged by the ledger.
				continue
			}
		}
	}
}

// dispatchNext advances the linear pipeline. The final stage loops back
// into an expiry re-scan instead of another bucket stage.
func (o *EscalationOrchestrator) dispatchNext(ctx context.Context, b domain.SubBucket) error {
	next, ok := o.catalog.Next(b.Code)
	if !ok {
		o.log.Info("pipeline complete, dispatching expiry re-scan",
			zap.String("sub_bucket", b.Code),
		)
		if err := o.dispatcher.Enqueue(ctx, queue.TaskRunExpirySweep, struct{}{}); err != nil {
			return customError.WrapQueueError(err)
		}
		return nil
	}

	if err := o.dispatcher.Enqueue(ctx, queue.TaskRunStage, queue.StagePayload{SubBucket: next.Code}); err != nil {
		return customError.WrapQueueError(err)
	}
	return nil
}

func (o *EscalationOrchestrator) logState(b domain.SubBucket, state string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("sub_bucket", b.Code),
		zap.String("state", state),
	}, fields...)
	o.log.Info("stage transition", fields...)
}
