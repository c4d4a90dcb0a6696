package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/bucket"
	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/queue"
	customError "github.com/adisetya/collection-engine/pkg/errors"
	"github.com/adisetya/collection-engine/tests/mocks"
)

type orchestratorFixture struct {
	accounts      *mocks.FakeAccountStore
	assignments   *mocks.FakeAssignmentStore
	vendorConfigs *mocks.MockVendorConfigRepository
	catalog       *bucket.Catalog
	ledger        *AssignmentLedger
	candidates    *mocks.FakeCandidateCache
	dispatcher    *mocks.FakeDispatcher
	orchestrator  *EscalationOrchestrator
	now           time.Time
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	accounts := mocks.NewFakeAccountStore()
	assignments := mocks.NewFakeAssignmentStore(accounts)
	vendorConfigs := new(mocks.MockVendorConfigRepository)
	catalog := testCatalog(5)
	candidates := mocks.NewFakeCandidateCache()
	dispatcher := &mocks.FakeDispatcher{}
	log := zap.NewNop()

	ledger := NewAssignmentLedger(assignments, log)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	orchestrator := NewEscalationOrchestrator(
		accounts,
		vendorConfigs,
		catalog,
		NewEligibilityFilter(assignments, log),
		NewCapacityOverflowResolver(accounts, assignments, catalog, log),
		ledger,
		candidates,
		dispatcher,
		log,
	)
	orchestrator.now = func() time.Time { return now }

	return &orchestratorFixture{
		accounts:      accounts,
		assignments:   assignments,
		vendorConfigs: vendorConfigs,
		catalog:       catalog,
		ledger:        ledger,
		candidates:    candidates,
		dispatcher:    dispatcher,
		orchestrator:  orchestrator,
		now:           now,
	}
}

func TestRunStageUnknownBucket(t *testing.T) {
	f := newOrchestratorFixture(t)

	err := f.orchestrator.RunStage(context.Background(), queue.StagePayload{SubBucket: "bucket_99"})
	require.Error(t, err)
	assert.ErrorIs(t, err, customError.ErrUnknownSubBucket)
	assert.Empty(t, f.dispatcher.Tasks, "a bad payload must not advance the pipeline")
}

// An empty stage still completes and still hands off to its successor.
func TestRunStageEmptyBatchDispatchesNext(t *testing.T) {
	f := newOrchestratorFixture(t)

	err := f.orchestrator.RunStage(context.Background(), queue.StagePayload{SubBucket: domain.SubBucket5})
	require.NoError(t, err)

	dispatched := f.dispatcher.TasksNamed(queue.TaskRunStage)
	require.Len(t, dispatched, 1)
	assert.Equal(t, queue.StagePayload{SubBucket: domain.SubBucket61}, dispatched[0].Payload)
	f.vendorConfigs.AssertNotCalled(t, "ActiveByType")
}

// The final bucket has no successor; it loops back into an expiry re-scan
// so freed inventory is picked up without waiting for the next cron tick.
func TestRunStageFinalBucketDispatchesSweep(t *testing.T) {
	f := newOrchestratorFixture(t)

	err := f.orchestrator.RunStage(context.Background(), queue.StagePayload{SubBucket: domain.SubBucket63})
	require.NoError(t, err)

	assert.Empty(t, f.dispatcher.TasksNamed(queue.TaskRunStage))
	assert.Len(t, f.dispatcher.TasksNamed(queue.TaskRunExpirySweep), 1)
}

func TestRunStageAssignsBatchToVendors(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	batch := make([]*domain.OverdueAccount, 4)
	for i := range batch {
		batch[i] = overdueAccount(200+i, f.now)
		f.accounts.Add(batch[i])
	}
	f.accounts.Candidates[domain.SubBucket61] = batch

	cfg := ratioConfig(domain.VendorTypeGeneral, 1.0, true)
	f.vendorConfigs.On("ActiveByType", mock.Anything, domain.VendorTypeGeneral).
		Return([]domain.VendorRatioConfig{cfg}, nil)

	err := f.orchestrator.RunStage(ctx, queue.StagePayload{SubBucket: domain.SubBucket61})
	require.NoError(t, err)

	for _, account := range batch {
		assignment, err := f.assignments.ActiveVendorAssignment(ctx, account.ID)
		require.NoError(t, err)
		require.NotNilf(t, assignment, "account %s must be vendor-assigned", account.ID)
		assert.Equal(t, cfg.VendorID, assignment.VendorID)
		assert.Equal(t, domain.SubBucket61, assignment.SubBucket)
	}
	assert.Len(t, f.assignments.History, 4)

	// The candidate scan is memoized for the stage's sub-bucket.
	assert.Len(t, f.candidates.Entries[domain.SubBucket61], 4)

	dispatched := f.dispatcher.TasksNamed(queue.TaskRunStage)
	require.Len(t, dispatched, 1)
	assert.Equal(t, queue.StagePayload{SubBucket: domain.SubBucket62}, dispatched[0].Payload)

	f.vendorConfigs.AssertExpectations(t)
}

func TestRunStageServesCandidatesFromCache(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	cached := overdueAccount(300, f.now)
	f.accounts.Add(cached)
	f.candidates.Entries[domain.SubBucket62] = append(f.candidates.Entries[domain.SubBucket62], cached.ID)

	cfg := ratioConfig(domain.VendorTypeGeneral, 1.0, true)
	f.vendorConfigs.On("ActiveByType", mock.Anything, domain.VendorTypeGeneral).
		Return([]domain.VendorRatioConfig{cfg}, nil)

	err := f.orchestrator.RunStage(ctx, queue.StagePayload{SubBucket: domain.SubBucket62})
	require.NoError(t, err)

	assignment, err := f.assignments.ActiveVendorAssignment(ctx, cached.ID)
	require.NoError(t, err)
	require.NotNil(t, assignment)
}

// A broken vendor configuration aborts only the distribution. Nothing is
// committed, the batch stays recoverable, and the pipeline still advances.
func TestRunStageConfigFailureLeavesBatchUnassigned(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	account := overdueAccount(200, f.now)
	f.accounts.Add(account)
	f.accounts.Candidates[domain.SubBucket61] = []*domain.OverdueAccount{account}

	f.vendorConfigs.On("ActiveByType", mock.Anything, domain.VendorTypeGeneral).
		Return(nil, errors.New("connection refused"))

	err := f.orchestrator.RunStage(ctx, queue.StagePayload{SubBucket: domain.SubBucket61})
	require.NoError(t, err)

	assignment, err := f.assignments.ActiveVendorAssignment(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, assignment)

	dispatched := f.dispatcher.TasksNamed(queue.TaskRunStage)
	require.Len(t, dispatched, 1)
	assert.Equal(t, queue.StagePayload{SubBucket: domain.SubBucket62}, dispatched[0].Payload)
}

func TestRunStageOversubscribedRatiosLeaveBatchUnassigned(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	account := overdueAccount(200, f.now)
	f.accounts.Add(account)
	f.accounts.Candidates[domain.SubBucket61] = []*domain.OverdueAccount{account}

	configs := []domain.VendorRatioConfig{
		ratioConfig(domain.VendorTypeGeneral, 0.7, true),
		ratioConfig(domain.VendorTypeGeneral, 0.7, true),
	}
	f.vendorConfigs.On("ActiveByType", mock.Anything, domain.VendorTypeGeneral).
		Return(configs, nil)

	err := f.orchestrator.RunStage(ctx, queue.StagePayload{SubBucket: domain.SubBucket61})
	require.NoError(t, err)

	assignment, err := f.assignments.ActiveVendorAssignment(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, assignment)
	require.Len(t, f.dispatcher.TasksNamed(queue.TaskRunStage), 1)
}

func TestRunStageEvictionsJoinTheBatch(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	// One agent over a ceiling of five in bucket 5; the freed accounts go
	// to the special vendor pool alongside fresh escalations.
	agentID := uuid.New()
	agentAssignments := make([]*domain.AgentAssignment, 7)
	for i := range agentAssignments {
		held := overdueAccount(120, f.now)
		f.accounts.Add(held)
		agentAssignments[i] = seedAgentAssignment(t, f.assignments, held.ID, agentID, domain.SubBucket5, f.now.AddDate(0, 0, -(25 - i)))
	}

	cfg := ratioConfig(domain.VendorTypeSpecial, 1.0, true)
	f.vendorConfigs.On("ActiveByType", mock.Anything, domain.VendorTypeSpecial).
		Return([]domain.VendorRatioConfig{cfg}, nil)

	err := f.orchestrator.RunStage(ctx, queue.StagePayload{SubBucket: domain.SubBucket5})
	require.NoError(t, err)

	// Two evictions, both moved to the vendor and released by the agent.
	moved := 0
	for _, original := range agentAssignments {
		stored := f.assignments.Agents[original.ID]
		if !stored.IsActive {
			assert.True(t, stored.IsTransferredToOther)
			vendorAssignment, err := f.assignments.ActiveVendorAssignment(ctx, stored.AccountID)
			require.NoError(t, err)
			require.NotNil(t, vendorAssignment)
			assert.True(t, vendorAssignment.IsActive)
			moved++
		}
	}
	assert.Equal(t, 2, moved)
}

func TestHandleExpiryFollowupReenqueuesStage(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	account := overdueAccount(300, f.now)
	f.accounts.Add(account)
	f.candidates.Entries[domain.SubBucket62] = append(f.candidates.Entries[domain.SubBucket62], account.ID)

	err := f.orchestrator.HandleExpiryFollowup(ctx, queue.ExpiryFollowupPayload{AccountID: account.ID.String()})
	require.NoError(t, err)

	_, hit, err := f.candidates.Get(ctx, domain.SubBucket62)
	require.NoError(t, err)
	assert.False(t, hit, "the stale candidate list must be dropped")

	dispatched := f.dispatcher.TasksNamed(queue.TaskRunStage)
	require.Len(t, dispatched, 1)
	assert.Equal(t, queue.StagePayload{SubBucket: domain.SubBucket62}, dispatched[0].Payload)
}

func TestHandleExpiryFollowupSkipsSettledAccounts(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	paid := overdueAccount(300, f.now)
	paid.IsPaid = true
	f.accounts.Add(paid)

	belowFloor := overdueAccount(30, f.now)
	f.accounts.Add(belowFloor)

	require.NoError(t, f.orchestrator.HandleExpiryFollowup(ctx, queue.ExpiryFollowupPayload{AccountID: paid.ID.String()}))
	require.NoError(t, f.orchestrator.HandleExpiryFollowup(ctx, queue.ExpiryFollowupPayload{AccountID: belowFloor.ID.String()}))

	assert.Empty(t, f.dispatcher.Tasks)
}

func TestHandleExpiryFollowupUnknownAccount(t *testing.T) {
	f := newOrchestratorFixture(t)

	err := f.orchestrator.HandleExpiryFollowup(context.Background(), queue.ExpiryFollowupPayload{
		AccountID: "11111111-2222-3333-4444-555555555555",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, customError.ErrAccountNotFound)
}

func TestHandleExpiryFollowupBadID(t *testing.T) {
	f := newOrchestratorFixture(t)

	err := f.orchestrator.HandleExpiryFollowup(context.Background(), queue.ExpiryFollowupPayload{AccountID: "not-a-uuid"})
	require.Error(t, err)
}
