package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/repository"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OverdueAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OverdueAccount), args.Error(1)
}

func (m *MockAccountRepository) OldestOverdueCandidates(ctx context.Context, bucket domain.SubBucket, excludeIDs []uuid.UUID, now time.Time) ([]*domain.OverdueAccount, error) {
	args := m.Called(ctx, bucket, excludeIDs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OverdueAccount), args.Error(1)
}

func (m *MockAccountRepository) NextUnpaidSibling(ctx context.Context, account *domain.OverdueAccount) (*domain.OverdueAccount, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OverdueAccount), args.Error(1)
}

type MockAssignmentRepository struct {
	mock.Mock

	// Tx, when set, receives the WithinTx callback so tests can observe
	// transactional writes.
	Tx repository.AssignmentTx
}

func (m *MockAssignmentRepository) ActiveAgentAssignment(ctx context.Context, accountID uuid.UUID) (*domain.AgentAssignment, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) ActiveVendorAssignment(ctx context.Context, accountID uuid.UUID) (*domain.VendorAssignment, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VendorAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) ActiveVendorAssignmentForOwner(ctx context.Context, ownerID uuid.UUID) (*domain.VendorAssignment, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VendorAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) ActiveAgentAssignmentsByBucket(ctx context.Context, subBucket string) ([]*domain.AgentAssignment, error) {
	args := m.Called(ctx, subBucket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AgentAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) ActiveVendorAssignmentsByBucket(ctx context.Context, subBucket string) ([]*domain.VendorAssignment, error) {
	args := m.Called(ctx, subBucket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VendorAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) ExpiredVendorAssignments(ctx context.Context, subBucket string, cutoff time.Time) ([]*domain.VendorAssignment, error) {
	args := m.Called(ctx, subBucket, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VendorAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) ExpiredAgentAssignments(ctx context.Context, cutoff time.Time) ([]*domain.AgentAssignment, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AgentAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) WithinTx(ctx context.Context, fn func(tx repository.AssignmentTx) error) error {
	args := m.Called(ctx, fn)
	if m.Tx != nil {
		if err := fn(m.Tx); err != nil {
			return err
		}
	}
	return args.Error(0)
}

type MockAssignmentTx struct {
	mock.Mock
}

func (m *MockAssignmentTx) CreateAgentAssignment(ctx context.Context, assignment *domain.AgentAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentTx) CreateVendorAssignment(ctx context.Context, assignment *domain.VendorAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentTx) DeactivateAgentAssignment(ctx context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error {
	args := m.Called(ctx, id, unassignTime, transferred)
	return args.Error(0)
}

func (m *MockAssignmentTx) DeactivateVendorAssignment(ctx context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error {
	args := m.Called(ctx, id, unassignTime, transferred)
	return args.Error(0)
}

func (m *MockAssignmentTx) AppendHistory(ctx context.Context, entry *domain.AssignmentHistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockVendorConfigRepository struct {
	mock.Mock
}

func (m *MockVendorConfigRepository) ActiveByType(ctx context.Context, vendorType string) ([]domain.VendorRatioConfig, error) {
	args := m.Called(ctx, vendorType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VendorRatioConfig), args.Error(1)
}
