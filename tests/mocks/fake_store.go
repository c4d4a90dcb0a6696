package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/repository"
)

// FakeAccountStore is an in-memory AccountRepository for exercising the
// engine without a database.
type FakeAccountStore struct {
	mu         sync.Mutex
	Accounts   map[uuid.UUID]*domain.OverdueAccount
	Siblings   map[uuid.UUID]*domain.OverdueAccount
	Candidates map[string][]*domain.OverdueAccount
}

func NewFakeAccountStore() *FakeAccountStore {
	return &FakeAccountStore{
		Accounts:   make(map[uuid.UUID]*domain.OverdueAccount),
		Siblings:   make(map[uuid.UUID]*domain.OverdueAccount),
		Candidates: make(map[string][]*domain.OverdueAccount),
	}
}

func (s *FakeAccountStore) Add(account *domain.OverdueAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Accounts[account.ID] = account
}

func (s *FakeAccountStore) GetByID(_ context.Context, id uuid.UUID) (*domain.OverdueAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.Accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return account, nil
}

func (s *FakeAccountStore) OldestOverdueCandidates(_ context.Context, bucket domain.SubBucket, _ []uuid.UUID, _ time.Time) ([]*domain.OverdueAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Candidates[bucket.Code], nil
}

func (s *FakeAccountStore) NextUnpaidSibling(_ context.Context, account *domain.OverdueAccount) (*domain.OverdueAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Siblings[account.ID], nil
}

// FakeAssignmentStore is an in-memory AssignmentRepository. WithinTx runs
// the callback against the store directly; writes are immediate.
type FakeAssignmentStore struct {
	mu       sync.Mutex
	Agents   map[uuid.UUID]*domain.AgentAssignment
	Vendors  map[uuid.UUID]*domain.VendorAssignment
	History  []*domain.AssignmentHistoryEntry
	Accounts *FakeAccountStore
}

func NewFakeAssignmentStore(accounts *FakeAccountStore) *FakeAssignmentStore {
	return &FakeAssignmentStore{
		Agents:   make(map[uuid.UUID]*domain.AgentAssignment),
		Vendors:  make(map[uuid.UUID]*domain.VendorAssignment),
		Accounts: accounts,
	}
}

func (s *FakeAssignmentStore) ActiveAgentAssignment(_ context.Context, accountID uuid.UUID) (*domain.AgentAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Agents {
		if a.AccountID == accountID && a.IsActive {
			return a, nil
		}
	}
	return nil, nil
}

func (s *FakeAssignmentStore) ActiveVendorAssignment(_ context.Context, accountID uuid.UUID) (*domain.VendorAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Vendors {
		if a.AccountID == accountID && a.IsActive {
			return a, nil
		}
	}
	return nil, nil
}

func (s *FakeAssignmentStore) ActiveVendorAssignmentForOwner(_ context.Context, ownerID uuid.UUID) (*domain.VendorAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Vendors {
		if !a.IsActive {
			continue
		}
		account, ok := s.Accounts.Accounts[a.AccountID]
		if ok && account.OwnerID() == ownerID {
			return a, nil
		}
	}
	return nil, nil
}

func (s *FakeAssignmentStore) ActiveAgentAssignmentsByBucket(_ context.Context, subBucket string) ([]*domain.AgentAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AgentAssignment
	for _, a := range s.Agents {
		if a.SubBucket == subBucket && a.IsActive {
			out = append(out, a)
		}
	}
	sortAgentsByAssignTime(out)
	return out, nil
}

func (s *FakeAssignmentStore) ActiveVendorAssignmentsByBucket(_ context.Context, subBucket string) ([]*domain.VendorAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.VendorAssignment
	for _, a := range s.Vendors {
		if a.SubBucket == subBucket && a.IsActive {
			out = append(out, a)
		}
	}
	sortVendorsByAssignTime(out)
	return out, nil
}

func (s *FakeAssignmentStore) ExpiredVendorAssignments(_ context.Context, subBucket string, cutoff time.Time) ([]*domain.VendorAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.VendorAssignment
	for _, a := range s.Vendors {
		if a.SubBucket == subBucket && a.IsActive && a.AssignTime.Before(cutoff) {
			out = append(out, a)
		}
	}
	sortVendorsByAssignTime(out)
	return out, nil
}

func (s *FakeAssignmentStore) ExpiredAgentAssignments(_ context.Context, cutoff time.Time) ([]*domain.AgentAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AgentAssignment
	for _, a := range s.Agents {
		if a.IsActive && a.AssignTime.Before(cutoff) {
			out = append(out, a)
		}
	}
	sortAgentsByAssignTime(out)
	return out, nil
}

func (s *FakeAssignmentStore) WithinTx(_ context.Context, fn func(tx repository.AssignmentTx) error) error {
	return fn(s)
}

func (s *FakeAssignmentStore) CreateAgentAssignment(_ context.Context, assignment *domain.AgentAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *assignment
	s.Agents[assignment.ID] = &copied
	return nil
}

func (s *FakeAssignmentStore) CreateVendorAssignment(_ context.Context, assignment *domain.VendorAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *assignment
	s.Vendors[assignment.ID] = &copied
	return nil
}

func (s *FakeAssignmentStore) DeactivateAgentAssignment(_ context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.Agents[id]; ok && a.IsActive {
		a.IsActive = false
		t := unassignTime
		a.UnassignTime = &t
		a.IsTransferredToOther = transferred
	}
	return nil
}

func (s *FakeAssignmentStore) DeactivateVendorAssignment(_ context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.Vendors[id]; ok && a.IsActive {
		a.IsActive = false
		t := unassignTime
		a.UnassignTime = &t
		a.IsTransferredToOther = transferred
	}
	return nil
}

func (s *FakeAssignmentStore) AppendHistory(_ context.Context, entry *domain.AssignmentHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.History = append(s.History, &copied)
	return nil
}

// ActiveCount returns how many active assignments the account holds
// across both channels.
func (s *FakeAssignmentStore) ActiveCount(accountID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.Agents {
		if a.AccountID == accountID && a.IsActive {
			count++
		}
	}
	for _, a := range s.Vendors {
		if a.AccountID == accountID && a.IsActive {
			count++
		}
	}
	return count
}

func sortAgentsByAssignTime(list []*domain.AgentAssignment) {
	sort.Slice(list, func(i, j int) bool { return list[i].AssignTime.Before(list[j].AssignTime) })
}

func sortVendorsByAssignTime(list []*domain.VendorAssignment) {
	sort.Slice(list, func(i, j int) bool { return list[i].AssignTime.Before(list[j].AssignTime) })
}
