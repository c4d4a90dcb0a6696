package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adisetya/collection-engine/internal/bucket"
	"github.com/adisetya/collection-engine/internal/domain"
	"github.com/adisetya/collection-engine/internal/repository"
)

// Eviction is one account selected for release from an over-capacity
// agent to the vendor channel. Selection only; the ledger performs the
// mutation.
type Eviction struct {
	Account    *domain.OverdueAccount
	Assignment *domain.AgentAssignment
	Transition string
}

// CapacityOverflowResolver selects which assignments over-capacity agents
// must release. Oldest assignments go first; accounts with an active
// promise-to-pay are skipped, never force-released.
type CapacityOverflowResolver struct {
	accounts    repository.AccountRepository
	assignments repository.AssignmentRepository
	catalog     *bucket.Catalog
	log         *zap.Logger
}

func NewCapacityOverflowResolver(
	accounts repository.AccountRepository,
	assignments repository.AssignmentRepository,
	catalog *bucket.Catalog,
	log *zap.Logger,
) *CapacityOverflowResolver {
	return &CapacityOverflowResolver{
		accounts:    accounts,
		assignments: assignments,
		catalog:     catalog,
		log:         log,
	}
}

// Resolve returns the eviction candidates for every agent exceeding the
// bucket's capacity ceiling. Vendor-only buckets resolve to nothing.
func (r *CapacityOverflowResolver) Resolve(ctx context.Context, b domain.SubBucket) ([]Eviction, error) {
	ceiling := r.catalog.CapacityCeiling(b.Code)
	if ceiling <= 0 {
		return nil, nil
	}

	assignments, err := r.assignments.ActiveAgentAssignmentsByBucket(ctx, b.Code)
	if err != nil {
		return nil, err
	}

	groups := make(map[uuid.UUID][]*domain.AgentAssignment)
	for _, a := range assignments {
		groups[a.AgentID] = append(groups[a.AgentID], a)
	}

	// Stable iteration over agents keeps the output order deterministic.
	agentIDs := make([]uuid.UUID, 0, len(groups))
	for agentID := range groups {
		agentIDs = append(agentIDs, agentID)
	}
	sort.Slice(agentIDs, func(i, j int) bool { return agentIDs[i].String() < agentIDs[j].String() })

	var evictions []Eviction
	for _, agentID := range agentIDs {
		group := groups[agentID]
		if len(group) <= ceiling {
			continue
		}

		sort.Slice(group, func(i, j int) bool { return group[i].AssignTime.Before(group[j].AssignTime) })

		need := len(group) - ceiling
		selected := 0
		for _, assignment := range group {
			if selected >= need {
				break
			}

			account, err := r.accounts.GetByID(ctx, assignment.AccountID)
			if err != nil {
				// Can't evaluate protection without the account; leave the
				// assignment in place and move on.
				r.log.Warn("skipping eviction candidate, account lookup failed",
					zap.String("account_id", assignment.AccountID.String()),
					zap.Error(err),
				)
				continue
			}

			if account.HasActivePTP {
				continue
			}

			evictions = append(evictions, Eviction{
				Account:    account,
				Assignment: assignment,
				Transition: domain.TransitionAgentToVendor,
			})
			selected++
		}

		if selected < need {
			r.log.Info("agent over capacity with insufficient eligible evictions",
				zap.String("agent_id", agentID.String()),
				zap.String("sub_bucket", b.Code),
				zap.Int("needed", need),
				zap.Int("selected", selected),
			)
		}
	}

	return evictions, nil
}
