package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/adisetya/collection-engine/internal/domain"
)

const agentAssignmentColumns = `id, account_id, agent_id, sub_bucket, dpd_at_assignment, assign_time, unassign_time, is_active, is_transferred_to_other`

const vendorAssignmentColumns = `id, account_id, vendor_id, ratio_config_id, sub_bucket, dpd_at_assignment, assign_time, unassign_time, is_active, is_transferred_to_other, is_transferred_from_other, collected_at`

type assignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) ActiveAgentAssignment(ctx context.Context, accountID uuid.UUID) (*domain.AgentAssignment, error) {
	query := `
		SELECT ` + agentAssignmentColumns + `
		FROM agent_assignments
		WHERE account_id = $1 AND is_active = true
	`

	var assignment domain.AgentAssignment
	err := r.db.GetContext(ctx, &assignment, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &assignment, nil
}

func (r *assignmentRepository) ActiveVendorAssignment(ctx context.Context, accountID uuid.UUID) (*domain.VendorAssignment, error) {
	query := `
		SELECT ` + vendorAssignmentColumns + `
		FROM vendor_assignments
		WHERE account_id = $1 AND is_active = true
	`

	var assignment domain.VendorAssignment
	err := r.db.GetContext(ctx, &assignment, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &assignment, nil
}

func (r *assignmentRepository) ActiveVendorAssignmentForOwner(ctx context.Context, ownerID uuid.UUID) (*domain.VendorAssignment, error) {
	query := `
		SELECT ` + prefixedVendorColumns("va") + `
		FROM vendor_assignments va
		JOIN overdue_accounts oa ON oa.id = va.account_id
		WHERE va.is_active = true
		  AND (oa.loan_id = $1 OR oa.account_id = $1)
		LIMIT 1
	`

	var assignment domain.VendorAssignment
	err := r.db.GetContext(ctx, &assignment, query, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &assignment, nil
}

func (r *assignmentRepository) ActiveAgentAssignmentsByBucket(ctx context.Context, subBucket string) ([]*domain.AgentAssignment, error) {
	query := `
		SELECT ` + agentAssignmentColumns + `
		FROM agent_assignments
		WHERE sub_bucket = $1 AND is_active = true
		ORDER BY assign_time ASC
	`

	var assignments []*domain.AgentAssignment
	err := r.db.SelectContext(ctx, &assignments, query, subBucket)
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ActiveVendorAssignmentsByBucket(ctx context.Context, subBucket string) ([]*domain.VendorAssignment, error) {
	query := `
		SELECT ` + vendorAssignmentColumns + `
		FROM vendor_assignments
		WHERE sub_bucket = $1 AND is_active = true
		ORDER BY assign_time ASC
	`

	var assignments []*domain.VendorAssignment
	err := r.db.SelectContext(ctx, &assignments, query, subBucket)
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ExpiredVendorAssignments(ctx context.Context, subBucket string, cutoff time.Time) ([]*domain.VendorAssignment, error) {
	query := `
		SELECT ` + vendorAssignmentColumns + `
		FROM vendor_assignments
		WHERE sub_bucket = $1 AND is_active = true AND assign_time < $2
		ORDER BY assign_time ASC
	`

	var assignments []*domain.VendorAssignment
	err := r.db.SelectContext(ctx, &assignments, query, subBucket, cutoff)
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ExpiredAgentAssignments(ctx context.Context, cutoff time.Time) ([]*domain.AgentAssignment, error) {
	query := `
		SELECT ` + agentAssignmentColumns + `
		FROM agent_assignments
		WHERE is_active = true AND assign_time < $1
		ORDER BY assign_time ASC
	`

	var assignments []*domain.AgentAssignment
	err := r.db.SelectContext(ctx, &assignments, query, cutoff)
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

// WithinTx runs fn against a transactional mutation surface. Rollback on
// error, commit otherwise.
func (r *assignmentRepository) WithinTx(ctx context.Context, fn func(tx AssignmentTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&assignmentTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

type assignmentTx struct {
	tx *sqlx.Tx
}

func (t *assignmentTx) CreateAgentAssignment(ctx context.Context, assignment *domain.AgentAssignment) error {
	query := `
		INSERT INTO agent_assignments (id, account_id, agent_id, sub_bucket, dpd_at_assignment, assign_time, unassign_time, is_active, is_transferred_to_other)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := t.tx.ExecContext(ctx, query,
		assignment.ID,
		assignment.AccountID,
		assignment.AgentID,
		assignment.SubBucket,
		assignment.DPDAtAssignment,
		assignment.AssignTime,
		assignment.UnassignTime,
		assignment.IsActive,
		assignment.IsTransferredToOther,
	)

	return err
}

func (t *assignmentTx) CreateVendorAssignment(ctx context.Context, assignment *domain.VendorAssignment) error {
	query := `
		INSERT INTO vendor_assignments (id, account_id, vendor_id, ratio_config_id, sub_bucket, dpd_at_assignment, assign_time, unassign_time, is_active, is_transferred_to_other, is_transferred_from_other, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := t.tx.ExecContext(ctx, query,
		assignment.ID,
		assignment.AccountID,
		assignment.VendorID,
		assignment.RatioConfigID,
		assignment.SubBucket,
		assignment.DPDAtAssignment,
		assignment.AssignTime,
		assignment.UnassignTime,
		assignment.IsActive,
		assignment.IsTransferredToOther,
		assignment.IsTransferredFromOther,
		assignment.CollectedAt,
	)

	return err
}

func (t *assignmentTx) DeactivateAgentAssignment(ctx context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error {
	query := `
		UPDATE agent_assignments
		SET is_active = false, unassign_time = $2, is_transferred_to_other = $3
		WHERE id = $1 AND is_active = true
	`

	_, err := t.tx.ExecContext(ctx, query, id, unassignTime, transferred)
	return err
}

func (t *assignmentTx) DeactivateVendorAssignment(ctx context.Context, id uuid.UUID, unassignTime time.Time, transferred bool) error {
	query := `
		UPDATE vendor_assignments
		SET is_active = false, unassign_time = $2, is_transferred_to_other = $3
		WHERE id = $1 AND is_active = true
	`

	_, err := t.tx.ExecContext(ctx, query, id, unassignTime, transferred)
	return err
}

func (t *assignmentTx) AppendHistory(ctx context.Context, entry *domain.AssignmentHistoryEntry) error {
	query := `
		INSERT INTO assignment_history (id, account_id, old_channel, old_ref, new_channel, new_ref, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := t.tx.ExecContext(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.OldChannel,
		entry.OldRef,
		entry.NewChannel,
		entry.NewRef,
		entry.Reason,
		entry.CreatedAt,
	)

	return err
}

func prefixedVendorColumns(alias string) string {
	return alias + `.id, ` + alias + `.account_id, ` + alias + `.vendor_id, ` + alias + `.ratio_config_id, ` + alias + `.sub_bucket, ` + alias + `.dpd_at_assignment, ` + alias + `.assign_time, ` + alias + `.unassign_time, ` + alias + `.is_active, ` + alias + `.is_transferred_to_other, ` + alias + `.is_transferred_from_other, ` + alias + `.collected_at`
}
