package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/adisetya/collection-engine/internal/domain"
)

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OverdueAccount, error) {
	query := `
		SELECT id, kind, loan_id, account_id, installment_seq, due_date, outstanding, is_paid, has_active_ptp, has_pending_waiver
		FROM overdue_accounts
		WHERE id = $1
	`

	var account domain.OverdueAccount
	err := r.db.GetContext(ctx, &account, query, id)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) OldestOverdueCandidates(ctx context.Context, bucket domain.SubBucket, excludeIDs []uuid.UUID, now time.Time) ([]*domain.OverdueAccount, error) {
	// The bucket's inclusive DPD range translates to a due-date window:
	// start_dpd days late or more, and no more than end_dpd days late.
	latestDue := now.AddDate(0, 0, -bucket.StartDPD)

	// Not-yet-escalated: accounts already under an active channel are not
	// candidates for this scan.
	query := `
		SELECT id, kind, loan_id, account_id, installment_seq, due_date, outstanding, is_paid, has_active_ptp, has_pending_waiver
		FROM overdue_accounts oa
		WHERE is_paid = false
		  AND due_date <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM agent_assignments aa
			WHERE aa.account_id = oa.id AND aa.is_active = true
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM vendor_assignments va
			WHERE va.account_id = oa.id AND va.is_active = true
		  )
	`
	args := []interface{}{latestDue}

	if bucket.EndDPD != nil {
		earliestDue := now.AddDate(0, 0, -*bucket.EndDPD)
		query += ` AND due_date >= $2`
		args = append(args, earliestDue)
	}

	if len(excludeIDs) > 0 {
		query += fmt.Sprintf(` AND NOT (id = ANY($%d))`, len(args)+1)
		args = append(args, pq.Array(excludeIDs))
	}

	query += ` ORDER BY due_date ASC`

	var accounts []*domain.OverdueAccount
	err := r.db.SelectContext(ctx, &accounts, query, args...)
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *accountRepository) NextUnpaidSibling(ctx context.Context, account *domain.OverdueAccount) (*domain.OverdueAccount, error) {
	if account.Kind != domain.ProductKindLoan {
		return nil, nil
	}

	query := `
		SELECT id, kind, loan_id, account_id, installment_seq, due_date, outstanding, is_paid, has_active_ptp, has_pending_waiver
		FROM overdue_accounts
		WHERE loan_id = $1 AND is_paid = false AND installment_seq > $2
		ORDER BY installment_seq ASC
		LIMIT 1
	`

	var sibling domain.OverdueAccount
	err := r.db.GetContext(ctx, &sibling, query, account.LoanID, account.InstallmentSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &sibling, nil
}
