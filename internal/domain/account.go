package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adisetya/collection-engine/pkg/utils"
)

// ProductKind discriminates the two overdue-payment representations the
// engine operates on: legacy per-loan installments and unified
// per-account payments.
type ProductKind string

const (
	ProductKindLoan    ProductKind = "loan_payment"
	ProductKindUnified ProductKind = "unified_payment"
)

// OverdueAccount is the variant type covering both payment representations.
// Every engine component is written once against this type; Kind selects
// which owner id is authoritative.
type OverdueAccount struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Kind             ProductKind     `json:"kind" db:"kind"`
	LoanID           uuid.UUID       `json:"loan_id" db:"loan_id"`
	AccountID        uuid.UUID       `json:"account_id" db:"account_id"`
	InstallmentSeq   int             `json:"installment_seq" db:"installment_seq"`
	DueDate          time.Time       `json:"due_date" db:"due_date"`
	Outstanding      decimal.Decimal `json:"outstanding" db:"outstanding"`
	IsPaid           bool            `json:"is_paid" db:"is_paid"`
	HasActivePTP     bool            `json:"has_active_ptp" db:"has_active_ptp"`
	HasPendingWaiver bool            `json:"has_pending_waiver" db:"has_pending_waiver"`
}

// OwnerID returns the loan or account id that owns this payment,
// depending on the product kind. Vendor exclusivity is enforced at this
// granularity, not per payment.
func (a *OverdueAccount) OwnerID() uuid.UUID {
	if a.Kind == ProductKindUnified {
		return a.AccountID
	}
	return a.LoanID
}

// DaysPastDue derives the DPD relative to now. Due dates in the future
// yield zero.
func (a *OverdueAccount) DaysPastDue(now time.Time) int {
	return utils.DaysPastDue(a.DueDate, now)
}
