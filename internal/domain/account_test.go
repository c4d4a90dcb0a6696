package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOwnerID(t *testing.T) {
	loanID := uuid.New()
	accountID := uuid.New()

	loanPayment := &OverdueAccount{Kind: ProductKindLoan, LoanID: loanID, AccountID: accountID}
	unifiedPayment := &OverdueAccount{Kind: ProductKindUnified, LoanID: loanID, AccountID: accountID}

	assert.Equal(t, loanID, loanPayment.OwnerID())
	assert.Equal(t, accountID, unifiedPayment.OwnerID())
}

func TestDaysPastDueClampsFuture(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	overdue := &OverdueAccount{DueDate: now.AddDate(0, 0, -91)}
	future := &OverdueAccount{DueDate: now.AddDate(0, 0, 5)}

	assert.Equal(t, 91, overdue.DaysPastDue(now))
	assert.Equal(t, 0, future.DaysPastDue(now))
}

func TestSubBucketContains(t *testing.T) {
	end := 180
	bounded := SubBucket{Code: SubBucket5, StartDPD: 91, EndDPD: &end}
	open := SubBucket{Code: SubBucket63, StartDPD: 361}

	assert.False(t, bounded.Contains(90))
	assert.True(t, bounded.Contains(91))
	assert.True(t, bounded.Contains(180))
	assert.False(t, bounded.Contains(181))

	assert.False(t, open.Contains(360))
	assert.True(t, open.Contains(361))
	assert.True(t, open.Contains(100000))
}
