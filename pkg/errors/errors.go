package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrAssignmentConflict   = errors.New("account already has an active assignment in this channel")
	ErrNoVendorConfig       = errors.New("no active vendor ratio config for vendor type")
	ErrEligibilityViolation = errors.New("mutation attempted on a protected account")
	ErrAccountNotFound      = errors.New("overdue account not found")
	ErrUnknownSubBucket     = errors.New("sub-bucket is not in the catalog")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeAssignmentConflict   = "ASSIGNMENT_CONFLICT"
	ErrCodeNoVendorConfig       = "NO_VENDOR_CONFIG"
	ErrCodeEligibilityViolation = "ELIGIBILITY_VIOLATION"
	ErrCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	ErrCodeUnknownSubBucket     = "UNKNOWN_SUB_BUCKET"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeQueueError           = "QUEUE_ERROR"
)

// Wrap common errors with business context

func WrapAssignmentConflict(accountID string, channel string) *BusinessError {
	return NewBusinessError(
		ErrCodeAssignmentConflict,
		fmt.Sprintf("Account %s already has an active %s assignment", accountID, channel),
		ErrAssignmentConflict,
	)
}

func WrapNoVendorConfig(vendorType string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoVendorConfig,
		fmt.Sprintf("No active vendor ratio config for vendor type %s", vendorType),
		ErrNoVendorConfig,
	)
}

func WrapEligibilityViolation(accountID string) *BusinessError {
	return NewBusinessError(
		ErrCodeEligibilityViolation,
		fmt.Sprintf("Account %s has an active promise-to-pay or pending waiver and must not be mutated", accountID),
		ErrEligibilityViolation,
	)
}

func WrapAccountNotFound(accountID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAccountNotFound,
		fmt.Sprintf("Overdue account %s not found", accountID),
		ErrAccountNotFound,
	)
}

func WrapUnknownSubBucket(code string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnknownSubBucket,
		fmt.Sprintf("Sub-bucket %s is not in the catalog", code),
		ErrUnknownSubBucket,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapQueueError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeQueueError,
		"Queue operation failed",
		err,
	)
}
