package errors

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingAlreadyExists   = errors.New("booking already exists")
	ErrPlanAlreadySelected    = errors.New("a payment plan was already selected for this booking")
	ErrNoSchedule             = errors.New("no payment schedule exists for this booking")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrInstallmentAlreadyPaid = errors.New("installment is already paid")
	ErrInstallmentCancelled   = errors.New("installment is cancelled")
	ErrPlanOptionNotAvailable = errors.New("requested plan option is not available")
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
	ErrCodeBookingNotFound        = "BOOKING_NOT_FOUND"
	ErrCodeBookingAlreadyExists   = "BOOKING_ALREADY_EXISTS"
	ErrCodePlanAlreadySelected    = "PLAN_ALREADY_SELECTED"
	ErrCodeNoSchedule             = "NO_SCHEDULE"
	ErrCodeInstallmentNotFound    = "INSTALLMENT_NOT_FOUND"
	ErrCodeInstallmentAlreadyPaid = "INSTALLMENT_ALREADY_PAID"
	ErrCodeInstallmentCancelled   = "INSTALLMENT_CANCELLED"
	ErrCodePlanOptionNotAvailable = "PLAN_OPTION_NOT_AVAILABLE"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapBookingNotFound(bookingID string) *BusinessError {
	return NewBusinessError(
		ErrCodeBookingNotFound,
		fmt.Sprintf("Booking with ID %s not found", bookingID),
		ErrBookingNotFound,
	)
}

func WrapBookingAlreadyExists(bookingID string) *BusinessError {
	return NewBusinessError(
		ErrCodeBookingAlreadyExists,
		fmt.Sprintf("Booking with ID %s already exists", bookingID),
		ErrBookingAlreadyExists,
	)
}

func WrapPlanAlreadySelected(bookingID string) *BusinessError {
	return NewBusinessError(
		ErrCodePlanAlreadySelected,
		fmt.Sprintf("Booking %s already has a payment schedule", bookingID),
		ErrPlanAlreadySelected,
	)
}

func WrapNoSchedule(bookingID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoSchedule,
		fmt.Sprintf("Booking %s has no payment schedule yet", bookingID),
		ErrNoSchedule,
	)
}

func WrapInstallmentNotFound(bookingID string, sequence int) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment %d of booking %s not found", sequence, bookingID),
		ErrInstallmentNotFound,
	)
}

func WrapInstallmentAlreadyPaid(sequence int, paidAt time.Time) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentAlreadyPaid,
		fmt.Sprintf("Installment %d was settled on %s and cannot be modified", sequence, paidAt.Format("2006-01-02")),
		ErrInstallmentAlreadyPaid,
	)
}

func WrapPlanOptionNotAvailable(installmentCount int) *BusinessError {
	return NewBusinessError(
		ErrCodePlanOptionNotAvailable,
		fmt.Sprintf("No valid plan with %d installment(s) is available for this booking", installmentCount),
		ErrPlanOptionNotAvailable,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
