package billing

import "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"

var (
	ErrBillNotFound         = domain.NewError(domain.ErrNotFound, "bill not found")
	ErrNoItems              = domain.NewError(domain.ErrInvalidInput, "at least one bill item is required")
	ErrNonPositiveAmount    = domain.NewError(domain.ErrInvalidInput, "item amount must be positive")
	ErrNonPositivePayment   = domain.NewError(domain.ErrInvalidInput, "payment amount must be positive")
	ErrAmountPrecision      = domain.NewError(domain.ErrInvalidInput, "amounts are limited to 2 decimal places")
	ErrOverpayment          = domain.NewError(domain.ErrInvalidInput, "payment amount cannot exceed outstanding amount")
	ErrAppointmentMismatch  = domain.NewError(domain.ErrInvalidReference, "appointment does not belong to the specified patient")
	ErrInvalidPaymentStatus = domain.NewError(domain.ErrInvalidInput, "invalid payment status")
	ErrInvalidRevenuePeriod = domain.NewError(domain.ErrInvalidInput, "invalid revenue period")
)
