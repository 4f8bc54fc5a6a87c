package appointment

import "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"

var (
	ErrAppointmentNotFound  = domain.NewError(domain.ErrNotFound, "appointment not found")
	ErrAppointmentCompleted = domain.NewError(domain.ErrInvalidState, "cannot modify completed appointment")
	ErrAppointmentCancelled = domain.NewError(domain.ErrInvalidState, "cannot modify cancelled appointment")
	ErrInvalidStatus        = domain.NewError(domain.ErrInvalidInput, "invalid appointment status")
	ErrScheduledInPast      = domain.NewError(domain.ErrInvalidInput, "appointment date must be in the future")
)
