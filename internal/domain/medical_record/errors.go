package medical_record

import "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"

var (
	ErrRecordNotFound         = domain.NewError(domain.ErrNotFound, "medical record not found")
	ErrAppointmentNotComplete = domain.NewError(domain.ErrInvalidState, "medical records can only be added for completed appointments")
	ErrAppointmentMismatch    = domain.NewError(domain.ErrInvalidReference, "appointment does not belong to the specified patient")
	ErrDiagnosisRequired      = domain.NewError(domain.ErrInvalidInput, "diagnosis is required")
)
