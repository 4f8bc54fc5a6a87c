package patient

import "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"

var (
	ErrPatientNotFound    = domain.NewError(domain.ErrNotFound, "patient not found")
	ErrPhoneAlreadyExists = domain.NewError(domain.ErrInvalidInput, "patient with this phone number already exists")
	ErrPatientReferenced  = domain.NewError(domain.ErrInvalidState, "cannot delete patient with existing appointments, medical records or bills")
	ErrInvalidGender      = domain.NewError(domain.ErrInvalidInput, "invalid gender value")
)
