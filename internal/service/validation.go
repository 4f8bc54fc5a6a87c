package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/google/uuid"
)

// requirePatient loads the patient or fails with patient.ErrPatientNotFound.
func requirePatient(ctx context.Context, st store.Store, id uuid.UUID) (*patient.Patient, error) {
	return st.Patients().GetByID(ctx, id)
}

// requireDoctor loads the user and checks it holds the DOCTOR role. notDoctor
// is the error returned when it does not, so each caller keeps its own wording.
func requireDoctor(ctx context.Context, st store.Store, id uuid.UUID, notDoctor error) (*domain.User, error) {
	u, err := st.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsDoctor() {
		return nil, notDoctor
	}
	return u, nil
}
