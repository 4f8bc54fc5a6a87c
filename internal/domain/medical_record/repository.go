package medical_record

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error

	// ListByPatient returns every record of the patient, newest visit first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)

	// List returns a page ordered by VisitDate descending.
	List(ctx context.Context, f Filter, page pagination.Params) (*pagination.Result[*MedicalRecord], error)
	Count(ctx context.Context, f Filter) (int64, error)
}
