package patient

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns store.ErrConflict on a duplicate patient number.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByPatientNumber retrieves a patient by the externally visible identifier.
	GetByPatientNumber(ctx context.Context, number string) (*Patient, error)

	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByPatientNumber(ctx context.Context, number string) (bool, error)

	// ExistsByPhone checks phone uniqueness without fetching the full record.
	ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error)

	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)

	// List returns a paginated list, newest first, optionally filtered by Search.
	List(ctx context.Context, q *ListPatientsQuery, page pagination.Params) (*pagination.Result[*Patient], error)
}
