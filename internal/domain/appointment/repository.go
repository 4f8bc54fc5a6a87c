package appointment

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// GetByIDForUpdate loads the appointment and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)

	Update(ctx context.Context, a *Appointment) error

	// List returns a page ordered by ScheduledAt (descending unless Filter.Ascending).
	List(ctx context.Context, f Filter, page pagination.Params) (*pagination.Result[*Appointment], error)

	// ListAll is the unpaged variant of List.
	ListAll(ctx context.Context, f Filter) ([]*Appointment, error)

	Count(ctx context.Context, f Filter) (int64, error)
}
