// Package store declares the persistence boundary of the rule core. Services
// depend only on these interfaces; internal/repository backs them with
// postgres and internal/store/memstore with process memory.
package store

import (
	"context"
	"errors"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/google/uuid"
)

// ErrConflict reports a unique-constraint violation on persist.
var ErrConflict = errors.New("unique constraint violation")

type UserRepository interface {
	// Create returns ErrConflict on a duplicate username or email.
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	CountActiveByRole(ctx context.Context, role domain.Role) (int64, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

type Store interface {
	Users() UserRepository
	Patients() patient.Repository
	Appointments() appointment.Repository
	Bills() billing.Repository
	MedicalRecords() mr.Repository
	Audit() AuditRepository

	// Transaction runs fn against a transactional view of the store. If fn
	// returns an error nothing it wrote is persisted.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
