// Package repository implements store.Store on top of gorm and postgres.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() store.UserRepository          { return &userRepo{db: s.db} }
func (s *Store) Patients() patient.Repository         { return &patientRepo{db: s.db} }
func (s *Store) Appointments() appointment.Repository { return &appointmentRepo{db: s.db} }
func (s *Store) Bills() billing.Repository            { return &billRepo{db: s.db} }
func (s *Store) MedicalRecords() mr.Repository        { return &recordRepo{db: s.db} }
func (s *Store) Audit() store.AuditRepository         { return &auditRepo{db: s.db} }

// Transaction runs fn inside a database transaction. Calls on a Store that
// is already transactional nest as savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// translate maps gorm errors onto the store vocabulary.
func translate(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// paged counts q, then loads the requested page of it in the given order.
func paged[T any](q *gorm.DB, p pagination.Params, order string) (*pagination.Result[*T], error) {
	p = p.Normalize()

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var items []*T
	if err := q.Session(&gorm.Session{}).Order(order).Offset(p.Offset()).Limit(p.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return pagination.NewResult(items, total, p), nil
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
