// Package memstore provides an in-memory transactional implementation of
// store.Store. Transactions are serialized and commit by swapping in a
// copy of the state, so a failed transaction leaves no trace.
package memstore

import (
	"context"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/google/uuid"
)

type state struct {
	users        map[uuid.UUID]domain.User
	patients     map[uuid.UUID]patient.Patient
	appointments map[uuid.UUID]appointment.Appointment
	bills        map[uuid.UUID]billing.Bill
	records      map[uuid.UUID]mr.MedicalRecord
	audit        []domain.AuditLog
}

func newState() *state {
	return &state{
		users:        map[uuid.UUID]domain.User{},
		patients:     map[uuid.UUID]patient.Patient{},
		appointments: map[uuid.UUID]appointment.Appointment{},
		bills:        map[uuid.UUID]billing.Bill{},
		records:      map[uuid.UUID]mr.MedicalRecord{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:        make(map[uuid.UUID]domain.User, len(s.users)),
		patients:     make(map[uuid.UUID]patient.Patient, len(s.patients)),
		appointments: make(map[uuid.UUID]appointment.Appointment, len(s.appointments)),
		bills:        make(map[uuid.UUID]billing.Bill, len(s.bills)),
		records:      make(map[uuid.UUID]mr.MedicalRecord, len(s.records)),
		audit:        append([]domain.AuditLog(nil), s.audit...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.bills {
		c.bills[k] = copyBill(v)
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex
	data *state
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		mu:   &sync.RWMutex{},
		txMu: &sync.Mutex{},
		data: newState(),
	}
}

func (s *Store) Users() store.UserRepository          { return &userRepo{s: s} }
func (s *Store) Patients() patient.Repository         { return &patientRepo{s: s} }
func (s *Store) Appointments() appointment.Repository { return &appointmentRepo{s: s} }
func (s *Store) Bills() billing.Repository            { return &billRepo{s: s} }
func (s *Store) MedicalRecords() mr.Repository        { return &recordRepo{s: s} }
func (s *Store) Audit() store.AuditRepository         { return &auditRepo{s: s} }

// Transaction serializes writers: fn sees a private copy of the state that
// replaces the shared state only when fn succeeds.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.data.clone()
	s.mu.RUnlock()

	tx := &Store{mu: &sync.RWMutex{}, txMu: s.txMu, data: working, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = working
	s.mu.Unlock()
	return nil
}

// AuditEntries returns a copy of every persisted audit entry.
func (s *Store) AuditEntries() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditLog(nil), s.data.audit...)
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// write outside a transaction still takes txMu so a concurrent commit cannot
// overwrite it.
func (s *Store) write(fn func(d *state) error) error {
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func copyBill(b billing.Bill) billing.Bill {
	b.Items = append([]billing.LineItem(nil), b.Items...)
	if b.AppointmentID != nil {
		id := *b.AppointmentID
		b.AppointmentID = &id
	}
	if b.PaymentDate != nil {
		t := *b.PaymentDate
		b.PaymentDate = &t
	}
	return b
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
