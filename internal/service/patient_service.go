package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type PatientService struct {
	store       store.Store
	auditSvc    *AuditService
	metrics     *metrics.Collector
	clock       Clock
	maxAttempts int
	log         *zap.Logger
}

func NewPatientService(
	st store.Store,
	auditSvc *AuditService,
	m *metrics.Collector,
	clock Clock,
	maxAttempts int,
	log *zap.Logger,
) *PatientService {
	return &PatientService{
		store:       st,
		auditSvc:    auditSvc,
		metrics:     m,
		clock:       clock,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// RegisterPatient stores a new patient under the next free P-number.
func (s *PatientService) RegisterPatient(ctx context.Context, actor domain.Actor, cmd *patient.RegisterPatientCommand) (_ *PatientView, err error) {
	ctx, span := startSpan(ctx, "PatientService.RegisterPatient")
	defer func() { endSpan(span, err) }()

	if err := s.validate(cmd); err != nil {
		return nil, err
	}

	var p *patient.Patient
	err = retryOnConflict(ctx, s.maxAttempts, collisionHook(s.metrics, s.log, PatientSequence), func() error {
		return s.store.Transaction(ctx, func(tx store.Store) error {
			taken, err := tx.Patients().ExistsByPhone(ctx, strings.TrimSpace(cmd.Phone), nil)
			if err != nil {
				return fmt.Errorf("checking phone uniqueness: %w", err)
			}
			if taken {
				return patient.ErrPhoneAlreadyExists
			}

			count, err := tx.Patients().Count(ctx)
			if err != nil {
				return fmt.Errorf("counting patients: %w", err)
			}
			number, err := NextIdentifier(ctx, PatientSequence, count, tx.Patients().ExistsByPatientNumber)
			if err != nil {
				return err
			}

			p = &patient.Patient{PatientNumber: number}
			p.Apply(cmd)
			return tx.Patients().Create(ctx, p)
		})
	})
	if err != nil {
		logFailure(s.log, "failed to register patient", err)
		return nil, err
	}

	s.metrics.PatientsRegisteredTotal.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		Changes:      fmt.Sprintf(`{"patient_number":%q}`, p.PatientNumber),
	})
	s.log.Info("patient registered",
		zap.String("patient_number", p.PatientNumber),
		zap.String("created_by", actor.UserID.String()),
	)

	return newPatientView(p, s.clock.Now()), nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID) (*PatientView, error) {
	p, err := s.store.Patients().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newPatientView(p, s.clock.Now()), nil
}

func (s *PatientService) GetPatientByNumber(ctx context.Context, number string) (*PatientView, error) {
	p, err := s.store.Patients().GetByPatientNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}
	return newPatientView(p, s.clock.Now()), nil
}

// UpdatePatient replaces the profile. The patient number is kept.
func (s *PatientService) UpdatePatient(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd *patient.UpdatePatientCommand) (_ *PatientView, err error) {
	ctx, span := startSpan(ctx, "PatientService.UpdatePatient",
		attribute.String("patient_id", id.String()))
	defer func() { endSpan(span, err) }()

	if err := s.validate(cmd); err != nil {
		return nil, err
	}

	var p *patient.Patient
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		p, err = tx.Patients().GetByID(ctx, id)
		if err != nil {
			return err
		}
		phone := strings.TrimSpace(cmd.Phone)
		if phone != p.Phone {
			taken, err := tx.Patients().ExistsByPhone(ctx, phone, &id)
			if err != nil {
				return fmt.Errorf("checking phone uniqueness: %w", err)
			}
			if taken {
				return patient.ErrPhoneAlreadyExists
			}
		}
		p.Apply(cmd)
		return tx.Patients().Update(ctx, p)
	})
	if err != nil {
		logFailure(s.log, "failed to update patient", err)
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})

	return newPatientView(p, s.clock.Now()), nil
}

func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery, page pagination.Params) (*pagination.Result[*PatientView], error) {
	if q == nil {
		q = &patient.ListPatientsQuery{}
	}
	q.Search = strings.TrimSpace(q.Search)

	res, err := s.store.Patients().List(ctx, q, page)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return pageOf(res, func(in []*patient.Patient) ([]*PatientView, error) {
		out := make([]*PatientView, 0, len(in))
		for _, p := range in {
			out = append(out, newPatientView(p, now))
		}
		return out, nil
	})
}

// DeletePatient removes a patient nothing refers to.
func (s *PatientService) DeletePatient(ctx context.Context, actor domain.Actor, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "PatientService.DeletePatient",
		attribute.String("patient_id", id.String()))
	defer func() { endSpan(span, err) }()

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := requirePatient(ctx, tx, id); err != nil {
			return err
		}
		referenced, err := patientReferenced(ctx, tx, id)
		if err != nil {
			return err
		}
		if referenced {
			return patient.ErrPatientReferenced
		}
		return tx.Patients().Delete(ctx, id)
	})
	if err != nil {
		logFailure(s.log, "failed to delete patient", err)
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionDelete,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})
	s.log.Info("patient deleted",
		zap.String("patient_id", id.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)

	return nil
}

func patientReferenced(ctx context.Context, st store.Store, id uuid.UUID) (bool, error) {
	counts := []func() (int64, error){
		func() (int64, error) { return st.Appointments().Count(ctx, appointment.Filter{PatientID: &id}) },
		func() (int64, error) { return st.MedicalRecords().Count(ctx, mr.Filter{PatientID: &id}) },
		func() (int64, error) { return st.Bills().Count(ctx, billing.Filter{PatientID: &id}) },
	}
	for _, count := range counts {
		n, err := count()
		if err != nil {
			return false, fmt.Errorf("checking patient references: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *PatientService) validate(cmd *patient.RegisterPatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs = append(errs, "date_of_birth is required")
	} else if cmd.DateOfBirth.After(s.clock.Now()) {
		errs = append(errs, "date_of_birth cannot be in the future")
	}
	if !cmd.Gender.IsValid() {
		errs = append(errs, "gender is invalid")
	}
	if strings.TrimSpace(cmd.Phone) == "" {
		errs = append(errs, "phone is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
