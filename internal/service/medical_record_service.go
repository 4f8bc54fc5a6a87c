package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type MedicalRecordService struct {
	store    store.Store
	auditSvc *AuditService
	metrics  *metrics.Collector
	clock    Clock
	log      *zap.Logger
}

func NewMedicalRecordService(
	st store.Store,
	auditSvc *AuditService,
	m *metrics.Collector,
	clock Clock,
	log *zap.Logger,
) *MedicalRecordService {
	return &MedicalRecordService{store: st, auditSvc: auditSvc, metrics: m, clock: clock, log: log}
}

// AddRecord stores a clinical entry. A linked appointment must be COMPLETED
// and belong to the same patient.
func (s *MedicalRecordService) AddRecord(ctx context.Context, actor domain.Actor, cmd *mr.CreateRecordCommand) (_ *MedicalRecordView, err error) {
	ctx, span := startSpan(ctx, "MedicalRecordService.AddRecord",
		attribute.String("patient_id", cmd.PatientID.String()))
	defer func() { endSpan(span, err) }()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	fields := cmd.ClinicalFields
	if fields.VisitDate.IsZero() {
		fields.VisitDate = s.clock.Now()
	}

	var (
		rec  *mr.MedicalRecord
		view *MedicalRecordView
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := requirePatient(ctx, tx, cmd.PatientID); err != nil {
			return err
		}
		if _, err := requireDoctor(ctx, tx, cmd.DoctorID, domain.ErrNotADoctor); err != nil {
			return err
		}
		if cmd.AppointmentID != nil {
			a, err := tx.Appointments().GetByID(ctx, *cmd.AppointmentID)
			if err != nil {
				return err
			}
			if a.Status != appointment.StatusCompleted {
				return mr.ErrAppointmentNotComplete
			}
			if a.PatientID != cmd.PatientID {
				return mr.ErrAppointmentMismatch
			}
		}

		rec = &mr.MedicalRecord{
			PatientID:     cmd.PatientID,
			DoctorID:      cmd.DoctorID,
			AppointmentID: cmd.AppointmentID,
		}
		rec.ApplyClinical(fields)
		if err := tx.MedicalRecords().Create(ctx, rec); err != nil {
			return err
		}

		var err error
		view, err = newViewer(tx).record(ctx, rec)
		return err
	})
	if err != nil {
		logFailure(s.log, "failed to add medical record", err)
		return nil, err
	}

	s.metrics.MedicalRecordsCreated.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "medical_record",
		ResourceID:   rec.ID.String(),
	})
	s.log.Info("medical record added",
		zap.String("record_id", rec.ID.String()),
		zap.String("patient_id", rec.PatientID.String()),
	)

	return view, nil
}

// UpdateRecord replaces the clinical fields. Patient, doctor and appointment
// links never change.
func (s *MedicalRecordService) UpdateRecord(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd *mr.UpdateRecordCommand) (_ *MedicalRecordView, err error) {
	ctx, span := startSpan(ctx, "MedicalRecordService.UpdateRecord",
		attribute.String("record_id", id.String()))
	defer func() { endSpan(span, err) }()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	fields := cmd.ClinicalFields

	var view *MedicalRecordView
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		rec, err := tx.MedicalRecords().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if fields.VisitDate.IsZero() {
			fields.VisitDate = rec.VisitDate
		}
		rec.ApplyClinical(fields)
		if err := tx.MedicalRecords().Update(ctx, rec); err != nil {
			return err
		}
		view, err = newViewer(tx).record(ctx, rec)
		return err
	})
	if err != nil {
		logFailure(s.log, "failed to update medical record", err)
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_record",
		ResourceID:   id.String(),
	})

	return view, nil
}

// PatientHistory returns the patient's records, newest visit first.
func (s *MedicalRecordService) PatientHistory(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecordView, error) {
	if _, err := requirePatient(ctx, s.store, patientID); err != nil {
		return nil, err
	}
	recs, err := s.store.MedicalRecords().ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return newViewer(s.store).records(ctx, recs)
}

func (s *MedicalRecordService) GetRecord(ctx context.Context, id uuid.UUID) (*MedicalRecordView, error) {
	rec, err := s.store.MedicalRecords().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newViewer(s.store).record(ctx, rec)
}

func (s *MedicalRecordService) ListRecords(ctx context.Context, page pagination.Params) (*pagination.Result[*MedicalRecordView], error) {
	return s.list(ctx, mr.Filter{}, page)
}

func (s *MedicalRecordService) ListByDoctor(ctx context.Context, doctorID uuid.UUID, page pagination.Params) (*pagination.Result[*MedicalRecordView], error) {
	if _, err := requireDoctor(ctx, s.store, doctorID, domain.ErrUserNotDoctor); err != nil {
		return nil, err
	}
	return s.list(ctx, mr.Filter{DoctorID: &doctorID}, page)
}

func (s *MedicalRecordService) list(ctx context.Context, f mr.Filter, page pagination.Params) (*pagination.Result[*MedicalRecordView], error) {
	res, err := s.store.MedicalRecords().List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	v := newViewer(s.store)
	return pageOf(res, func(in []*mr.MedicalRecord) ([]*MedicalRecordView, error) {
		return v.records(ctx, in)
	})
}
