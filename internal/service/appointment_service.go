package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AppointmentService struct {
	store    store.Store
	auditSvc *AuditService
	metrics  *metrics.Collector
	clock    Clock
	log      *zap.Logger
}

func NewAppointmentService(
	st store.Store,
	auditSvc *AuditService,
	m *metrics.Collector,
	clock Clock,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{store: st, auditSvc: auditSvc, metrics: m, clock: clock, log: log}
}

// ScheduleAppointment books a SCHEDULED appointment. Slot conflicts are not
// checked; the caller guarantees ScheduledAt lies in the future.
func (s *AppointmentService) ScheduleAppointment(ctx context.Context, actor domain.Actor, cmd *appointment.ScheduleAppointmentCommand) (_ *AppointmentView, err error) {
	ctx, span := startSpan(ctx, "AppointmentService.ScheduleAppointment",
		attribute.String("patient_id", cmd.PatientID.String()),
		attribute.String("doctor_id", cmd.DoctorID.String()))
	defer func() { endSpan(span, err) }()

	var (
		a    *appointment.Appointment
		view *AppointmentView
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := requirePatient(ctx, tx, cmd.PatientID); err != nil {
			return err
		}
		if _, err := requireDoctor(ctx, tx, cmd.DoctorID, domain.ErrNotADoctor); err != nil {
			return err
		}

		a = &appointment.Appointment{
			PatientID:   cmd.PatientID,
			DoctorID:    cmd.DoctorID,
			ScheduledAt: cmd.ScheduledAt,
			Status:      appointment.StatusScheduled,
			Reason:      cmd.Reason,
			Notes:       cmd.Notes,
			CreatedBy:   actor.UserID,
		}
		if err := tx.Appointments().Create(ctx, a); err != nil {
			return err
		}

		var err error
		view, err = newViewer(tx).appointment(ctx, a)
		return err
	})
	if err != nil {
		logFailure(s.log, "failed to schedule appointment", err)
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
	})
	s.log.Info("appointment scheduled",
		zap.String("appointment_id", a.ID.String()),
		zap.String("doctor_id", a.DoctorID.String()),
		zap.Time("scheduled_at", a.ScheduledAt),
	)

	return view, nil
}

// UpdateStatus moves a SCHEDULED appointment to any status. COMPLETED and
// CANCELLED appointments reject every update.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd *appointment.UpdateStatusCommand) (_ *AppointmentView, err error) {
	ctx, span := startSpan(ctx, "AppointmentService.UpdateStatus",
		attribute.String("appointment_id", id.String()),
		attribute.String("status", string(cmd.Status)))
	defer func() { endSpan(span, err) }()

	var (
		from appointment.AppointmentStatus
		view *AppointmentView
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		a, err := tx.Appointments().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = a.Status
		if err := a.UpdateStatus(cmd.Status, cmd.Notes); err != nil {
			return err
		}
		if err := tx.Appointments().Update(ctx, a); err != nil {
			return err
		}
		view, err = newViewer(tx).appointment(ctx, a)
		return err
	})
	if err != nil {
		logFailure(s.log, "failed to update appointment status", err)
		return nil, err
	}

	s.metrics.AppointmentTransitions.WithLabelValues(string(cmd.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		Changes:      fmt.Sprintf(`{"status":{"from":%q,"to":%q}}`, from, cmd.Status),
	})

	return view, nil
}

func (s *AppointmentService) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentView, error) {
	a, err := s.store.Appointments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newViewer(s.store).appointment(ctx, a)
}

func (s *AppointmentService) ListAppointments(ctx context.Context, page pagination.Params) (*pagination.Result[*AppointmentView], error) {
	return s.list(ctx, appointment.Filter{}, page)
}

// ListByDate returns appointments scheduled on date's calendar day.
func (s *AppointmentService) ListByDate(ctx context.Context, date time.Time, page pagination.Params) (*pagination.Result[*AppointmentView], error) {
	from, to := dayBounds(calendarDay(date, s.clock.Now().Location()))
	return s.list(ctx, appointment.Filter{From: &from, To: &to, Ascending: true}, page)
}

// ListToday returns today's appointments in schedule order, unpaged.
func (s *AppointmentService) ListToday(ctx context.Context) ([]*AppointmentView, error) {
	from, to := dayBounds(s.clock.Now())
	return s.listAll(ctx, appointment.Filter{From: &from, To: &to, Ascending: true})
}

func (s *AppointmentService) ListTodayByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AppointmentView, error) {
	if _, err := requireDoctor(ctx, s.store, doctorID, domain.ErrUserNotDoctor); err != nil {
		return nil, err
	}
	from, to := dayBounds(s.clock.Now())
	return s.listAll(ctx, appointment.Filter{DoctorID: &doctorID, From: &from, To: &to, Ascending: true})
}

func (s *AppointmentService) ListByDoctor(ctx context.Context, doctorID uuid.UUID, page pagination.Params) (*pagination.Result[*AppointmentView], error) {
	if _, err := requireDoctor(ctx, s.store, doctorID, domain.ErrUserNotDoctor); err != nil {
		return nil, err
	}
	return s.list(ctx, appointment.Filter{DoctorID: &doctorID}, page)
}

func (s *AppointmentService) ListByPatient(ctx context.Context, patientID uuid.UUID, page pagination.Params) (*pagination.Result[*AppointmentView], error) {
	if _, err := requirePatient(ctx, s.store, patientID); err != nil {
		return nil, err
	}
	return s.list(ctx, appointment.Filter{PatientID: &patientID}, page)
}

func (s *AppointmentService) ListByStatus(ctx context.Context, status appointment.AppointmentStatus, page pagination.Params) (*pagination.Result[*AppointmentView], error) {
	if !status.IsValid() {
		return nil, appointment.ErrInvalidStatus
	}
	return s.list(ctx, appointment.Filter{Status: &status}, page)
}

func (s *AppointmentService) list(ctx context.Context, f appointment.Filter, page pagination.Params) (*pagination.Result[*AppointmentView], error) {
	res, err := s.store.Appointments().List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	v := newViewer(s.store)
	return pageOf(res, func(in []*appointment.Appointment) ([]*AppointmentView, error) {
		return v.appointments(ctx, in)
	})
}

func (s *AppointmentService) listAll(ctx context.Context, f appointment.Filter) ([]*AppointmentView, error) {
	all, err := s.store.Appointments().ListAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return newViewer(s.store).appointments(ctx, all)
}
