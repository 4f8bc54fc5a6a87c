package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReportingService computes read-only dashboards. Each figure is an
// independent store query; they run concurrently and the first failure
// cancels the rest.
type ReportingService struct {
	store store.Store
	clock Clock
	log   *zap.Logger
}

func NewReportingService(st store.Store, clock Clock, log *zap.Logger) *ReportingService {
	return &ReportingService{store: st, clock: clock, log: log}
}

type StaffCounts struct {
	Admins  int64 `json:"admins"`
	Doctors int64 `json:"doctors"`
	Nurses  int64 `json:"nurses"`
	Billing int64 `json:"billing"`
}

type AdminDashboard struct {
	TotalPatients         int64       `json:"total_patients"`
	TodayAppointments     int64       `json:"today_appointments"`
	ScheduledAppointments int64       `json:"scheduled_appointments"`
	CompletedAppointments int64       `json:"completed_appointments"`
	CancelledAppointments int64       `json:"cancelled_appointments"`
	PendingBills          int64       `json:"pending_bills"`
	TotalRevenue          string      `json:"total_revenue"`
	OutstandingAmount     string      `json:"outstanding_amount"`
	ActiveStaff           StaffCounts `json:"active_staff"`
}

type DoctorDashboard struct {
	DoctorID              uuid.UUID `json:"doctor_id"`
	DoctorName            string    `json:"doctor_name"`
	TodayAppointments     int64     `json:"today_appointments"`
	UpcomingAppointments  int64     `json:"upcoming_appointments"`
	CompletedAppointments int64     `json:"completed_appointments"`
	TotalAppointments     int64     `json:"total_appointments"`
	MedicalRecords        int64     `json:"medical_records"`
}

type BillingDashboard struct {
	TotalBills        int64  `json:"total_bills"`
	PendingBills      int64  `json:"pending_bills"`
	PartialBills      int64  `json:"partial_bills"`
	PaidBills         int64  `json:"paid_bills"`
	TotalRevenue      string `json:"total_revenue"`
	OutstandingAmount string `json:"outstanding_amount"`
	RevenueToday      string `json:"revenue_today"`
	RevenueThisMonth  string `json:"revenue_this_month"`
}

func (s *ReportingService) AdminDashboard(ctx context.Context) (_ *AdminDashboard, err error) {
	ctx, span := startSpan(ctx, "ReportingService.AdminDashboard")
	defer func() { endSpan(span, err) }()

	var (
		d                  AdminDashboard
		revenue, outstand  decimal.Decimal
		dayStart, dayEnd   = dayBounds(s.clock.Now())
		scheduled, done    = appointment.StatusScheduled, appointment.StatusCompleted
		cancelled          = appointment.StatusCancelled
		appts, bills, user = s.store.Appointments(), s.store.Bills(), s.store.Users()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.TotalPatients, err = s.store.Patients().Count(gctx); return })
	g.Go(func() (err error) {
		d.TodayAppointments, err = appts.Count(gctx, appointment.Filter{From: &dayStart, To: &dayEnd})
		return
	})
	g.Go(func() (err error) {
		d.ScheduledAppointments, err = appts.Count(gctx, appointment.Filter{Status: &scheduled})
		return
	})
	g.Go(func() (err error) {
		d.CompletedAppointments, err = appts.Count(gctx, appointment.Filter{Status: &done})
		return
	})
	g.Go(func() (err error) {
		d.CancelledAppointments, err = appts.Count(gctx, appointment.Filter{Status: &cancelled})
		return
	})
	g.Go(func() (err error) {
		d.PendingBills, err = bills.Count(gctx, billing.Filter{Statuses: billing.UnpaidStatuses})
		return
	})
	g.Go(func() (err error) { revenue, err = bills.SumPaid(gctx, billing.Filter{}); return })
	g.Go(func() (err error) {
		outstand, err = bills.SumOutstanding(gctx, billing.Filter{Statuses: billing.UnpaidStatuses})
		return
	})
	g.Go(func() (err error) { d.ActiveStaff.Admins, err = user.CountActiveByRole(gctx, domain.RoleAdmin); return })
	g.Go(func() (err error) {
		d.ActiveStaff.Doctors, err = user.CountActiveByRole(gctx, domain.RoleDoctor)
		return
	})
	g.Go(func() (err error) { d.ActiveStaff.Nurses, err = user.CountActiveByRole(gctx, domain.RoleNurse); return })
	g.Go(func() (err error) {
		d.ActiveStaff.Billing, err = user.CountActiveByRole(gctx, domain.RoleBilling)
		return
	})

	if err = g.Wait(); err != nil {
		s.log.Error("failed to build admin dashboard", zap.Error(err))
		return nil, err
	}

	d.TotalRevenue = billing.FormatAmount(revenue)
	d.OutstandingAmount = billing.FormatAmount(outstand)
	return &d, nil
}

// DoctorDashboard fails with domain.ErrUserNotDoctor when doctorID is not a
// DOCTOR.
func (s *ReportingService) DoctorDashboard(ctx context.Context, doctorID uuid.UUID) (*DoctorDashboard, error) {
	return s.doctorDashboard(ctx, doctorID, domain.ErrUserNotDoctor)
}

// MyDoctorDashboard is DoctorDashboard for the acting user.
func (s *ReportingService) MyDoctorDashboard(ctx context.Context, actor domain.Actor) (*DoctorDashboard, error) {
	return s.doctorDashboard(ctx, actor.UserID, domain.ErrActorNotDoctor)
}

func (s *ReportingService) doctorDashboard(ctx context.Context, doctorID uuid.UUID, notDoctor error) (_ *DoctorDashboard, err error) {
	ctx, span := startSpan(ctx, "ReportingService.DoctorDashboard",
		attribute.String("doctor_id", doctorID.String()))
	defer func() { endSpan(span, err) }()

	doctor, err := requireDoctor(ctx, s.store, doctorID, notDoctor)
	if err != nil {
		return nil, err
	}

	var (
		d                = DoctorDashboard{DoctorID: doctor.ID, DoctorName: doctor.FullName}
		dayStart, dayEnd = dayBounds(s.clock.Now())
		scheduled, done  = appointment.StatusScheduled, appointment.StatusCompleted
		appts            = s.store.Appointments()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TodayAppointments, err = appts.Count(gctx, appointment.Filter{DoctorID: &doctorID, From: &dayStart, To: &dayEnd})
		return
	})
	g.Go(func() (err error) {
		d.UpcomingAppointments, err = appts.Count(gctx, appointment.Filter{DoctorID: &doctorID, Status: &scheduled})
		return
	})
	g.Go(func() (err error) {
		d.CompletedAppointments, err = appts.Count(gctx, appointment.Filter{DoctorID: &doctorID, Status: &done})
		return
	})
	g.Go(func() (err error) {
		d.TotalAppointments, err = appts.Count(gctx, appointment.Filter{DoctorID: &doctorID})
		return
	})
	g.Go(func() (err error) {
		d.MedicalRecords, err = s.store.MedicalRecords().Count(gctx, mr.Filter{DoctorID: &doctorID})
		return
	})

	if err = g.Wait(); err != nil {
		s.log.Error("failed to build doctor dashboard", zap.Error(err))
		return nil, err
	}
	return &d, nil
}

func (s *ReportingService) BillingDashboard(ctx context.Context) (_ *BillingDashboard, err error) {
	ctx, span := startSpan(ctx, "ReportingService.BillingDashboard")
	defer func() { endSpan(span, err) }()

	now := s.clock.Now()
	dayStart, dayEnd := dayBounds(now)
	monthStart, monthEnd := monthBounds(now.Year(), now.Month(), now.Location())

	var (
		d                                   BillingDashboard
		revenue, outstand, today, thisMonth decimal.Decimal
		bills                               = s.store.Bills()
	)
	g, gctx := errgroup.WithContext(ctx)
	countStatus := func(dst *int64, status billing.PaymentStatus) func() error {
		return func() (err error) {
			*dst, err = bills.Count(gctx, billing.Filter{Statuses: []billing.PaymentStatus{status}})
			return
		}
	}
	g.Go(func() (err error) { d.TotalBills, err = bills.Count(gctx, billing.Filter{}); return })
	g.Go(countStatus(&d.PendingBills, billing.StatusPending))
	g.Go(countStatus(&d.PartialBills, billing.StatusPartial))
	g.Go(countStatus(&d.PaidBills, billing.StatusPaid))
	g.Go(func() (err error) { revenue, err = bills.SumPaid(gctx, billing.Filter{}); return })
	g.Go(func() (err error) {
		outstand, err = bills.SumOutstanding(gctx, billing.Filter{Statuses: billing.UnpaidStatuses})
		return
	})
	g.Go(func() (err error) {
		today, err = bills.SumPaid(gctx, billing.Filter{BillDateFrom: &dayStart, BillDateTo: &dayEnd})
		return
	})
	g.Go(func() (err error) {
		thisMonth, err = bills.SumPaid(gctx, billing.Filter{BillDateFrom: &monthStart, BillDateTo: &monthEnd})
		return
	})

	if err = g.Wait(); err != nil {
		s.log.Error("failed to build billing dashboard", zap.Error(err))
		return nil, err
	}

	d.TotalRevenue = billing.FormatAmount(revenue)
	d.OutstandingAmount = billing.FormatAmount(outstand)
	d.RevenueToday = billing.FormatAmount(today)
	d.RevenueThisMonth = billing.FormatAmount(thisMonth)
	return &d, nil
}
