package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type BillingService struct {
	store       store.Store
	auditSvc    *AuditService
	metrics     *metrics.Collector
	clock       Clock
	maxAttempts int
	log         *zap.Logger
}

func NewBillingService(
	st store.Store,
	auditSvc *AuditService,
	m *metrics.Collector,
	clock Clock,
	maxAttempts int,
	log *zap.Logger,
) *BillingService {
	return &BillingService{
		store:       st,
		auditSvc:    auditSvc,
		metrics:     m,
		clock:       clock,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// RevenueStats are ledger totals read from the persisted per-bill amounts.
type RevenueStats struct {
	TotalRevenue      string `json:"total_revenue"`
	OutstandingAmount string `json:"outstanding_amount"`
}

type DailyRevenueView struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}

// GenerateBill creates a PENDING bill whose number is allocated in the same
// transaction as the insert.
func (s *BillingService) GenerateBill(ctx context.Context, actor domain.Actor, cmd *billing.GenerateBillCommand) (_ *BillView, err error) {
	ctx, span := startSpan(ctx, "BillingService.GenerateBill",
		attribute.String("patient_id", cmd.PatientID.String()))
	defer func() { endSpan(span, err) }()

	billDate := cmd.BillDate
	if billDate.IsZero() {
		billDate = s.clock.Now()
	}

	var (
		created *billing.Bill
		view    *BillView
	)
	err = retryOnConflict(ctx, s.maxAttempts, collisionHook(s.metrics, s.log, BillSequence), func() error {
		return s.store.Transaction(ctx, func(tx store.Store) error {
			if _, err := requirePatient(ctx, tx, cmd.PatientID); err != nil {
				return err
			}
			if cmd.AppointmentID != nil {
				a, err := tx.Appointments().GetByID(ctx, *cmd.AppointmentID)
				if err != nil {
					return err
				}
				if a.PatientID != cmd.PatientID {
					return billing.ErrAppointmentMismatch
				}
			}

			if _, err := billing.TotalOf(cmd.Items); err != nil {
				return err
			}

			count, err := tx.Bills().Count(ctx, billing.Filter{})
			if err != nil {
				return fmt.Errorf("counting bills: %w", err)
			}
			number, err := NextIdentifier(ctx, BillSequence, count, tx.Bills().ExistsByBillNumber)
			if err != nil {
				return err
			}

			b, err := billing.NewBill(number, cmd.PatientID, cmd.AppointmentID, cmd.Items, billDate, actor.UserID)
			if err != nil {
				return err
			}
			if err := tx.Bills().Create(ctx, b); err != nil {
				return err
			}

			created = b
			view, err = newViewer(tx).bill(ctx, b)
			return err
		})
	})
	if err != nil {
		logFailure(s.log, "failed to generate bill", err)
		return nil, err
	}

	s.metrics.BillsGeneratedTotal.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "bill",
		ResourceID:   created.ID.String(),
		Changes:      fmt.Sprintf(`{"bill_number":%q,"total_amount":%q}`, created.BillNumber, billing.FormatAmount(created.TotalAmount)),
	})
	s.log.Info("bill generated",
		zap.String("bill_number", created.BillNumber),
		zap.String("patient_id", created.PatientID.String()),
		zap.String("total_amount", billing.FormatAmount(created.TotalAmount)),
	)

	return view, nil
}

// ProcessPayment applies a payment under a row lock. A rejected payment
// leaves the bill untouched.
func (s *BillingService) ProcessPayment(ctx context.Context, actor domain.Actor, billID uuid.UUID, cmd *billing.PaymentCommand) (_ *BillView, err error) {
	ctx, span := startSpan(ctx, "BillingService.ProcessPayment",
		attribute.String("bill_id", billID.String()))
	defer func() { endSpan(span, err) }()

	paidAt := cmd.PaymentDate
	if paidAt.IsZero() {
		paidAt = s.clock.Now()
	}

	var (
		updated *billing.Bill
		view    *BillView
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		b, err := tx.Bills().GetByIDForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if err := b.ApplyPayment(cmd.Amount, paidAt); err != nil {
			return err
		}
		if err := tx.Bills().Update(ctx, b); err != nil {
			return err
		}
		updated = b
		view, err = newViewer(tx).bill(ctx, b)
		return err
	})
	if err != nil {
		logFailure(s.log, "failed to process payment", err)
		return nil, err
	}

	s.metrics.PaymentsTotal.WithLabelValues(string(updated.PaymentStatus)).Inc()
	metrics.ObserveAmount(s.metrics.AmountCollectedTotal, cmd.Amount)
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "bill",
		ResourceID:   updated.ID.String(),
		Changes: fmt.Sprintf(`{"payment":%q,"paid_amount":%q,"payment_status":%q}`,
			billing.FormatAmount(cmd.Amount), billing.FormatAmount(updated.PaidAmount), updated.PaymentStatus),
	})
	s.log.Info("payment processed",
		zap.String("bill_number", updated.BillNumber),
		zap.String("amount", billing.FormatAmount(cmd.Amount)),
		zap.String("payment_status", string(updated.PaymentStatus)),
	)

	return view, nil
}

func (s *BillingService) GetBill(ctx context.Context, id uuid.UUID) (*BillView, error) {
	b, err := s.store.Bills().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newViewer(s.store).bill(ctx, b)
}

func (s *BillingService) GetBillByNumber(ctx context.Context, number string) (*BillView, error) {
	b, err := s.store.Bills().GetByBillNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}
	return newViewer(s.store).bill(ctx, b)
}

func (s *BillingService) ListBills(ctx context.Context, page pagination.Params) (*pagination.Result[*BillView], error) {
	return s.list(ctx, billing.Filter{}, page)
}

func (s *BillingService) ListBillsByPatient(ctx context.Context, patientID uuid.UUID, page pagination.Params) (*pagination.Result[*BillView], error) {
	if _, err := requirePatient(ctx, s.store, patientID); err != nil {
		return nil, err
	}
	return s.list(ctx, billing.Filter{PatientID: &patientID}, page)
}

func (s *BillingService) ListBillsByStatus(ctx context.Context, status billing.PaymentStatus, page pagination.Params) (*pagination.Result[*BillView], error) {
	if !status.IsValid() {
		return nil, billing.ErrInvalidPaymentStatus
	}
	return s.list(ctx, billing.Filter{Statuses: []billing.PaymentStatus{status}}, page)
}

// ListUnpaid returns every PENDING or PARTIAL bill, unpaged.
func (s *BillingService) ListUnpaid(ctx context.Context) ([]*BillView, error) {
	bills, err := s.store.Bills().ListAll(ctx, billing.Filter{Statuses: billing.UnpaidStatuses})
	if err != nil {
		return nil, err
	}
	return newViewer(s.store).bills(ctx, bills)
}

func (s *BillingService) list(ctx context.Context, f billing.Filter, page pagination.Params) (*pagination.Result[*BillView], error) {
	res, err := s.store.Bills().List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	v := newViewer(s.store)
	return pageOf(res, func(in []*billing.Bill) ([]*BillView, error) { return v.bills(ctx, in) })
}

// TotalRevenue is the sum of PaidAmount over every bill.
func (s *BillingService) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	return s.store.Bills().SumPaid(ctx, billing.Filter{})
}

// OutstandingAmount is the sum of OutstandingAmount over PENDING and PARTIAL bills.
func (s *BillingService) OutstandingAmount(ctx context.Context) (decimal.Decimal, error) {
	return s.store.Bills().SumOutstanding(ctx, billing.Filter{Statuses: billing.UnpaidStatuses})
}

// RevenueBetween sums PaidAmount of bills dated within [from, to].
func (s *BillingService) RevenueBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	if to.Before(from) {
		return decimal.Zero, billing.ErrInvalidRevenuePeriod
	}
	return s.store.Bills().SumPaid(ctx, billing.Filter{BillDateFrom: &from, BillDateTo: &to})
}

func (s *BillingService) RevenueStats(ctx context.Context) (*RevenueStats, error) {
	total, err := s.TotalRevenue(ctx)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.OutstandingAmount(ctx)
	if err != nil {
		return nil, err
	}
	return &RevenueStats{
		TotalRevenue:      billing.FormatAmount(total),
		OutstandingAmount: billing.FormatAmount(outstanding),
	}, nil
}

// DailyRevenue returns the paid amount per bill day for one month. Days
// without bills are omitted.
func (s *BillingService) DailyRevenue(ctx context.Context, year int, month time.Month) ([]DailyRevenueView, error) {
	if year < 1 || month < time.January || month > time.December {
		return nil, billing.ErrInvalidRevenuePeriod
	}
	from, to := monthBounds(year, month, s.clock.Now().Location())
	rows, err := s.store.Bills().DailyRevenue(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]DailyRevenueView, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailyRevenueView{
			Date:   r.Date.Format(time.DateOnly),
			Amount: billing.FormatAmount(r.Amount),
		})
	}
	return out, nil
}
