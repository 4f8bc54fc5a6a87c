package memstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBill(t *testing.T, number string, patientID uuid.UUID, amount string, day time.Time) *billing.Bill {
	t.Helper()
	b, err := billing.NewBill(number, patientID, nil,
		[]billing.LineItem{{Description: "consultation", Amount: decimal.RequireFromString(amount)}},
		day, uuid.New())
	require.NoError(t, err)
	return b
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx store.Store) error {
		p := &patient.Patient{PatientNumber: "P000001", Phone: "555-0001"}
		require.NoError(t, tx.Patients().Create(ctx, p))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.Patients().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := &patient.Patient{PatientNumber: "P000001", Phone: "555-0001"}

	err := s.Transaction(ctx, func(tx store.Store) error {
		return tx.Patients().Create(ctx, p)
	})
	require.NoError(t, err)

	got, err := s.Patients().GetByPatientNumber(ctx, "P000001")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestUniqueConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Patients().Create(ctx, &patient.Patient{PatientNumber: "P000001", Phone: "1"}))
	err := s.Patients().Create(ctx, &patient.Patient{PatientNumber: "P000001", Phone: "2"})
	assert.ErrorIs(t, err, store.ErrConflict)

	pid := uuid.New()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Bills().Create(ctx, newBill(t, "B000001", pid, "10.00", day)))
	err = s.Bills().Create(ctx, newBill(t, "B000001", pid, "20.00", day))
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Patients().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	_, err = s.Bills().GetByBillNumber(ctx, "B999999")
	assert.ErrorIs(t, err, billing.ErrBillNotFound)
	_, err = s.Appointments().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestReturnedBillsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := newBill(t, "B000001", uuid.New(), "10.00", time.Now())
	require.NoError(t, s.Bills().Create(ctx, b))

	got, err := s.Bills().GetByID(ctx, b.ID)
	require.NoError(t, err)
	got.Items[0].Description = "changed"
	got.PaidAmount = decimal.NewFromInt(5)

	again, err := s.Bills().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "consultation", again.Items[0].Description)
	assert.True(t, again.PaidAmount.IsZero())
}

func TestBillAggregates(t *testing.T) {
	s := New()
	ctx := context.Background()
	pid := uuid.New()
	d1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	b1 := newBill(t, "B000001", pid, "100.00", d1)
	require.NoError(t, b1.ApplyPayment(decimal.RequireFromString("40.00"), d1))
	b2 := newBill(t, "B000002", pid, "50.00", d1.Add(time.Hour))
	require.NoError(t, b2.ApplyPayment(decimal.RequireFromString("50.00"), d1))
	b3 := newBill(t, "B000003", uuid.New(), "25.50", d2)
	for _, b := range []*billing.Bill{b1, b2, b3} {
		require.NoError(t, s.Bills().Create(ctx, b))
	}

	paid, err := s.Bills().SumPaid(ctx, billing.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "90.00", billing.FormatAmount(paid))

	outstanding, err := s.Bills().SumOutstanding(ctx, billing.Filter{Statuses: billing.UnpaidStatuses})
	require.NoError(t, err)
	assert.Equal(t, "85.50", billing.FormatAmount(outstanding))

	n, err := s.Bills().Count(ctx, billing.Filter{PatientID: &pid})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	daily, err := s.Bills().DailyRevenue(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "90.00", billing.FormatAmount(daily[0].Amount))
	assert.True(t, daily[1].Amount.IsZero())
}

func TestDailyRevenueGroupsByCalendarDayAcrossZones(t *testing.T) {
	s := New()
	ctx := context.Background()
	east := time.FixedZone("UTC+2", 2*60*60)
	west := time.FixedZone("UTC-5", -5*60*60)

	dates := []time.Time{
		time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 14, 0, 0, 0, east),
		time.Date(2024, 3, 5, 23, 30, 0, 0, west),
	}
	for i, d := range dates {
		b := newBill(t, fmt.Sprintf("B%06d", i+1), uuid.New(), "10.00", d)
		require.NoError(t, b.ApplyPayment(decimal.RequireFromString("10.00"), d))
		require.NoError(t, s.Bills().Create(ctx, b))
	}

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	daily, err := s.Bills().DailyRevenue(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.True(t, daily[0].Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "20.00", billing.FormatAmount(daily[0].Amount))
	assert.True(t, daily[1].Date.Equal(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "10.00", billing.FormatAmount(daily[1].Amount))
}

func TestAppointmentFiltersAndOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	doctor := uuid.New()
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Appointments().Create(ctx, &appointment.Appointment{
			PatientID:   uuid.New(),
			DoctorID:    doctor,
			ScheduledAt: base.Add(time.Duration(i) * time.Hour),
			Status:      appointment.StatusScheduled,
		}))
	}
	require.NoError(t, s.Appointments().Create(ctx, &appointment.Appointment{
		PatientID:   uuid.New(),
		DoctorID:    uuid.New(),
		ScheduledAt: base,
		Status:      appointment.StatusCancelled,
	}))

	asc, err := s.Appointments().ListAll(ctx, appointment.Filter{DoctorID: &doctor, Ascending: true})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.True(t, asc[0].ScheduledAt.Before(asc[2].ScheduledAt))

	from, to := base, base.Add(time.Hour)
	n, err := s.Appointments().Count(ctx, appointment.Filter{From: &from, To: &to})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n, "range bounds are inclusive")

	cancelled := appointment.StatusCancelled
	page, err := s.Appointments().List(ctx, appointment.Filter{Status: &cancelled}, pagination.Params{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalCount)
}
