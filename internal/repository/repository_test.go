package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
)

func setupMockDB(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return New(db), mock
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestGetByIDTranslatesNotFound(t *testing.T) {
	s, mock := setupMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM "clinical"\."patients"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := s.Patients().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectQuery(`FROM "billing"\."bills"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = s.Bills().GetByBillNumber(ctx, "B000001")
	assert.ErrorIs(t, err, billing.ErrBillNotFound)

	mock.ExpectQuery(`FROM "clinical"\."medical_records"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = s.MedicalRecords().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, mr.ErrRecordNotFound)

	mock.ExpectQuery(`FROM "auth"\."users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = s.Users().GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDForUpdateLocksRow(t *testing.T) {
	s, mock := setupMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM "billing"\."bills" WHERE id = .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bill_number", "payment_status"}).
			AddRow(id.String(), "B000007", "PENDING"))

	b, err := s.Bills().GetByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "B000007", b.BillNumber)

	mock.ExpectQuery(`FROM "clinical"\."appointments" WHERE id = .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(id.String(), "SCHEDULED"))

	a, err := s.Appointments().GetByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTranslatesUniqueViolation(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectQuery(`INSERT INTO "billing"\."bills"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	b, err := billing.NewBill("B000001", uuid.New(), nil,
		[]billing.LineItem{{Description: "Consult", Amount: mustDecimal(t, "100.00")}},
		time.Now(), uuid.New())
	require.NoError(t, err)

	err = s.Bills().Create(context.Background(), b)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillSums(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(paid_amount\), 0\) AS total FROM "billing"\."bills"`).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("1234.50"))
	paid, err := s.Bills().SumPaid(context.Background(), billing.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "1234.50", billing.FormatAmount(paid))

	mock.ExpectQuery(`SUM\(outstanding_amount\).+payment_status IN`).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("90.00"))
	outstanding, err := s.Bills().SumOutstanding(context.Background(), billing.Filter{Statuses: billing.UnpaidStatuses})
	require.NoError(t, err)
	assert.Equal(t, "90.00", billing.FormatAmount(outstanding))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyRevenue(t *testing.T) {
	s, mock := setupMockDB(t)
	day1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`DATE\(bill_date\) AS date.+GROUP BY DATE\(bill_date\)`).
		WillReturnRows(sqlmock.NewRows([]string{"date", "amount"}).
			AddRow(day1, "150.00").
			AddRow(day2, "0"))

	rows, err := s.Bills().DailyRevenue(context.Background(), day1, day2.Add(24*time.Hour-time.Nanosecond))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day1, rows[0].Date)
	assert.Equal(t, "150.00", billing.FormatAmount(rows[0].Amount))
	assert.True(t, rows[1].Amount.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentListPages(t *testing.T) {
	s, mock := setupMockDB(t)
	doctor := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "clinical"\."appointments" WHERE doctor_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM "clinical"\."appointments" WHERE doctor_id = .+ ORDER BY scheduled_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doctor_id"}).
			AddRow(uuid.NewString(), doctor.String()).
			AddRow(uuid.NewString(), doctor.String()))

	res, err := s.Appointments().List(context.Background(), appointment.Filter{DoctorID: &doctor}, pagination.Params{Page: 0, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingPatient(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectExec(`DELETE FROM "clinical"\."patients"`).WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.Patients().Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollsBack(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "clinical"\."patients"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := s.Transaction(context.Background(), func(tx store.Store) error {
		if err := tx.Patients().Delete(context.Background(), uuid.New()); err != nil {
			return err
		}
		return billing.ErrOverpayment
	})
	assert.ErrorIs(t, err, billing.ErrOverpayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}
