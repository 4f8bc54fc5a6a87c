package billing

import (
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestBill(t *testing.T) *Bill {
	t.Helper()
	b, err := NewBill("B000001", uuid.New(), nil, []LineItem{
		{Description: "Consult", Amount: dec("100.00")},
		{Description: "Labs", Amount: dec("50.00")},
	}, time.Now(), uuid.New())
	require.NoError(t, err)
	return b
}

func assertLedger(t *testing.T, b *Bill) {
	t.Helper()
	assert.True(t, b.OutstandingAmount.Equal(b.TotalAmount.Sub(b.PaidAmount)),
		"outstanding %s != total %s - paid %s", b.OutstandingAmount, b.TotalAmount, b.PaidAmount)
	status, _ := Derive(b.PaidAmount, b.TotalAmount)
	assert.Equal(t, status, b.PaymentStatus)
}

func TestDerive_Boundaries(t *testing.T) {
	total := dec("150.00")

	status, out := Derive(decimal.Zero, total)
	assert.Equal(t, StatusPending, status)
	assert.True(t, out.Equal(total))

	status, out = Derive(dec("0.01"), total)
	assert.Equal(t, StatusPartial, status)
	assert.Equal(t, "149.99", FormatAmount(out))

	status, out = Derive(dec("149.99"), total)
	assert.Equal(t, StatusPartial, status)
	assert.Equal(t, "0.01", FormatAmount(out))

	status, out = Derive(total, total)
	assert.Equal(t, StatusPaid, status)
	assert.True(t, out.IsZero())
}

func TestNewBill_TotalsAndInitialState(t *testing.T) {
	b := newTestBill(t)
	assert.Equal(t, "150.00", FormatAmount(b.TotalAmount))
	assert.True(t, b.PaidAmount.IsZero())
	assert.Equal(t, StatusPending, b.PaymentStatus)
	assertLedger(t, b)
}

func TestNewBill_RejectsBadItems(t *testing.T) {
	_, err := NewBill("B1", uuid.New(), nil, nil, time.Now(), uuid.New())
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = NewBill("B1", uuid.New(), nil, []LineItem{{Description: "x", Amount: dec("0")}}, time.Now(), uuid.New())
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = NewBill("B1", uuid.New(), nil, []LineItem{{Description: "x", Amount: dec("-5")}}, time.Now(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewBill("B1", uuid.New(), nil, []LineItem{{Description: "x", Amount: dec("1.005")}}, time.Now(), uuid.New())
	assert.ErrorIs(t, err, ErrAmountPrecision)
}

func TestApplyPayment_FullPayment(t *testing.T) {
	b := newTestBill(t)
	require.NoError(t, b.ApplyPayment(dec("150.00"), time.Now()))
	assert.Equal(t, StatusPaid, b.PaymentStatus)
	assert.Equal(t, "0.00", FormatAmount(b.OutstandingAmount))
	assert.NotNil(t, b.PaymentDate)
	assertLedger(t, b)
}

func TestApplyPayment_PartialThenOverpay(t *testing.T) {
	b := newTestBill(t)
	require.NoError(t, b.ApplyPayment(dec("60.00"), time.Now()))
	assert.Equal(t, StatusPartial, b.PaymentStatus)
	assert.Equal(t, "90.00", FormatAmount(b.OutstandingAmount))

	before := *b
	err := b.ApplyPayment(dec("100.00"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrOverpayment)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, b.PaidAmount.Equal(before.PaidAmount))
	assert.Equal(t, before.PaymentDate, b.PaymentDate)
	assert.Equal(t, StatusPartial, b.PaymentStatus)
	assertLedger(t, b)
}

func TestApplyPayment_RepeatedSmallPaymentsDoNotDrift(t *testing.T) {
	b, err := NewBill("B2", uuid.New(), nil, []LineItem{{Description: "x", Amount: dec("1.00")}}, time.Now(), uuid.New())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		prev := b.PaidAmount
		require.NoError(t, b.ApplyPayment(dec("0.10"), time.Now()))
		assert.True(t, b.PaidAmount.GreaterThan(prev))
		assertLedger(t, b)
	}
	assert.Equal(t, StatusPaid, b.PaymentStatus)
	assert.Equal(t, "1.00", FormatAmount(b.PaidAmount))
}

func TestApplyPayment_RejectsNonPositive(t *testing.T) {
	b := newTestBill(t)
	assert.ErrorIs(t, b.ApplyPayment(decimal.Zero, time.Now()), ErrNonPositivePayment)
	assert.ErrorIs(t, b.ApplyPayment(dec("-1"), time.Now()), ErrNonPositivePayment)
	assert.Equal(t, StatusPending, b.PaymentStatus)
}
