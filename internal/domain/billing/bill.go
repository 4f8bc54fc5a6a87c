package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every monetary field.
const Scale = 2

type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusPaid    PaymentStatus = "PAID"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// UnpaidStatuses are the statuses that still carry an outstanding balance.
var UnpaidStatuses = []PaymentStatus{StatusPending, StatusPartial}

type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Bill struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	BillNumber string `gorm:"column:bill_number;type:varchar(20);uniqueIndex;not null"`

	PatientID     uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	AppointmentID *uuid.UUID `gorm:"column:appointment_id;type:uuid;index"`

	Items []LineItem `gorm:"column:items;type:jsonb;serializer:json;not null"`

	TotalAmount       decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaidAmount        decimal.Decimal `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	OutstandingAmount decimal.Decimal `gorm:"column:outstanding_amount;type:numeric(12,2);not null"`
	PaymentStatus     PaymentStatus   `gorm:"column:payment_status;type:varchar(20);not null;default:'PENDING';index"`

	BillDate    time.Time  `gorm:"column:bill_date;not null;index"`
	PaymentDate *time.Time `gorm:"column:payment_date"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Bill) TableName() string {
	return "billing.bills"
}

// Derive is the single source of truth for the ledger's derived fields.
func Derive(paid, total decimal.Decimal) (PaymentStatus, decimal.Decimal) {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid, decimal.Zero
	case paid.IsPositive():
		return StatusPartial, total.Sub(paid)
	default:
		return StatusPending, total
	}
}

// Recalculate re-derives PaymentStatus and OutstandingAmount. It must run
// after every PaidAmount mutation.
func (b *Bill) Recalculate() {
	b.PaymentStatus, b.OutstandingAmount = Derive(b.PaidAmount, b.TotalAmount)
}

// ApplyPayment records a payment. A rejected payment leaves b untouched.
func (b *Bill) ApplyPayment(amount decimal.Decimal, paidAt time.Time) error {
	if !amount.IsPositive() {
		return ErrNonPositivePayment
	}
	if !hasScale(amount) {
		return ErrAmountPrecision
	}
	if amount.GreaterThan(b.OutstandingAmount) {
		return ErrOverpayment
	}

	b.PaidAmount = b.PaidAmount.Add(amount)
	b.PaymentDate = &paidAt
	b.Recalculate()
	return nil
}

// TotalOf sums the item amounts after validating each of them.
func TotalOf(items []LineItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, ErrNoItems
	}
	total := decimal.Zero
	for _, it := range items {
		if !it.Amount.IsPositive() {
			return decimal.Zero, ErrNonPositiveAmount
		}
		if !hasScale(it.Amount) {
			return decimal.Zero, ErrAmountPrecision
		}
		total = total.Add(it.Amount)
	}
	return total, nil
}

// NewBill builds a fresh PENDING bill whose totals come from items.
func NewBill(number string, patientID uuid.UUID, appointmentID *uuid.UUID, items []LineItem, billDate time.Time, createdBy uuid.UUID) (*Bill, error) {
	total, err := TotalOf(items)
	if err != nil {
		return nil, err
	}
	b := &Bill{
		BillNumber:    number,
		PatientID:     patientID,
		AppointmentID: appointmentID,
		Items:         append([]LineItem(nil), items...),
		TotalAmount:   total,
		PaidAmount:    decimal.Zero,
		BillDate:      billDate,
		CreatedBy:     createdBy,
	}
	b.Recalculate()
	return b, nil
}

func hasScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale))
}

// FormatAmount renders d with exactly Scale fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

type GenerateBillCommand struct {
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Items         []LineItem
	BillDate      time.Time
}

type PaymentCommand struct {
	Amount      decimal.Decimal
	PaymentDate time.Time
}

// Filter narrows bill queries. BillDateFrom/To bound BillDate inclusively.
type Filter struct {
	PatientID    *uuid.UUID
	Statuses     []PaymentStatus
	BillDateFrom *time.Time
	BillDateTo   *time.Time
}

type DailyRevenue struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}
