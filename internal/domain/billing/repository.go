package billing

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// Create persists a new bill. Returns store.ErrConflict when BillNumber is taken.
	Create(ctx context.Context, b *Bill) error

	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// GetByIDForUpdate loads the bill and locks its row until the surrounding
	// transaction ends, so concurrent payments cannot lose an update.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Bill, error)

	GetByBillNumber(ctx context.Context, number string) (*Bill, error)
	ExistsByBillNumber(ctx context.Context, number string) (bool, error)

	Update(ctx context.Context, b *Bill) error

	// List returns a page ordered by BillDate descending.
	List(ctx context.Context, f Filter, page pagination.Params) (*pagination.Result[*Bill], error)
	ListAll(ctx context.Context, f Filter) ([]*Bill, error)
	Count(ctx context.Context, f Filter) (int64, error)

	// SumPaid and SumOutstanding aggregate the persisted ledger columns; they
	// never recompute from items.
	SumPaid(ctx context.Context, f Filter) (decimal.Decimal, error)
	SumOutstanding(ctx context.Context, f Filter) (decimal.Decimal, error)

	// DailyRevenue sums PaidAmount per calendar day of BillDate in [from, to].
	DailyRevenue(ctx context.Context, from, to time.Time) ([]DailyRevenue, error)
}
