package repository

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type billRepo struct{ db *gorm.DB }

func (r *billRepo) Create(ctx context.Context, b *billing.Bill) error {
	b.ID = newID(b.ID)
	return translate(r.db.WithContext(ctx).Create(b).Error, nil, "creating bill")
}

func (r *billRepo) GetByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	return r.get(r.db.WithContext(ctx), "id = ?", id)
}

func (r *billRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	return r.get(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

func (r *billRepo) GetByBillNumber(ctx context.Context, number string) (*billing.Bill, error) {
	return r.get(r.db.WithContext(ctx), "bill_number = ?", number)
}

func (r *billRepo) get(db *gorm.DB, query string, arg any) (*billing.Bill, error) {
	var b billing.Bill
	if err := db.First(&b, query, arg).Error; err != nil {
		return nil, translate(err, billing.ErrBillNotFound, "getting bill")
	}
	return &b, nil
}

func (r *billRepo) ExistsByBillNumber(ctx context.Context, number string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&billing.Bill{}).Where("bill_number = ?", number).Limit(1).Count(&n).Error
	if err != nil {
		return false, translate(err, nil, "checking bill number")
	}
	return n > 0, nil
}

func (r *billRepo) Update(ctx context.Context, b *billing.Bill) error {
	return translate(r.db.WithContext(ctx).Save(b).Error, billing.ErrBillNotFound, "updating bill")
}

func (r *billRepo) List(ctx context.Context, f billing.Filter, page pagination.Params) (*pagination.Result[*billing.Bill], error) {
	res, err := paged[billing.Bill](r.filtered(ctx, f), page, "bill_date DESC")
	return res, translate(err, nil, "listing bills")
}

func (r *billRepo) ListAll(ctx context.Context, f billing.Filter) ([]*billing.Bill, error) {
	var out []*billing.Bill
	err := r.filtered(ctx, f).Order("bill_date DESC").Find(&out).Error
	return out, translate(err, nil, "listing bills")
}

func (r *billRepo) Count(ctx context.Context, f billing.Filter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, translate(err, nil, "counting bills")
}

func (r *billRepo) SumPaid(ctx context.Context, f billing.Filter) (decimal.Decimal, error) {
	return r.sum(ctx, "paid_amount", f)
}

func (r *billRepo) SumOutstanding(ctx context.Context, f billing.Filter) (decimal.Decimal, error) {
	return r.sum(ctx, "outstanding_amount", f)
}

func (r *billRepo) sum(ctx context.Context, column string, f billing.Filter) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.filtered(ctx, f).Select("COALESCE(SUM(" + column + "), 0) AS total").Scan(&row).Error
	if err != nil {
		return decimal.Zero, translate(err, nil, "summing "+column)
	}
	return row.Total, nil
}

func (r *billRepo) DailyRevenue(ctx context.Context, from, to time.Time) ([]billing.DailyRevenue, error) {
	var rows []billing.DailyRevenue
	err := r.db.WithContext(ctx).Model(&billing.Bill{}).
		Select("DATE(bill_date) AS date, COALESCE(SUM(paid_amount), 0) AS amount").
		Where("bill_date BETWEEN ? AND ?", from, to).
		Group("DATE(bill_date)").
		Order("date").
		Scan(&rows).Error
	return rows, translate(err, nil, "aggregating daily revenue")
}

func (r *billRepo) filtered(ctx context.Context, f billing.Filter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&billing.Bill{})
	if f.PatientID != nil {
		tx = tx.Where("patient_id = ?", *f.PatientID)
	}
	if len(f.Statuses) > 0 {
		tx = tx.Where("payment_status IN ?", f.Statuses)
	}
	if f.BillDateFrom != nil {
		tx = tx.Where("bill_date >= ?", *f.BillDateFrom)
	}
	if f.BillDateTo != nil {
		tx = tx.Where("bill_date <= ?", *f.BillDateTo)
	}
	return tx
}
