package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	"github.com/evanhart/storefront-backend/pkg/pagination"
)

// Repository manages persistence for coupons and per-user issuances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error)
	Update(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) (*CouponList, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
	CreateUserCoupon(ctx context.Context, record *models.UserCoupon) (*models.UserCoupon, error)
	FindUserCoupon(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error)
	FindUserCouponForUpdate(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error)
	ListUserCoupons(ctx context.Context, userID uuid.UUID, status *enums.UserCouponStatus) ([]models.UserCoupon, error)
	UpdateUserCoupon(ctx context.Context, record *models.UserCoupon) (*models.UserCoupon, error)
	ExpireDueUserCoupons(ctx context.Context, now time.Time) (int64, error)
}

// CouponList is one page of coupons plus the cursor for the next page.
type CouponList struct {
	Coupons    []models.Coupon
	NextCursor string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

func (r *repository) Update(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if err := r.db.WithContext(ctx).Save(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) (*CouponList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Coupon{})
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Coupon
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &CouponList{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	list.Coupons = rows
	return list, nil
}

// IncrementUsage bumps usage_count only while the cap is not reached. The
// false return means the cap was already hit and nothing changed.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateUserCoupon(ctx context.Context, record *models.UserCoupon) (*models.UserCoupon, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) FindUserCoupon(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error) {
	var record models.UserCoupon
	err := r.db.WithContext(ctx).
		Preload("Coupon").
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindUserCouponForUpdate locks the issuance row so redemption cannot double
// apply under concurrent checkouts. Callers must hold a transaction.
func (r *repository) FindUserCouponForUpdate(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error) {
	var record models.UserCoupon
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListUserCoupons(ctx context.Context, userID uuid.UUID, status *enums.UserCouponStatus) ([]models.UserCoupon, error) {
	query := r.db.WithContext(ctx).
		Preload("Coupon").
		Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var records []models.UserCoupon
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) UpdateUserCoupon(ctx context.Context, record *models.UserCoupon) (*models.UserCoupon, error) {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// ExpireDueUserCoupons flips available issuances whose coupon window has
// closed. Returns how many rows changed.
func (r *repository) ExpireDueUserCoupons(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserCoupon{}).
		Where("status = ?", enums.UserCouponStatusAvailable).
		Where("coupon_id IN (?)", r.db.
			Model(&models.Coupon{}).
			Select("id").
			Where("valid_until IS NOT NULL AND valid_until < ?", now)).
		Update("status", enums.UserCouponStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
