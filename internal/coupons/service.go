package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/pkg/db"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/pagination"
)

const maxPercentage = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes coupon administration, issuance, and redemption.
type Service interface {
	CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error)
	GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListCoupons(ctx context.Context, params pagination.Params) (*CouponList, error)
	IssueToUser(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error)
	ListUserCoupons(ctx context.Context, userID uuid.UUID, status *enums.UserCouponStatus) ([]models.UserCoupon, error)
	ValidateForUser(ctx context.Context, userID *uuid.UUID, couponID uuid.UUID, at time.Time) (*models.Coupon, error)
	RedeemInTx(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, couponID uuid.UUID, at time.Time) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// CreateCouponInput holds the validated payload to create a coupon.
type CreateCouponInput struct {
	Code                 string
	Name                 string
	DiscountType         enums.CouponDiscountType
	DiscountValue        int
	MinPurchaseAmount    int
	MaxDiscountAmount    *int
	ApplicableCategories []string
	UsageLimit           *int
	ValidFrom            *time.Time
	ValidUntil           *time.Time
	IsActive             bool
}

// UpdateCouponInput holds optional mutation values for a coupon. Discount
// type and value are fixed after creation so issued coupons keep their terms.
type UpdateCouponInput struct {
	Name              *string
	MinPurchaseAmount *int
	MaxDiscountAmount *int
	UsageLimit        *int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	IsActive          *bool
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a coupons service backed by the provided stack.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateCoupon(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon name is required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.DiscountType == enums.CouponDiscountTypePercentage && input.DiscountValue > maxPercentage {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.MinPurchaseAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase must be non-negative")
	}
	if input.MaxDiscountAmount != nil && *input.MaxDiscountAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "maximum discount must be positive")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity window is inverted")
	}

	coupon := &models.Coupon{
		Code:                 code,
		Name:                 strings.TrimSpace(input.Name),
		DiscountType:         input.DiscountType,
		DiscountValue:        input.DiscountValue,
		MinPurchaseAmount:    input.MinPurchaseAmount,
		MaxDiscountAmount:    input.MaxDiscountAmount,
		ApplicableCategories: input.ApplicableCategories,
		UsageLimit:           input.UsageLimit,
		ValidFrom:            input.ValidFrom,
		ValidUntil:           input.ValidUntil,
		IsActive:             input.IsActive,
	}
	created, err := s.repo.Create(ctx, coupon)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return created, nil
}

func (s *service) UpdateCoupon(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error) {
	coupon, err := s.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon name cannot be empty")
		}
		coupon.Name = strings.TrimSpace(*input.Name)
	}
	if input.MinPurchaseAmount != nil {
		if *input.MinPurchaseAmount < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase must be non-negative")
		}
		coupon.MinPurchaseAmount = *input.MinPurchaseAmount
	}
	if input.MaxDiscountAmount != nil {
		if *input.MaxDiscountAmount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "maximum discount must be positive")
		}
		coupon.MaxDiscountAmount = input.MaxDiscountAmount
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
		}
		coupon.UsageLimit = input.UsageLimit
	}
	if input.ValidFrom != nil {
		coupon.ValidFrom = input.ValidFrom
	}
	if input.ValidUntil != nil {
		coupon.ValidUntil = input.ValidUntil
	}
	if coupon.ValidFrom != nil && coupon.ValidUntil != nil && coupon.ValidUntil.Before(*coupon.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity window is inverted")
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, coupon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return updated, nil
}

func (s *service) GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func (s *service) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func (s *service) ListCoupons(ctx context.Context, params pagination.Params) (*CouponList, error) {
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return list, nil
}

// IssueToUser grants one issuance per (user, coupon) pair. Re-issuing the
// same pair is a conflict, not an idempotent no-op, so callers can surface it.
func (s *service) IssueToUser(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	coupon, err := s.GetCoupon(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if !coupon.IsAvailableAt(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is not available")
	}

	record := &models.UserCoupon{
		UserID:   userID,
		CouponID: couponID,
		Status:   enums.UserCouponStatusAvailable,
	}
	created, err := s.repo.CreateUserCoupon(ctx, record)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_user_coupons_user_coupon") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon already issued to user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue coupon")
	}
	created.Coupon = coupon
	return created, nil
}

func (s *service) ListUserCoupons(ctx context.Context, userID uuid.UUID, status *enums.UserCouponStatus) ([]models.UserCoupon, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user coupon status")
	}
	records, err := s.repo.ListUserCoupons(ctx, userID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user coupons")
	}
	return records, nil
}

// ValidateForUser checks that the coupon can be attached right now. Guests
// only need the coupon itself to be available; signed-in users must also hold
// an unspent issuance.
func (s *service) ValidateForUser(ctx context.Context, userID *uuid.UUID, couponID uuid.UUID, at time.Time) (*models.Coupon, error) {
	coupon, err := s.GetCoupon(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if !coupon.IsAvailableAt(at) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is not available")
	}
	if userID == nil {
		return coupon, nil
	}

	record, err := s.repo.FindUserCoupon(ctx, *userID, couponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "coupon not issued to user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user coupon")
	}
	if record.Status != enums.UserCouponStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon already used or expired")
	}
	return coupon, nil
}

// RedeemInTx consumes a coupon inside the caller's transaction. The usage
// counter is bumped exactly once per successful redemption and is never
// rolled back by later order cancellation or refund.
func (s *service) RedeemInTx(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, couponID uuid.UUID, at time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "redeem requires a transaction")
	}
	txRepo := s.repo.WithTx(tx)

	var issuance *models.UserCoupon
	if userID != nil {
		record, err := txRepo.FindUserCouponForUpdate(ctx, *userID, couponID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "coupon not issued to user")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock user coupon")
		}
		if record.Status != enums.UserCouponStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon already used or expired")
		}
		issuance = record
	}

	bumped, err := txRepo.IncrementUsage(ctx, couponID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
	}
	if !bumped {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached")
	}

	if issuance != nil {
		used := at
		issuance.Status = enums.UserCouponStatusUsed
		issuance.UsedAt = &used
		if _, err := txRepo.UpdateUserCoupon(ctx, issuance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark user coupon used")
		}
	}
	return nil
}

// ExpireDue is the cron entry point that sweeps expired issuances.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := s.repo.WithTx(tx).ExpireDueUserCoupons(ctx, now)
		if err != nil {
			return err
		}
		expired = count
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire user coupons")
	}
	return expired, nil
}
