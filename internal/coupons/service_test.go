package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/pagination"
)

type stubCouponsRepo struct {
	coupons        map[uuid.UUID]*models.Coupon
	userCoupons    map[string]*models.UserCoupon
	created        *models.Coupon
	createErr      error
	incrementOK    bool
	incrementCalls int
	expiredCount   int64
}

func userCouponKey(userID, couponID uuid.UUID) string {
	return userID.String() + "|" + couponID.String()
}

func newStubCouponsRepo() *stubCouponsRepo {
	return &stubCouponsRepo{
		coupons:     map[uuid.UUID]*models.Coupon{},
		userCoupons: map[string]*models.UserCoupon{},
		incrementOK: true,
	}
}

func (s *stubCouponsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCouponsRepo) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	s.coupons[coupon.ID] = coupon
	s.created = coupon
	return coupon, nil
}

func (s *stubCouponsRepo) Update(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	s.coupons[coupon.ID] = coupon
	return coupon, nil
}

func (s *stubCouponsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, ok := s.coupons[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *coupon
	return &copied, nil
}

func (s *stubCouponsRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	for _, coupon := range s.coupons {
		if coupon.Code == code {
			copied := *coupon
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCouponsRepo) List(ctx context.Context, params pagination.Params) (*CouponList, error) {
	list := &CouponList{}
	for _, coupon := range s.coupons {
		list.Coupons = append(list.Coupons, *coupon)
	}
	return list, nil
}

func (s *stubCouponsRepo) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	s.incrementCalls++
	if !s.incrementOK {
		return false, nil
	}
	if coupon, ok := s.coupons[id]; ok {
		coupon.UsageCount++
	}
	return true, nil
}

func (s *stubCouponsRepo) CreateUserCoupon(ctx context.Context, record *models.UserCoupon) (*models.UserCoupon, error) {
	key := userCouponKey(record.UserID, record.CouponID)
	if _, exists := s.userCoupons[key]; exists {
		return nil, errDuplicatePair
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.userCoupons[key] = record
	return record, nil
}

func (s *stubCouponsRepo) FindUserCoupon(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error) {
	record, ok := s.userCoupons[userCouponKey(userID, couponID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (s *stubCouponsRepo) FindUserCouponForUpdate(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error) {
	return s.FindUserCoupon(ctx, userID, couponID)
}

func (s *stubCouponsRepo) ListUserCoupons(ctx context.Context, userID uuid.UUID, status *enums.UserCouponStatus) ([]models.UserCoupon, error) {
	var records []models.UserCoupon
	for _, record := range s.userCoupons {
		if record.UserID != userID {
			continue
		}
		if status != nil && record.Status != *status {
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

func (s *stubCouponsRepo) UpdateUserCoupon(ctx context.Context, record *models.UserCoupon) (*models.UserCoupon, error) {
	s.userCoupons[userCouponKey(record.UserID, record.CouponID)] = record
	return record, nil
}

func (s *stubCouponsRepo) ExpireDueUserCoupons(ctx context.Context, now time.Time) (int64, error) {
	return s.expiredCount, nil
}

var errDuplicatePair = &duplicateErr{}

type duplicateErr struct{}

func (*duplicateErr) Error() string {
	return `duplicate key value violates unique constraint "idx_user_coupons_user_coupon"`
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedCoupon(repo *stubCouponsRepo, mutate func(*models.Coupon)) *models.Coupon {
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "WELCOME10",
		Name:          "Welcome",
		DiscountType:  enums.CouponDiscountTypePercentage,
		DiscountValue: 10,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	repo.coupons[coupon.ID] = coupon
	return coupon
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if typed.Code() != want {
		t.Fatalf("expected code %s, got %s (%v)", want, typed.Code(), err)
	}
}

func TestCreateCouponValidation(t *testing.T) {
	svc := newTestService(t, newStubCouponsRepo())
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateCouponInput
	}{
		{"missing code", CreateCouponInput{Name: "x", DiscountType: enums.CouponDiscountTypeFixed, DiscountValue: 100}},
		{"bad type", CreateCouponInput{Code: "C", Name: "x", DiscountType: "bogus", DiscountValue: 100}},
		{"zero value", CreateCouponInput{Code: "C", Name: "x", DiscountType: enums.CouponDiscountTypeFixed, DiscountValue: 0}},
		{"percent over 100", CreateCouponInput{Code: "C", Name: "x", DiscountType: enums.CouponDiscountTypePercentage, DiscountValue: 150}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCoupon(ctx, tc.input)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestCreateCouponNormalizesCode(t *testing.T) {
	repo := newStubCouponsRepo()
	svc := newTestService(t, repo)

	created, err := svc.CreateCoupon(context.Background(), CreateCouponInput{
		Code:          "  summer25 ",
		Name:          "Summer",
		DiscountType:  enums.CouponDiscountTypeFixed,
		DiscountValue: 2500,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	if created.Code != "SUMMER25" {
		t.Fatalf("expected normalized code SUMMER25, got %q", created.Code)
	}
}

func TestIssueToUserDuplicatePair(t *testing.T) {
	repo := newStubCouponsRepo()
	coupon := seedCoupon(repo, nil)
	svc := newTestService(t, repo)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.IssueToUser(ctx, userID, coupon.ID); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	_, err := svc.IssueToUser(ctx, userID, coupon.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestIssueToUserUnavailableCoupon(t *testing.T) {
	repo := newStubCouponsRepo()
	coupon := seedCoupon(repo, func(c *models.Coupon) {
		c.IsActive = false
	})
	svc := newTestService(t, repo)

	_, err := svc.IssueToUser(context.Background(), uuid.New(), coupon.ID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestValidateForUser(t *testing.T) {
	repo := newStubCouponsRepo()
	coupon := seedCoupon(repo, nil)
	svc := newTestService(t, repo)
	ctx := context.Background()
	now := time.Now()

	t.Run("guest only needs availability", func(t *testing.T) {
		got, err := svc.ValidateForUser(ctx, nil, coupon.ID, now)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if got.ID != coupon.ID {
			t.Fatalf("unexpected coupon %s", got.ID)
		}
	})

	t.Run("user without issuance is forbidden", func(t *testing.T) {
		userID := uuid.New()
		_, err := svc.ValidateForUser(ctx, &userID, coupon.ID, now)
		assertCode(t, err, pkgerrors.CodeForbidden)
	})

	t.Run("used issuance conflicts", func(t *testing.T) {
		userID := uuid.New()
		repo.userCoupons[userCouponKey(userID, coupon.ID)] = &models.UserCoupon{
			UserID:   userID,
			CouponID: coupon.ID,
			Status:   enums.UserCouponStatusUsed,
		}
		_, err := svc.ValidateForUser(ctx, &userID, coupon.ID, now)
		assertCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("window closed", func(t *testing.T) {
		past := now.Add(-time.Hour)
		expired := seedCoupon(repo, func(c *models.Coupon) {
			c.Code = "EXPIRED"
			c.ValidUntil = &past
		})
		_, err := svc.ValidateForUser(ctx, nil, expired.ID, now)
		assertCode(t, err, pkgerrors.CodeStateConflict)
	})
}

func TestRedeemInTxMarksUsedAndBumpsUsage(t *testing.T) {
	repo := newStubCouponsRepo()
	coupon := seedCoupon(repo, nil)
	svc := newTestService(t, repo)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	repo.userCoupons[userCouponKey(userID, coupon.ID)] = &models.UserCoupon{
		UserID:   userID,
		CouponID: coupon.ID,
		Status:   enums.UserCouponStatusAvailable,
	}

	if err := svc.RedeemInTx(ctx, &gorm.DB{}, &userID, coupon.ID, now); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if repo.incrementCalls != 1 {
		t.Fatalf("expected one usage increment, got %d", repo.incrementCalls)
	}
	record := repo.userCoupons[userCouponKey(userID, coupon.ID)]
	if record.Status != enums.UserCouponStatusUsed || record.UsedAt == nil {
		t.Fatalf("expected issuance marked used, got %+v", record)
	}

	err := svc.RedeemInTx(ctx, &gorm.DB{}, &userID, coupon.ID, now)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if repo.incrementCalls != 1 {
		t.Fatalf("second redeem must not increment usage, got %d calls", repo.incrementCalls)
	}
}

func TestRedeemInTxGuestChargesUsageCapOnly(t *testing.T) {
	repo := newStubCouponsRepo()
	coupon := seedCoupon(repo, nil)
	svc := newTestService(t, repo)

	if err := svc.RedeemInTx(context.Background(), &gorm.DB{}, nil, coupon.ID, time.Now()); err != nil {
		t.Fatalf("guest redeem: %v", err)
	}
	if repo.incrementCalls != 1 {
		t.Fatalf("expected usage increment for guest redeem, got %d", repo.incrementCalls)
	}
	if len(repo.userCoupons) != 0 {
		t.Fatalf("guest redeem must not touch issuance records, got %+v", repo.userCoupons)
	}
}

func TestRedeemInTxUsageLimitReached(t *testing.T) {
	repo := newStubCouponsRepo()
	coupon := seedCoupon(repo, nil)
	repo.incrementOK = false
	svc := newTestService(t, repo)

	err := svc.RedeemInTx(context.Background(), &gorm.DB{}, nil, coupon.ID, time.Now())
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestExpireDue(t *testing.T) {
	repo := newStubCouponsRepo()
	repo.expiredCount = 3
	svc := newTestService(t, repo)

	count, err := svc.ExpireDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expire due: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 expired, got %d", count)
	}
}
