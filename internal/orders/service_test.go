package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/internal/cart"
	"github.com/evanhart/storefront-backend/internal/products"
	"github.com/evanhart/storefront-backend/pkg/config"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/pagination"
	"github.com/evanhart/storefront-backend/pkg/types"
)

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrdersRepo) Save(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrdersRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list := &OrderList{}
	for _, order := range s.orders {
		if filters.Status != nil && order.Status != *filters.Status {
			continue
		}
		if filters.UserID != nil && (order.UserID == nil || *order.UserID != *filters.UserID) {
			continue
		}
		list.Orders = append(list.Orders, *order)
	}
	return list, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubCartConverter struct {
	cart       *models.Cart
	convertErr error
	converted  bool
}

func (s *stubCartConverter) GetCart(ctx context.Context, owner cart.Owner) (*models.Cart, error) {
	if s.cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
	}
	return s.cart, nil
}

func (s *stubCartConverter) ConvertInTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, at time.Time) (*models.Cart, error) {
	if s.convertErr != nil {
		return nil, s.convertErr
	}
	s.converted = true
	return s.cart, nil
}

type stubCouponRedeemer struct {
	redeemed int
	err      error
}

func (s *stubCouponRedeemer) RedeemInTx(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, couponID uuid.UUID, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.redeemed++
	return nil
}

type stubProductsRepo struct {
	stock    map[uuid.UUID]int
	restored map[uuid.UUID]int
}

func newStubProductsRepo() *stubProductsRepo {
	return &stubProductsRepo{
		stock:    map[uuid.UUID]int{},
		restored: map[uuid.UUID]int{},
	}
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) products.Repository { return s }

func (s *stubProductsRepo) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) List(ctx context.Context, params pagination.Params, filters products.ListFilters) (*products.ProductList, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	available := s.stock[id]
	if available < qty {
		return false, nil
	}
	s.stock[id] = available - qty
	return true, nil
}

func (s *stubProductsRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	s.stock[id] += qty
	s.restored[id] += qty
	return nil
}

type stubPaymentOpener struct {
	opened *models.Payment
	err    error
}

func (s *stubPaymentOpener) OpenInTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.opened = &models.Payment{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      enums.PaymentStatusPending,
		Currency:    order.Currency,
		TotalAmount: order.TotalAmount,
	}
	return s.opened, nil
}

type checkoutFixture struct {
	repo     *stubOrdersRepo
	carts    *stubCartConverter
	coupons  *stubCouponRedeemer
	products *stubProductsRepo
	payments *stubPaymentOpener
	svc      Service
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{
		repo:     newStubOrdersRepo(),
		carts:    &stubCartConverter{},
		coupons:  &stubCouponRedeemer{},
		products: newStubProductsRepo(),
		payments: &stubPaymentOpener{},
	}
	cfg := config.CheckoutConfig{
		DefaultShippingCost:   3000,
		FreeShippingThreshold: 50000,
	}
	svc, err := NewService(f.repo, stubTxRunner{}, f.carts, f.coupons, f.products, f.payments, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *checkoutFixture) seedCart(userID *uuid.UUID, coupon *models.Coupon, lines ...models.CartItem) *models.Cart {
	cartID := uuid.New()
	for i := range lines {
		lines[i].CartID = cartID
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		f.products.stock[lines[i].ProductID] += lines[i].Quantity
	}
	record := &models.Cart{
		ID:       cartID,
		UserID:   userID,
		Status:   enums.CartStatusActive,
		Currency: enums.CurrencyKRW,
		Items:    lines,
		Coupon:   coupon,
	}
	if coupon != nil {
		record.CouponID = &coupon.ID
	}
	f.carts.cart = record
	return record
}

func line(price, discountAmount, qty int) models.CartItem {
	return models.CartItem{
		ProductID:      uuid.New(),
		ProductName:    "Line Product",
		Quantity:       qty,
		PriceAmount:    price,
		DiscountAmount: discountAmount,
	}
}

func checkoutInput(userID uuid.UUID) CheckoutInput {
	return CheckoutInput{
		Owner:        cart.Owner{UserID: &userID},
		CustomerName: "Jamie Kim",
		ShippingAddress: types.Address{
			Recipient:  "Jamie Kim",
			Phone:      "010-0000-0000",
			Line1:      "12 Test-ro",
			City:       "Seoul",
			PostalCode: "04524",
			Country:    "KR",
		},
	}
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

func TestCreateFromCartFreezesAmounts(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()

	cap := 15000
	coupon := &models.Coupon{
		ID:                uuid.New(),
		Code:              "SAVE20",
		DiscountType:      enums.CouponDiscountTypePercentage,
		DiscountValue:     20,
		MaxDiscountAmount: &cap,
		IsActive:          true,
	}
	f.seedCart(&userID, coupon, line(40000, 0, 2))

	order, err := f.svc.CreateFromCart(context.Background(), checkoutInput(userID))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.SubtotalAmount != 80000 {
		t.Fatalf("expected subtotal 80000, got %d", order.SubtotalAmount)
	}
	if order.CouponDiscount != 15000 {
		t.Fatalf("expected capped discount 15000, got %d", order.CouponDiscount)
	}
	if order.ShippingCost != 0 {
		t.Fatalf("expected free shipping above threshold, got %d", order.ShippingCost)
	}
	if order.TotalAmount != 65000 {
		t.Fatalf("expected total 65000, got %d", order.TotalAmount)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].TotalAmount != 80000 {
		t.Fatalf("expected one frozen line of 80000, got %+v", order.Items)
	}
	if order.OrderNumber == "" {
		t.Fatal("expected order number")
	}

	if !f.carts.converted {
		t.Fatal("cart must be converted")
	}
	if f.coupons.redeemed != 1 {
		t.Fatalf("expected one coupon redemption, got %d", f.coupons.redeemed)
	}
	if f.payments.opened == nil || f.payments.opened.TotalAmount != 65000 {
		t.Fatalf("expected payment opened for 65000, got %+v", f.payments.opened)
	}
	if remaining := f.products.stock[*order.Items[0].ProductID]; remaining != 0 {
		t.Fatalf("expected stock fully reserved, got %d", remaining)
	}
}

func TestCreateFromCartShippingBelowThreshold(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()
	f.seedCart(&userID, nil, line(10000, 0, 2))

	order, err := f.svc.CreateFromCart(context.Background(), checkoutInput(userID))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if order.ShippingCost != 3000 {
		t.Fatalf("expected default shipping 3000, got %d", order.ShippingCost)
	}
	if order.TotalAmount != 23000 {
		t.Fatalf("expected total 23000, got %d", order.TotalAmount)
	}
	if f.coupons.redeemed != 0 {
		t.Fatal("no coupon should be redeemed")
	}
}

func TestCreateFromCartInsufficientStock(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()
	record := f.seedCart(&userID, nil, line(10000, 0, 2))
	f.products.stock[record.Items[0].ProductID] = 1

	_, err := f.svc.CreateFromCart(context.Background(), checkoutInput(userID))
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateFromCartExpiredCoupon(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()
	past := time.Now().Add(-time.Hour)
	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "LATE",
		DiscountType:  enums.CouponDiscountTypeFixed,
		DiscountValue: 1000,
		IsActive:      true,
		ValidUntil:    &past,
	}
	f.seedCart(&userID, coupon, line(10000, 0, 1))

	_, err := f.svc.CreateFromCart(context.Background(), checkoutInput(userID))
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateFromCartValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()
	f.seedCart(&userID, nil, line(10000, 0, 1))

	input := checkoutInput(userID)
	input.CustomerName = "  "
	_, err := f.svc.CreateFromCart(context.Background(), input)
	assertCode(t, err, pkgerrors.CodeValidation)

	input = checkoutInput(userID)
	input.ShippingAddress = types.Address{}
	_, err = f.svc.CreateFromCart(context.Background(), input)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestTransitionStatus(t *testing.T) {
	f := newCheckoutFixture(t)
	productID := uuid.New()
	order := &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPending,
		Items: []models.OrderItem{{
			ID:        uuid.New(),
			ProductID: &productID,
			Quantity:  2,
		}},
	}
	f.repo.orders[order.ID] = order
	ctx := context.Background()

	updated, err := f.svc.TransitionStatus(ctx, order.ID, enums.OrderStatusPreparing)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != enums.OrderStatusPreparing {
		t.Fatalf("expected preparing, got %s", updated.Status)
	}

	_, err = f.svc.TransitionStatus(ctx, order.ID, enums.OrderStatusDelivered)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestTransitionStatusCancelRestoresStock(t *testing.T) {
	f := newCheckoutFixture(t)
	productID := uuid.New()
	order := &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPending,
		Items: []models.OrderItem{{
			ID:        uuid.New(),
			ProductID: &productID,
			Quantity:  3,
		}},
	}
	f.repo.orders[order.ID] = order

	updated, err := f.svc.TransitionStatus(context.Background(), order.ID, enums.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.CancelledAt == nil {
		t.Fatal("expected cancelled timestamp")
	}
	if f.products.restored[productID] != 3 {
		t.Fatalf("expected 3 units restored, got %d", f.products.restored[productID])
	}
}

func TestTransitionStatusTimestamps(t *testing.T) {
	f := newCheckoutFixture(t)
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusShipping}
	f.repo.orders[order.ID] = order
	ctx := context.Background()

	updated, err := f.svc.TransitionStatus(ctx, order.ID, enums.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if updated.DeliveredAt == nil {
		t.Fatal("expected delivered timestamp")
	}

	updated, err = f.svc.TransitionStatus(ctx, order.ID, enums.OrderStatusRefunded)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if updated.RefundedAt == nil {
		t.Fatal("expected refunded timestamp")
	}
}

func TestGetOrderNotFound(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.GetOrder(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}
