package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/internal/cart"
	"github.com/evanhart/storefront-backend/internal/discount"
	"github.com/evanhart/storefront-backend/internal/products"
	"github.com/evanhart/storefront-backend/pkg/config"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/pagination"
	"github.com/evanhart/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartConverter interface {
	GetCart(ctx context.Context, owner cart.Owner) (*models.Cart, error)
	ConvertInTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, at time.Time) (*models.Cart, error)
}

type couponRedeemer interface {
	RedeemInTx(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, couponID uuid.UUID, at time.Time) error
}

type paymentOpener interface {
	OpenInTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error)
}

// Service exposes checkout and order lifecycle operations.
type Service interface {
	CreateFromCart(ctx context.Context, input CheckoutInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
}

// CheckoutInput carries everything needed to turn an active cart into an
// order. Customer fields are copied onto the order as an immutable snapshot.
type CheckoutInput struct {
	Owner           cart.Owner
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress types.Address
}

type service struct {
	repo     Repository
	tx       txRunner
	carts    cartConverter
	coupons  couponRedeemer
	products products.Repository
	payments paymentOpener
	cfg      config.CheckoutConfig
}

// NewService builds an orders service backed by the provided stack.
func NewService(
	repo Repository,
	tx txRunner,
	carts cartConverter,
	coupons couponRedeemer,
	productsRepo products.Repository,
	payments paymentOpener,
	cfg config.CheckoutConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart converter required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon redeemer required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment opener required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		carts:    carts,
		coupons:  coupons,
		products: productsRepo,
		payments: payments,
		cfg:      cfg,
	}, nil
}

// CreateFromCart converts the owner's active cart into an order plus an open
// payment, all in one transaction: convert the cart, reserve stock, redeem
// the coupon, freeze the amounts.
func (s *service) CreateFromCart(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if err := input.Owner.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if !input.ShippingAddress.Validate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}

	active, err := s.carts.GetCart(ctx, input.Owner)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		converted, err := s.carts.ConvertInTx(ctx, tx, active.ID, now)
		if err != nil {
			return err
		}

		subtotal := 0
		for _, line := range converted.Items {
			subtotal += line.LineTotal()
		}

		discountAmount := 0
		if converted.Coupon != nil {
			if !converted.Coupon.IsAvailableAt(now) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "attached coupon is no longer available")
			}
			discountAmount = discount.ComputeForItems(*converted.Coupon, converted.Items)
		}

		txProducts := s.products.WithTx(tx)
		for _, line := range converted.Items {
			reserved, err := txProducts.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !reserved {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("insufficient stock for %s", line.ProductName))
			}
		}

		if converted.CouponID != nil {
			if err := s.coupons.RedeemInTx(ctx, tx, converted.UserID, *converted.CouponID, now); err != nil {
				return err
			}
		}

		shipping := s.shippingCost(subtotal - discountAmount)
		order = &models.Order{
			OrderNumber:     newOrderNumber(now),
			UserID:          converted.UserID,
			Status:          enums.OrderStatusPending,
			Currency:        converted.Currency,
			SubtotalAmount:  subtotal,
			ShippingCost:    shipping,
			CouponDiscount:  discountAmount,
			TotalAmount:     subtotal - discountAmount + shipping,
			CouponID:        converted.CouponID,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
			CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
			ShippingAddress: input.ShippingAddress,
			Items:           freezeItems(converted.Items),
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if _, err := s.payments.OpenInTx(ctx, tx, order); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// TransitionStatus moves the order through the lifecycle under the row lock.
// Cancellation releases the reserved stock; coupon usage stays consumed.
func (s *service) TransitionStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if !CanTransition(order.Status, next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, next))
		}

		now := time.Now()
		switch next {
		case enums.OrderStatusCancelled:
			txProducts := s.products.WithTx(tx)
			for _, line := range order.Items {
				if line.ProductID == nil {
					continue
				}
				if err := txProducts.RestoreStock(ctx, *line.ProductID, line.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
				}
			}
			order.CancelledAt = &now
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		case enums.OrderStatusRefunded:
			order.RefundedAt = &now
		}

		order.Status = next
		updated, err = txRepo.Save(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order")
	}
	return updated, nil
}

func (s *service) shippingCost(payable int) int {
	if s.cfg.FreeShippingThreshold > 0 && payable >= s.cfg.FreeShippingThreshold {
		return 0
	}
	return s.cfg.DefaultShippingCost
}

func freezeItems(lines []models.CartItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		productID := line.ProductID
		items = append(items, models.OrderItem{
			ProductID:      &productID,
			ProductName:    line.ProductName,
			Quantity:       line.Quantity,
			PriceAmount:    line.PriceAmount,
			DiscountAmount: line.DiscountAmount,
			TotalAmount:    line.LineTotal(),
		})
	}
	return items
}

// newOrderNumber yields a human-readable unique order number, date plus a
// random suffix.
func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}
