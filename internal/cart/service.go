package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/internal/discount"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponValidator interface {
	ValidateForUser(ctx context.Context, userID *uuid.UUID, couponID uuid.UUID, at time.Time) (*models.Coupon, error)
}

// Owner identifies who a cart belongs to: a signed-in user or an anonymous
// session, never both.
type Owner struct {
	UserID    *uuid.UUID
	SessionID *string
}

// Validate enforces the user-or-session exclusivity rule.
func (o Owner) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := o.SessionID != nil && *o.SessionID != ""
	if hasUser == hasSession {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be exactly one of user or session")
	}
	return nil
}

// Service exposes cart mutation and read operations. Every mutation locks the
// cart row and recomputes the aggregate projection before committing, so the
// stored totals always match the item list and the attached coupon.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*models.Cart, error)
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*models.Cart, error)
	ApplyCoupon(ctx context.Context, owner Owner, couponID uuid.UUID) (*models.Cart, error)
	RemoveCoupon(ctx context.Context, owner Owner) (*models.Cart, error)
	Clear(ctx context.Context, owner Owner) (*models.Cart, error)
	ConvertInTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, at time.Time) (*models.Cart, error)
	ExpireIdle(ctx context.Context, idleTTL time.Duration, now time.Time) (int64, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	products productLoader
	coupons  couponValidator
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products productLoader, coupons couponValidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon validator required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		coupons:  coupons,
	}, nil
}

// GetCart returns the owner's active cart, creating an empty one on first
// touch.
func (s *service) GetCart(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.repo.FindActiveByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	fresh := &models.Cart{
		UserID:         owner.UserID,
		SessionID:      owner.SessionID,
		Status:         enums.CartStatusActive,
		Currency:       enums.CurrencyKRW,
		LastActivityAt: time.Now(),
	}
	created, err := s.repo.Create(ctx, fresh)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

// AddItem puts the product in the cart, adding the quantity to an existing
// line. The catalog price and discount are captured on the line at this
// moment.
func (s *service) AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, func(txRepo Repository, cart *models.Cart) error {
		total := quantity
		for _, item := range cart.Items {
			if item.ProductID == productID {
				total += item.Quantity
				break
			}
		}
		if total > product.StockQuantity {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
		}

		line := &models.CartItem{
			CartID:         cart.ID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Category:       product.Category,
			Quantity:       total,
			PriceAmount:    product.PriceAmount,
			DiscountAmount: product.DiscountAmount,
		}
		line.TotalAmount = line.LineTotal()
		return txRepo.UpsertItem(ctx, line)
	})
}

// UpdateItemQuantity replaces the line quantity. Zero removes the line.
func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, owner, productID)
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
	}

	return s.mutate(ctx, owner, func(txRepo Repository, cart *models.Cart) error {
		var existing *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				existing = &cart.Items[i]
				break
			}
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
		}

		existing.Quantity = quantity
		existing.TotalAmount = existing.LineTotal()
		return txRepo.UpsertItem(ctx, existing)
	})
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	return s.mutate(ctx, owner, func(txRepo Repository, cart *models.Cart) error {
		return txRepo.DeleteItem(ctx, cart.ID, productID)
	})
}

// ApplyCoupon attaches the coupon after validating availability and, for
// signed-in users, the issuance. The discount lands through the shared
// recalculation, so a cart below the minimum purchase keeps the coupon with a
// zero discount.
func (s *service) ApplyCoupon(ctx context.Context, owner Owner, couponID uuid.UUID) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if couponID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}

	coupon, err := s.coupons.ValidateForUser(ctx, owner.UserID, couponID, time.Now())
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, func(txRepo Repository, cart *models.Cart) error {
		cart.CouponID = &coupon.ID
		cart.Coupon = coupon
		return nil
	})
}

func (s *service) RemoveCoupon(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, func(txRepo Repository, cart *models.Cart) error {
		cart.CouponID = nil
		cart.Coupon = nil
		return nil
	})
}

// Clear drops every line and the coupon.
func (s *service) Clear(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, func(txRepo Repository, cart *models.Cart) error {
		if err := txRepo.DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		cart.CouponID = nil
		cart.Coupon = nil
		return nil
	})
}

// ConvertInTx flips the cart to converted inside the caller's checkout
// transaction. The locked read guards against two checkouts converting the
// same cart.
func (s *service) ConvertInTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, at time.Time) (*models.Cart, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "convert requires a transaction")
	}
	txRepo := s.repo.WithTx(tx)

	cart, err := txRepo.FindByIDForUpdate(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	if cart.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	converted := at
	cart.Status = enums.CartStatusConverted
	cart.ConvertedAt = &converted
	if _, err := txRepo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
	}
	return cart, nil
}

// ExpireIdle is the cron entry point that sweeps carts with no activity
// inside the TTL.
func (s *service) ExpireIdle(ctx context.Context, idleTTL time.Duration, now time.Time) (int64, error) {
	if idleTTL <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "idle ttl must be positive")
	}

	var expired int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := s.repo.WithTx(tx).ExpireIdleBefore(ctx, now.Add(-idleTTL))
		if err != nil {
			return err
		}
		expired = count
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire idle carts")
	}
	return expired, nil
}

// mutate runs one cart mutation under the row lock: lock, apply, reload
// lines, recompute the projection, save.
func (s *service) mutate(ctx context.Context, owner Owner, apply func(txRepo Repository, cart *models.Cart) error) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	var saved *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		locked, err := txRepo.FindByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if locked.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active")
		}

		if err := apply(txRepo, locked); err != nil {
			return err
		}

		items, err := txRepo.ListItems(ctx, locked.ID)
		if err != nil {
			return err
		}
		locked.Items = items

		recalculate(locked)
		locked.LastActivityAt = time.Now()

		saved, err = txRepo.Save(ctx, locked)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mutate cart")
	}
	return saved, nil
}

func (s *service) loadSellableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return product, nil
}

// recalculate rebuilds the cached aggregates from the item list and the
// attached coupon rule.
func recalculate(cart *models.Cart) {
	subtotal := 0
	totalItems := 0
	for _, item := range cart.Items {
		subtotal += item.LineTotal()
		totalItems += item.Quantity
	}

	discountAmount := 0
	if cart.Coupon != nil {
		discountAmount = discount.ComputeForItems(*cart.Coupon, cart.Items)
	}

	cart.TotalItems = totalItems
	cart.SubtotalAmount = subtotal
	cart.DiscountAmount = discountAmount
	cart.TotalAmount = subtotal - discountAmount
}
