package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
)

// Repository manages persistence for carts and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindActiveByOwner(ctx context.Context, owner Owner) (*models.Cart, error)
	FindActiveByOwnerForUpdate(ctx context.Context, owner Owner) (*models.Cart, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	ExpireIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) Save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Omit("Items", "Coupon").Save(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *repository) FindActiveByOwner(ctx context.Context, owner Owner) (*models.Cart, error) {
	var cart models.Cart
	err := r.ownerScope(r.db.WithContext(ctx), owner).
		Preload("Items").
		Preload("Coupon").
		Where("status = ?", enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindActiveByOwnerForUpdate locks the cart row so concurrent mutations of
// the same cart serialize. Callers must hold a transaction. Associations are
// loaded after the lock is taken.
func (r *repository) FindActiveByOwnerForUpdate(ctx context.Context, owner Owner) (*models.Cart, error) {
	var cart models.Cart
	err := r.ownerScope(r.db.WithContext(ctx), owner).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ?", enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadAssociations(ctx, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadAssociations(ctx, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) UpsertItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"quantity", "price_amount", "discount_amount", "total_amount", "updated_at",
			}),
		}).
		Create(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ExpireIdleBefore flips active carts whose last activity predates the
// cutoff. Returns how many rows changed.
func (r *repository) ExpireIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("status = ? AND last_activity_at < ?", enums.CartStatusActive, cutoff).
		Update("status", enums.CartStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) ownerScope(query *gorm.DB, owner Owner) *gorm.DB {
	if owner.UserID != nil {
		return query.Where("user_id = ?", *owner.UserID)
	}
	return query.Where("session_id = ?", *owner.SessionID)
}

func (r *repository) loadAssociations(ctx context.Context, cart *models.Cart) error {
	items, err := r.ListItems(ctx, cart.ID)
	if err != nil {
		return err
	}
	cart.Items = items

	if cart.CouponID != nil {
		var coupon models.Coupon
		err := r.db.WithContext(ctx).
			Where("id = ?", *cart.CouponID).
			First(&coupon).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			cart.Coupon = &coupon
		}
	}
	return nil
}
