package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartsvc "github.com/evanhart/storefront-backend/internal/cart"
	couponsvc "github.com/evanhart/storefront-backend/internal/coupons"
	ordersvc "github.com/evanhart/storefront-backend/internal/orders"
	paymentsvc "github.com/evanhart/storefront-backend/internal/payments"
	productsvc "github.com/evanhart/storefront-backend/internal/products"
	pkgAuth "github.com/evanhart/storefront-backend/pkg/auth"
	"github.com/evanhart/storefront-backend/pkg/config"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubProductService struct{}

func (stubProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) ListProducts(ctx context.Context, params pagination.Params, filters productsvc.ListFilters) (*productsvc.ProductList, error) {
	return &productsvc.ProductList{}, nil
}

func (stubProductService) CreateProduct(ctx context.Context, input productsvc.CreateProductInput) (*models.Product, error) {
	return &models.Product{ID: uuid.New(), Name: input.Name}, nil
}

func (stubProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input productsvc.UpdateProductInput) (*models.Product, error) {
	panic("unimplemented")
}

type stubCouponService struct{}

func (stubCouponService) CreateCoupon(ctx context.Context, input couponsvc.CreateCouponInput) (*models.Coupon, error) {
	panic("unimplemented")
}

func (stubCouponService) UpdateCoupon(ctx context.Context, id uuid.UUID, input couponsvc.UpdateCouponInput) (*models.Coupon, error) {
	panic("unimplemented")
}

func (stubCouponService) GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	panic("unimplemented")
}

func (stubCouponService) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	panic("unimplemented")
}

func (stubCouponService) ListCoupons(ctx context.Context, params pagination.Params) (*couponsvc.CouponList, error) {
	return &couponsvc.CouponList{}, nil
}

func (stubCouponService) IssueToUser(ctx context.Context, userID, couponID uuid.UUID) (*models.UserCoupon, error) {
	panic("unimplemented")
}

func (stubCouponService) ListUserCoupons(ctx context.Context, userID uuid.UUID, status *enums.UserCouponStatus) ([]models.UserCoupon, error) {
	return nil, nil
}

func (stubCouponService) ValidateForUser(ctx context.Context, userID *uuid.UUID, couponID uuid.UUID, at time.Time) (*models.Coupon, error) {
	panic("unimplemented")
}

func (stubCouponService) RedeemInTx(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, couponID uuid.UUID, at time.Time) error {
	panic("unimplemented")
}

func (stubCouponService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	panic("unimplemented")
}

type stubCartService struct{}

func (stubCartService) GetCart(ctx context.Context, owner cartsvc.Owner) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: owner.UserID, SessionID: owner.SessionID}, nil
}

func (stubCartService) AddItem(ctx context.Context, owner cartsvc.Owner, productID uuid.UUID, quantity int) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) UpdateItemQuantity(ctx context.Context, owner cartsvc.Owner, productID uuid.UUID, quantity int) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) RemoveItem(ctx context.Context, owner cartsvc.Owner, productID uuid.UUID) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) ApplyCoupon(ctx context.Context, owner cartsvc.Owner, couponID uuid.UUID) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) RemoveCoupon(ctx context.Context, owner cartsvc.Owner) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) Clear(ctx context.Context, owner cartsvc.Owner) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) ConvertInTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, at time.Time) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) ExpireIdle(ctx context.Context, idleTTL time.Duration, now time.Time) (int64, error) {
	panic("unimplemented")
}

type stubOrderService struct{}

func (stubOrderService) CreateFromCart(ctx context.Context, input ordersvc.CheckoutInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) ListOrders(ctx context.Context, params pagination.Params, filters ordersvc.ListFilters) (*ordersvc.OrderList, error) {
	return &ordersvc.OrderList{}, nil
}

func (stubOrderService) TransitionStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	panic("unimplemented")
}

type stubPaymentService struct{}

func (stubPaymentService) OpenInTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error) {
	panic("unimplemented")
}

func (stubPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return &models.Payment{ID: id, Status: enums.PaymentStatusPending}, nil
}

func (stubPaymentService) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	panic("unimplemented")
}

func (stubPaymentService) Confirm(ctx context.Context, input paymentsvc.ConfirmInput) (*models.Payment, error) {
	panic("unimplemented")
}

func (stubPaymentService) Cancel(ctx context.Context, input paymentsvc.CancelInput) (*models.Payment, error) {
	panic("unimplemented")
}

func (stubPaymentService) MarkFailed(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	panic("unimplemented")
}

func (stubPaymentService) RecomputeBalance(ctx context.Context, paymentID uuid.UUID) (*paymentsvc.BalanceReport, error) {
	panic("unimplemented")
}

type stubSettingService struct{}

func (stubSettingService) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (stubSettingService) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	panic("unimplemented")
}

func (stubSettingService) List(ctx context.Context) ([]models.Setting, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		Services{
			Products: stubProductService{},
			Coupons:  stubCouponService{},
			Cart:     stubCartService{},
			Orders:   stubOrderService{},
			Payments: stubPaymentService{},
			Settings: stubSettingService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role pkgAuth.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestProductListIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d", resp.Code)
	}
}

func TestCartAcceptsGuestSession(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", "guest-session-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for guest cart got %d", resp.Code)
	}
}

func TestCartRejectsAnonymousWithoutSession(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session or token got %d", resp.Code)
	}
}

func TestCartAcceptsAuthenticatedUser(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for signed-in cart got %d", resp.Code)
	}
}

func TestMyOrdersRequiresJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	missing := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestGatewayCallbackRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+uuid.NewString()+"/confirm", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty confirm payload got %d", resp.Code)
	}
}
