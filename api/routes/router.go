package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evanhart/storefront-backend/api/controllers"
	"github.com/evanhart/storefront-backend/api/middleware"
	cartsvc "github.com/evanhart/storefront-backend/internal/cart"
	couponsvc "github.com/evanhart/storefront-backend/internal/coupons"
	ordersvc "github.com/evanhart/storefront-backend/internal/orders"
	paymentsvc "github.com/evanhart/storefront-backend/internal/payments"
	productsvc "github.com/evanhart/storefront-backend/internal/products"
	settingsvc "github.com/evanhart/storefront-backend/internal/settings"
	"github.com/evanhart/storefront-backend/pkg/config"
	"github.com/evanhart/storefront-backend/pkg/db"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/redis"
)

// Services bundles everything the router mounts. Keeping it a struct saves
// the mains from a two-screen constructor call.
type Services struct {
	Products productsvc.Service
	Coupons  couponsvc.Service
	Cart     cartsvc.Service
	Orders   ordersvc.Service
	Payments paymentsvc.Service
	Settings settingsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, dbP, redisP))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svcs.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(svcs.Products, logg))
		})

		// Cart and checkout serve both signed-in users and guests keyed by
		// the X-Session-Id header.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthOptional(cfg.JWT, logg))
			r.Use(middleware.Session())

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svcs.Cart, logg))
				r.Delete("/", controllers.CartClear(svcs.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(svcs.Cart, logg))
				r.Post("/coupon", controllers.CartApplyCoupon(svcs.Cart, logg))
				r.Delete("/coupon", controllers.CartRemoveCoupon(svcs.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(svcs.Orders, logg))
		})

		// Gateway callbacks carry no customer token; the payment id plus the
		// gateway payment key are the authentication surface.
		r.Route("/payments", func(r chi.Router) {
			r.Post("/{paymentId}/confirm", controllers.PaymentConfirm(svcs.Payments, logg))
			r.Post("/{paymentId}/fail", controllers.PaymentFail(svcs.Payments, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/me/coupons", controllers.MyCoupons(svcs.Coupons, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.MyOrders(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(svcs.Products, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(svcs.Products, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminCouponList(svcs.Coupons, logg))
			r.Post("/", controllers.AdminCreateCoupon(svcs.Coupons, logg))
			r.Get("/{couponId}", controllers.AdminCouponDetail(svcs.Coupons, logg))
			r.Patch("/{couponId}", controllers.AdminUpdateCoupon(svcs.Coupons, logg))
			r.Post("/{couponId}/issue", controllers.AdminIssueCoupon(svcs.Coupons, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/status", controllers.AdminTransitionOrder(svcs.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/{paymentId}", controllers.PaymentDetail(svcs.Payments, logg))
			r.Post("/{paymentId}/cancel", controllers.PaymentCancel(svcs.Payments, logg))
			r.Get("/{paymentId}/balance", controllers.AdminPaymentBalance(svcs.Payments, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.AdminSettingList(svcs.Settings, logg))
			r.Get("/{key}", controllers.AdminSettingGet(svcs.Settings, logg))
			r.Put("/{key}", controllers.AdminSettingPut(svcs.Settings, logg))
		})
	})

	return r
}
