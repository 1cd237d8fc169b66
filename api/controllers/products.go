package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/api/responses"
	"github.com/evanhart/storefront-backend/api/validators"
	productsvc "github.com/evanhart/storefront-backend/internal/products"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/pagination"
)

// ProductList handles the public catalog listing.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := productsvc.ListFilters{ActiveOnly: true}
		if category := validators.SanitizeString(r.URL.Query().Get("category"), 100); category != "" {
			filters.Category = &category
		}

		page, err := svc.ListProducts(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductListResponse(page))
	}
}

// ProductDetail handles public product fetch by id.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// AdminCreateProduct handles catalog row creation by back-office operators.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

// AdminUpdateProduct handles partial catalog updates.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

type createProductRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	Category       string `json:"category" validate:"max=100"`
	PriceAmount    int    `json:"price_amount" validate:"min=0"`
	DiscountAmount int    `json:"discount_amount" validate:"min=0"`
	StockQuantity  int    `json:"stock_quantity" validate:"min=0"`
	IsActive       *bool  `json:"is_active"`
}

func (r createProductRequest) toInput() productsvc.CreateProductInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return productsvc.CreateProductInput{
		Name:           validators.SanitizeString(r.Name, 200),
		Category:       validators.SanitizeString(r.Category, 100),
		PriceAmount:    r.PriceAmount,
		DiscountAmount: r.DiscountAmount,
		StockQuantity:  r.StockQuantity,
		IsActive:       active,
	}
}

type updateProductRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=200"`
	Category       *string `json:"category" validate:"omitempty,max=100"`
	PriceAmount    *int    `json:"price_amount" validate:"omitempty,min=0"`
	DiscountAmount *int    `json:"discount_amount" validate:"omitempty,min=0"`
	StockQuantity  *int    `json:"stock_quantity" validate:"omitempty,min=0"`
	IsActive       *bool   `json:"is_active"`
}

func (r updateProductRequest) toInput() productsvc.UpdateProductInput {
	return productsvc.UpdateProductInput{
		Name:           r.Name,
		Category:       r.Category,
		PriceAmount:    r.PriceAmount,
		DiscountAmount: r.DiscountAmount,
		StockQuantity:  r.StockQuantity,
		IsActive:       r.IsActive,
	}
}

type productResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	PriceAmount    int       `json:"price_amount"`
	DiscountAmount int       `json:"discount_amount"`
	StockQuantity  int       `json:"stock_quantity"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type productListResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func newProductResponse(product *models.Product) productResponse {
	return productResponse{
		ID:             product.ID,
		Name:           product.Name,
		Category:       product.Category,
		PriceAmount:    product.PriceAmount,
		DiscountAmount: product.DiscountAmount,
		StockQuantity:  product.StockQuantity,
		IsActive:       product.IsActive,
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}
}

func newProductListResponse(page *productsvc.ProductList) productListResponse {
	items := make([]productResponse, 0, len(page.Products))
	for i := range page.Products {
		items = append(items, newProductResponse(&page.Products[i]))
	}
	return productListResponse{Products: items, NextCursor: page.NextCursor}
}
