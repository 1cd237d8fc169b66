package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/api/middleware"
	"github.com/evanhart/storefront-backend/api/responses"
	"github.com/evanhart/storefront-backend/api/validators"
	couponsvc "github.com/evanhart/storefront-backend/internal/coupons"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/pagination"
)

// AdminCreateCoupon handles coupon rule creation.
func AdminCreateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.CreateCoupon(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

// AdminUpdateCoupon handles partial coupon updates. Discount type and value
// stay fixed after creation.
func AdminUpdateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "couponId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon id"))
			return
		}

		var payload updateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.UpdateCoupon(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

// AdminCouponDetail returns a single coupon rule by id.
func AdminCouponDetail(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "couponId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon id"))
			return
		}

		coupon, err := svc.GetCoupon(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

// AdminCouponList pages through coupon rules.
func AdminCouponList(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListCoupons(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]couponResponse, 0, len(page.Coupons))
		for i := range page.Coupons {
			items = append(items, newCouponResponse(&page.Coupons[i]))
		}
		responses.WriteSuccess(w, couponListResponse{Coupons: items, NextCursor: page.NextCursor})
	}
}

// AdminIssueCoupon hands a coupon to a specific user.
func AdminIssueCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		couponID, err := uuid.Parse(chi.URLParam(r, "couponId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon id"))
			return
		}

		var payload issueCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issued, err := svc.IssueToUser(r.Context(), payload.UserID, couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newUserCouponResponse(issued))
	}
}

// MyCoupons lists the authenticated user's issued coupons, optionally
// narrowed to a status.
func MyCoupons(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		raw := middleware.UserIDFromContext(r.Context())
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		var status *enums.UserCouponStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseUserCouponStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		records, err := svc.ListUserCoupons(r.Context(), userID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]userCouponResponse, 0, len(records))
		for i := range records {
			items = append(items, newUserCouponResponse(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"coupons": items})
	}
}

type createCouponRequest struct {
	Code                 string     `json:"code" validate:"required,max=50"`
	Name                 string     `json:"name" validate:"required,max=200"`
	DiscountType         string     `json:"discount_type" validate:"required"`
	DiscountValue        int        `json:"discount_value" validate:"required,min=1"`
	MinPurchaseAmount    int        `json:"min_purchase_amount" validate:"min=0"`
	MaxDiscountAmount    *int       `json:"max_discount_amount" validate:"omitempty,min=1"`
	ApplicableCategories []string   `json:"applicable_categories"`
	UsageLimit           *int       `json:"usage_limit" validate:"omitempty,min=1"`
	ValidFrom            *time.Time `json:"valid_from"`
	ValidUntil           *time.Time `json:"valid_until"`
	IsActive             *bool      `json:"is_active"`
}

func (r createCouponRequest) toInput() (couponsvc.CreateCouponInput, error) {
	discountType, err := enums.ParseCouponDiscountType(r.DiscountType)
	if err != nil {
		return couponsvc.CreateCouponInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return couponsvc.CreateCouponInput{
		Code:                 r.Code,
		Name:                 validators.SanitizeString(r.Name, 200),
		DiscountType:         discountType,
		DiscountValue:        r.DiscountValue,
		MinPurchaseAmount:    r.MinPurchaseAmount,
		MaxDiscountAmount:    r.MaxDiscountAmount,
		ApplicableCategories: r.ApplicableCategories,
		UsageLimit:           r.UsageLimit,
		ValidFrom:            r.ValidFrom,
		ValidUntil:           r.ValidUntil,
		IsActive:             active,
	}, nil
}

type updateCouponRequest struct {
	Name              *string    `json:"name" validate:"omitempty,max=200"`
	MinPurchaseAmount *int       `json:"min_purchase_amount" validate:"omitempty,min=0"`
	MaxDiscountAmount *int       `json:"max_discount_amount" validate:"omitempty,min=1"`
	UsageLimit        *int       `json:"usage_limit" validate:"omitempty,min=1"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidUntil        *time.Time `json:"valid_until"`
	IsActive          *bool      `json:"is_active"`
}

func (r updateCouponRequest) toInput() couponsvc.UpdateCouponInput {
	return couponsvc.UpdateCouponInput{
		Name:              r.Name,
		MinPurchaseAmount: r.MinPurchaseAmount,
		MaxDiscountAmount: r.MaxDiscountAmount,
		UsageLimit:        r.UsageLimit,
		ValidFrom:         r.ValidFrom,
		ValidUntil:        r.ValidUntil,
		IsActive:          r.IsActive,
	}
}

type issueCouponRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type couponResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Code                 string     `json:"code"`
	Name                 string     `json:"name"`
	DiscountType         string     `json:"discount_type"`
	DiscountValue        int        `json:"discount_value"`
	MinPurchaseAmount    int        `json:"min_purchase_amount"`
	MaxDiscountAmount    *int       `json:"max_discount_amount,omitempty"`
	ApplicableCategories []string   `json:"applicable_categories,omitempty"`
	UsageLimit           *int       `json:"usage_limit,omitempty"`
	UsageCount           int        `json:"usage_count"`
	ValidFrom            *time.Time `json:"valid_from,omitempty"`
	ValidUntil           *time.Time `json:"valid_until,omitempty"`
	IsActive             bool       `json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type couponListResponse struct {
	Coupons    []couponResponse `json:"coupons"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type userCouponResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	CouponID  uuid.UUID       `json:"coupon_id"`
	Status    string          `json:"status"`
	UsedAt    *time.Time      `json:"used_at,omitempty"`
	Coupon    *couponResponse `json:"coupon,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func newCouponResponse(coupon *models.Coupon) couponResponse {
	return couponResponse{
		ID:                   coupon.ID,
		Code:                 coupon.Code,
		Name:                 coupon.Name,
		DiscountType:         string(coupon.DiscountType),
		DiscountValue:        coupon.DiscountValue,
		MinPurchaseAmount:    coupon.MinPurchaseAmount,
		MaxDiscountAmount:    coupon.MaxDiscountAmount,
		ApplicableCategories: []string(coupon.ApplicableCategories),
		UsageLimit:           coupon.UsageLimit,
		UsageCount:           coupon.UsageCount,
		ValidFrom:            coupon.ValidFrom,
		ValidUntil:           coupon.ValidUntil,
		IsActive:             coupon.IsActive,
		CreatedAt:            coupon.CreatedAt,
		UpdatedAt:            coupon.UpdatedAt,
	}
}

func newUserCouponResponse(record *models.UserCoupon) userCouponResponse {
	resp := userCouponResponse{
		ID:        record.ID,
		UserID:    record.UserID,
		CouponID:  record.CouponID,
		Status:    string(record.Status),
		UsedAt:    record.UsedAt,
		CreatedAt: record.CreatedAt,
	}
	if record.Coupon != nil {
		coupon := newCouponResponse(record.Coupon)
		resp.Coupon = &coupon
	}
	return resp
}
