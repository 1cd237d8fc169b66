package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evanhart/storefront-backend/api/responses"
	"github.com/evanhart/storefront-backend/api/validators"
	settingsvc "github.com/evanhart/storefront-backend/internal/settings"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/logger"
)

// AdminSettingList returns every stored setting row.
func AdminSettingList(svc settingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		records, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]settingResponse, 0, len(records))
		for i := range records {
			items = append(items, newSettingResponse(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"settings": items})
	}
}

// AdminSettingGet reads one setting through the cache.
func AdminSettingGet(svc settingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		key := chi.URLParam(r, "key")
		value, err := svc.Get(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"key": key, "value": value})
	}
}

// AdminSettingPut writes a setting and invalidates its cache entry.
func AdminSettingPut(svc settingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload putSettingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Set(r.Context(), chi.URLParam(r, "key"), payload.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSettingResponse(record))
	}
}

type putSettingRequest struct {
	Value string `json:"value" validate:"required"`
}

type settingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newSettingResponse(record *models.Setting) settingResponse {
	return settingResponse{Key: record.Key, Value: record.Value, UpdatedAt: record.UpdatedAt}
}
