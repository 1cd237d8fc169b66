package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
)

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SettingKey(name string) string
}

// Service exposes storefront settings with a redis read-through cache.
type Service interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
}

type service struct {
	repo     Repository
	cache    cache
	cacheTTL time.Duration
}

// NewService builds a settings service backed by the provided stack.
func NewService(repo Repository, store cache, cacheTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("settings cache required")
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &service{
		repo:     repo,
		cache:    store,
		cacheTTL: cacheTTL,
	}, nil
}

// Get reads through the cache. A cache failure degrades to a database read
// rather than surfacing an error.
func (s *service) Get(ctx context.Context, key string) (string, error) {
	normalized := strings.TrimSpace(key)
	if normalized == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}

	// Both a miss (redis.Nil) and cache trouble fall through to the database.
	cacheKey := s.cache.SettingKey(normalized)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		return cached, nil
	} else if !errors.Is(err, goredis.Nil) && ctx.Err() != nil {
		return "", ctx.Err()
	}

	setting, err := s.repo.Find(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setting")
	}

	_ = s.cache.Set(ctx, cacheKey, setting.Value, s.cacheTTL)
	return setting.Value, nil
}

// Set writes the value and drops the cached copy so the next read refills it.
func (s *service) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	normalized := strings.TrimSpace(key)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}

	setting := &models.Setting{Key: normalized, Value: value}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save setting")
	}

	_ = s.cache.Del(ctx, s.cache.SettingKey(normalized))
	return setting, nil
}

func (s *service) List(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settings")
	}
	return settings, nil
}
