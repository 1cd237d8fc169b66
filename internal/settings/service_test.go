package settings

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
)

type stubSettingsRepo struct {
	values map[string]string
	finds  int
}

func (s *stubSettingsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSettingsRepo) Find(ctx context.Context, key string) (*models.Setting, error) {
	s.finds++
	value, ok := s.values[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Setting{Key: key, Value: value}, nil
}

func (s *stubSettingsRepo) Upsert(ctx context.Context, setting *models.Setting) error {
	s.values[setting.Key] = setting.Value
	return nil
}

func (s *stubSettingsRepo) List(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	for key, value := range s.values {
		settings = append(settings, models.Setting{Key: key, Value: value})
	}
	return settings, nil
}

type stubCache struct {
	entries map[string]string
	sets    int
	dels    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string]string{}}
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.entries[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *stubCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.sets++
	s.entries[key] = value.(string)
	return nil
}

func (s *stubCache) Del(ctx context.Context, keys ...string) error {
	s.dels++
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *stubCache) SettingKey(name string) string {
	return "sf:setting:" + name
}

func TestGetReadsThroughCache(t *testing.T) {
	repo := &stubSettingsRepo{values: map[string]string{"banner": "Summer Sale"}}
	store := newStubCache()
	svc, err := NewService(repo, store, time.Minute)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	ctx := context.Background()

	value, err := svc.Get(ctx, "banner")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if value != "Summer Sale" {
		t.Fatalf("expected Summer Sale, got %q", value)
	}
	if repo.finds != 1 || store.sets != 1 {
		t.Fatalf("expected one db read and one cache fill, got %d/%d", repo.finds, store.sets)
	}

	// Second read is served from the cache.
	if _, err := svc.Get(ctx, "banner"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if repo.finds != 1 {
		t.Fatalf("expected cached read, db hit %d times", repo.finds)
	}
}

func TestSetInvalidatesCache(t *testing.T) {
	repo := &stubSettingsRepo{values: map[string]string{}}
	store := newStubCache()
	svc, err := NewService(repo, store, time.Minute)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.Set(ctx, "banner", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := svc.Get(ctx, "banner"); err != nil {
		t.Fatalf("get: %v", err)
	}

	if _, err := svc.Set(ctx, "banner", "v2"); err != nil {
		t.Fatalf("second set: %v", err)
	}
	if store.dels != 2 {
		t.Fatalf("expected cache invalidation on every write, got %d", store.dels)
	}

	value, err := svc.Get(ctx, "banner")
	if err != nil {
		t.Fatalf("get after write: %v", err)
	}
	if value != "v2" {
		t.Fatalf("expected v2 after invalidation, got %q", value)
	}
}

func TestGetMissingSetting(t *testing.T) {
	repo := &stubSettingsRepo{values: map[string]string{}}
	svc, err := NewService(repo, newStubCache(), time.Minute)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Get(context.Background(), "missing")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.Get(context.Background(), "  ")
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
