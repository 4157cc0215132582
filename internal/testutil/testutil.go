// Package testutil provides in-memory backing stores for service tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
)

// NewDB opens a private in-memory SQLite database and migrates models into it.
// The pool is pinned to one connection so every query sees the same database.
func NewDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

// NewRedis starts a miniredis server bound to the test lifetime
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// Config returns a configuration suitable for service tests
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "farm-box-test", Environment: "test"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-that-is-at-least-32-characters",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4, RateLimitPerMinute: 100},
		Stripe:   config.StripeConfig{Currency: "usd", SessionTTL: time.Hour},
		Email:    config.EmailConfig{Provider: "log", FromEmail: "orders@test.local", FromName: "Farm Box"},
		Storefront: config.StorefrontConfig{
			Timezone:        "UTC",
			CutoffOffset:    71*time.Hour + 59*time.Minute,
			DefaultBoxSize:  "medium",
			DeliveryFee:     0,
			SelectionTTL:    24 * time.Hour,
			CatalogCacheTTL: 10 * time.Minute,
			CompanyName:     "Farm Box Co.",
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

// Clock returns a now function pinned to t
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
