// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/payment"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/infrastructure/database/postgres"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/infrastructure/database/redis"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/interfaces/http"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/interfaces/http/routes"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg)

	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := db.Health(); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}

	if err := redisClient.Health(); err != nil {
		log.Fatalf("Redis health check failed: %v", err)
	}

	migration := postgres.NewMigration(db.GetDB())

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		log.Printf("Warning: Index creation failed: %v", err)
	}

	if err := migration.SeedInitialData(); err != nil {
		log.Printf("Warning: Data seeding failed: %v", err)
	}

	if cfg.IsDevelopment() {
		migration.GetTableInfo()
	}

	deps := routes.NewDependencies(db.GetDB(), redisClient.GetClient(), cfg, appLogger, payment.NewStripeService(cfg, appLogger))

	if cfg.App.AdminEmail != "" && cfg.App.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := deps.Users.EnsureAdmin(ctx, cfg.App.AdminEmail, cfg.App.AdminPassword)
		cancel()
		switch {
		case err != nil:
			log.Printf("Warning: Admin seeding failed: %v", err)
		case created:
			log.Printf("👤 Admin account created for %s", cfg.App.AdminEmail)
		}
	}

	log.Println("✅ All systems operational!")

	server := http.NewServer(cfg, db.GetDB(), redisClient.GetClient(), deps, appLogger)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	log.Println("✅ Server shutdown completed")
}
