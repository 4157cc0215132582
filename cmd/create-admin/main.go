// cmd/create-admin/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/user"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/infrastructure/database/postgres"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: go run ./cmd/create-admin <email> <password>")
	}
	email, password := os.Args[1], os.Args[2]

	if err := auth.ValidatePassword(password); err != nil {
		log.Fatalf("Invalid password: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.GetDB().AutoMigrate(&user.User{}); err != nil {
		log.Fatalf("Failed to migrate users: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Token revocation is not needed here, so no Redis client
	users := user.NewService(db.GetDB(), nil, cfg, logger.New(cfg))
	created, err := users.EnsureAdmin(ctx, email, password)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	if !created {
		fmt.Printf("⏭️  An account for %s already exists, nothing changed\n", email)
		return
	}
	fmt.Printf("✅ Admin account created for %s\n", email)
}
