package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/google/uuid"

	"github.com/chirpnet/chirpnet/domain/entity"
	"github.com/chirpnet/chirpnet/infrastructure/config"
	"github.com/chirpnet/chirpnet/infrastructure/persistence/postgres"
	"github.com/chirpnet/chirpnet/infrastructure/service/credstore"
)

func main() {
	email := flag.String("email", "admin@chirpnet.local", "admin email")
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *password == "" {
		log.Fatal("-password is required")
	}
	if len(*password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	userRepo := postgres.NewUserRepository(db)
	credentialStore := credstore.NewPostgresStore(db, cfg.BcryptCost)

	userID := uuid.New().String()

	if err := credentialStore.CreateUser(ctx, userID, *email, *password); err != nil {
		log.Fatalf("Failed to create credentials: %v", err)
	}
	if err := credentialStore.ConfirmEmail(ctx, userID); err != nil {
		log.Fatalf("Failed to confirm email: %v", err)
	}

	admin := entity.NewUser(userID, *username, *email, "", "")
	admin.Role = entity.RoleAdmin
	admin.IsVerified = true

	if err := userRepo.Create(ctx, admin); err != nil {
		credentialStore.DeleteUser(ctx, userID)
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created: %s (%s)\n", *username, userID)
}
