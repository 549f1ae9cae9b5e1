package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/yudhapratama/contactbook/config"
	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/domain/repository"
	pginfra "github.com/yudhapratama/contactbook/internal/infrastructure/postgres"
	"github.com/yudhapratama/contactbook/pkg/helpers"
)

// seed creates an initial confirmed admin account so a fresh deployment has
// someone who can reach the admin endpoints.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	email := envOr("SEED_ADMIN_EMAIL", "admin@example.com")
	username := envOr("SEED_ADMIN_USERNAME", "admin")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := pginfra.NewUserRepository(pool)

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	u := &entity.User{
		Email:     email,
		Username:  username,
		Password:  hash,
		Confirmed: true,
		Role:      entity.RoleAdmin,
	}
	if err := repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			log.Printf("admin %s already exists, nothing to do", email)
			return
		}
		log.Fatalf("failed to create admin: %v", err)
	}
	log.Printf("seeded admin %s (id=%s)", email, u.ID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
