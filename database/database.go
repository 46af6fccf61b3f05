package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	config "github.com/anjiri1684/skillazon/configs"
	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ConnectDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Println("✅ Database connected successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Println("✅ Database migration successful")
	return nil
}

// OpenStore picks the storage backend. With fallback enabled a failed
// postgres connection degrades to the in-memory store instead of exiting.
func OpenStore(cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		log.Println("⚠️ Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := ConnectDB(cfg.URL)
	if err == nil {
		err = Migrate(db)
	}
	if err != nil {
		if !cfg.Fallback {
			return nil, err
		}
		log.Printf("⚠️ %v; falling back to in-memory store", err)
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(db), nil
}

// SeedAdmin creates the admin account once. It is a no-op when the email
// already exists or no admin credentials are configured.
func SeedAdmin(ctx context.Context, s store.Store, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		log.Println("⚠️ ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	return s.Transaction(ctx, func(tx store.Tx) error {
		_, err := tx.GetUserByEmail(ctx, cfg.Email)
		if err == nil {
			log.Println("Admin user already exists.")
			return nil
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("check for admin user: %w", err)
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}

		admin := &models.User{
			ID:           uuid.New(),
			Username:     cfg.Username,
			Email:        cfg.Email,
			Password:     string(hashedPassword),
			Capabilities: models.Capabilities{CanTeach: true, CanLearn: true},
			IsAdmin:      true,
			IsActive:     true,
			Profile:      models.Profile{TimeZone: "UTC"},
		}
		if err := tx.CreateUser(ctx, admin); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
		log.Println("✅ Admin user seeded successfully")
		return nil
	})
}
