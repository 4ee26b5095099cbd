package db

import (
	"database/sql"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/snkrshop/internal/config"
)

// SeedAdmin provisions a first account, with its cart, when the users table
// is empty. Carts are only ever created alongside accounts, never lazily.
func SeedAdmin(db *sql.DB) error {
	cfg := config.AppConfig
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	userID := uuid.NewString()
	if _, err := tx.Exec(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, position)
		VALUES (?, ?, ?, 'Admin', '', 'administrator')
	`, userID, cfg.AdminEmail, string(hash)); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO carts (id, user_id) VALUES (?, ?)`, uuid.NewString(), userID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("seeded admin account %s", cfg.AdminEmail)
	return nil
}
