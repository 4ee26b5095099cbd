package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/snkrshop/internal/activity"
	"github.com/yourorg/snkrshop/internal/models"
	"github.com/yourorg/snkrshop/internal/token"
)

// package-level dependencies
var (
	setupOnce sync.Once
	setupMu   sync.RWMutex
	dbConn    *sql.DB
)

// Setup wires shared dependencies for handlers. Call this during app bootstrap.
func Setup(db *sql.DB) {
	setupOnce.Do(func() {
		setupMu.Lock()
		defer setupMu.Unlock()
		dbConn = db
	})
}

func getDBConn() *sql.DB {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return dbConn
}

// queryTimeout bounds every storage call made on behalf of one request.
const queryTimeout = 5 * time.Second

func requestCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), queryTimeout)
}

// Login handles POST /login. Every failure path answers the client; nothing
// is log-only.
func Login(c *fiber.Ctx) error {
	db := getDBConn()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "server not ready"})
	}

	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || strings.TrimSpace(req.Password) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "email and password required"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	var (
		id, email, firstName, passwordHash string
	)
	err := db.QueryRowContext(ctx, `SELECT id, email, first_name, password_hash FROM users WHERE email = ?`, req.Email).
		Scan(&id, &email, &firstName, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "user not found"})
		}
		log.Printf("login: user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid credentials"})
	}

	signed, expiresAt, err := token.Issue(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to sign token"})
	}

	activity.Publish("auth.login", email, "user logged in", nil)

	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusOK).JSON(models.LoginResponse{
		Token:     signed,
		Email:     email,
		Name:      firstName,
		ID:        id,
		ExpiresAt: expiresAt,
	})
}
