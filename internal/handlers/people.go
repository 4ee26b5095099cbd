package handlers

import (
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/snkrshop/internal/activity"
	"github.com/yourorg/snkrshop/internal/models"
)

type PersonHandler struct {
	db *sql.DB
}

func NewPersonHandler(db *sql.DB) *PersonHandler {
	return &PersonHandler{db: db}
}

// Store handles POST /person/store. The account and its cart are created in
// one transaction; carts exist from registration onward, never lazily.
func (h *PersonHandler) Store(c *fiber.Ctx) error {
	var req models.PersonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)

	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "firstName, email and password required"})
	}
	if !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "invalid email"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	var existingID string
	err := h.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, req.Email).Scan(&existingID)
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "e-mail already exists"})
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("person store: email check failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to secure password"})
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("person store: begin failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	defer tx.Rollback()

	userID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, position, phone, cpf, date_birth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, req.Email, string(hash), req.FirstName, req.LastName, req.Position, req.Phone, req.CPF, req.DateBirth)
	if err != nil {
		if isDuplicateEntry(err) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "e-mail already exists"})
		}
		log.Printf("person store: insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO carts (id, user_id) VALUES (?, ?)`, uuid.NewString(), userID); err != nil {
		log.Printf("person store: cart insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	if err := tx.Commit(); err != nil {
		log.Printf("person store: commit failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	activity.Publish("person.created", req.Email, "account created", map[string]interface{}{"userId": userID})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": userID})
}

// All handles GET /person/all. Public endpoint; password hashes never leave
// the database layer.
func (h *PersonHandler) All(c *fiber.Ctx) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, email, first_name, last_name, position, phone, cpf, date_birth, created_at
		FROM users
	`)
	if err != nil {
		log.Printf("person all: query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	defer rows.Close()

	people := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Position, &u.Phone, &u.CPF, &u.DateBirth, &u.CreatedAt); err != nil {
			log.Printf("person all: scan failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
		}
		people = append(people, u)
	}
	if err := rows.Err(); err != nil {
		log.Printf("person all: rows failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	return c.Status(fiber.StatusOK).JSON(people)
}

// Update handles PUT /person/:id/update. Password is re-hashed only when the
// request carries one.
func (h *PersonHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.PersonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "invalid email"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	var existingID string
	err := h.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ?`, id).Scan(&existingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "person not found"})
		}
		log.Printf("person update: lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to secure password"})
		}
		_, err = h.db.ExecContext(ctx, `
			UPDATE users SET email = ?, password_hash = ?, first_name = ?, last_name = ?, position = ?, phone = ?, cpf = ?, date_birth = ?
			WHERE id = ?
		`, req.Email, string(hash), req.FirstName, req.LastName, req.Position, req.Phone, req.CPF, req.DateBirth, id)
		if err != nil {
			if isDuplicateEntry(err) {
				return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "e-mail already exists"})
			}
			log.Printf("person update: update failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
		}
	} else {
		_, err = h.db.ExecContext(ctx, `
			UPDATE users SET email = ?, first_name = ?, last_name = ?, position = ?, phone = ?, cpf = ?, date_birth = ?
			WHERE id = ?
		`, req.Email, req.FirstName, req.LastName, req.Position, req.Phone, req.CPF, req.DateBirth, id)
		if err != nil {
			if isDuplicateEntry(err) {
				return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "e-mail already exists"})
			}
			log.Printf("person update: update failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": id})
}

// Delete handles DELETE /person/:id/delete. The user's cart and its items go
// with the account (FK cascade).
func (h *PersonHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		log.Printf("person delete: delete failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "person not found"})
	}

	activity.Publish("person.deleted", "", "account deleted", map[string]interface{}{"userId": id})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": id})
}
