package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/snkrshop/internal/config"
	"github.com/yourorg/snkrshop/internal/models"
)

type FileHandler struct {
	db *sql.DB
}

func NewFileHandler(db *sql.DB) *FileHandler {
	return &FileHandler{db: db}
}

// Show handles GET /file/:id/show: serves the attachment of the given
// product from the upload directory. Only the basename of the stored
// reference is resolved, so a crafted filename cannot escape the directory.
func (h *FileHandler) Show(c *fiber.Ctx) error {
	id := c.Params("id")

	ctx, cancel := requestCtx(c)
	defer cancel()

	var attachment sql.NullString
	err := h.db.QueryRowContext(ctx, `SELECT attachment_equip FROM products WHERE id = ?`, id).Scan(&attachment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: fmt.Sprintf("product with id %s was not found", id)})
		}
		log.Printf("file show: lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	name := strings.TrimSpace(attachment.String)
	if name == "" {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "product has no attachment"})
	}

	path := filepath.Join(config.AppConfig.UploadDir, filepath.Base(name))
	if err := c.SendFile(path); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "attachment file not found"})
	}
	return nil
}
