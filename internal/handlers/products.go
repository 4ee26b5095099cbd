package handlers

import (
	"database/sql"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/yourorg/snkrshop/internal/activity"
	"github.com/yourorg/snkrshop/internal/cache"
	"github.com/yourorg/snkrshop/internal/models"
)

type ProductHandler struct {
	db *sql.DB
}

func NewProductHandler(db *sql.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// allowedAttachment reports whether the attachment filename carries an
// accepted extension. An empty or blank reference means "no attachment" and
// is always fine.
func allowedAttachment(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".jpg", ".png", ".jpeg":
		return true
	}
	return false
}

func isDuplicateEntry(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}

// Store handles POST /products/store.
func (h *ProductHandler) Store(c *fiber.Ctx) error {
	var req models.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	req.AttachmentEquip = strings.TrimSpace(req.AttachmentEquip)

	if req.Name == "" || req.Code == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "name and code required"})
	}
	if !allowedAttachment(req.AttachmentEquip) {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(models.ErrorResponse{Error: "unsupported document format"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	// Friendlier messages for the common case. The unique indexes remain the
	// authority: a lost race still comes back as a duplicate-key error below.
	var existingID string
	err := h.db.QueryRowContext(ctx, `SELECT id FROM products WHERE name = ?`, req.Name).Scan(&existingID)
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "product already exists"})
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("product store: name check failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	err = h.db.QueryRowContext(ctx, `SELECT id FROM products WHERE code = ?`, req.Code).Scan(&existingID)
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "code already exists"})
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("product store: code check failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	product := models.Product{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Code:            req.Code,
		Type:            req.Type,
		Price:           req.Price,
		AttachmentEquip: req.AttachmentEquip,
	}
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO products (id, name, code, type, price, attachment_equip)
		VALUES (?, ?, ?, ?, ?, ?)
	`, product.ID, product.Name, product.Code, product.Type, product.Price,
		sql.NullString{String: product.AttachmentEquip, Valid: product.AttachmentEquip != ""})
	if err != nil {
		if isDuplicateEntry(err) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "product name or code already exists"})
		}
		log.Printf("product store: insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	cache.InvalidateProducts()
	activity.Publish("product.created", "", "product created", map[string]interface{}{
		"productId": product.ID,
		"name":      product.Name,
	})

	return c.Status(fiber.StatusCreated).JSON(product)
}

// List handles GET /products.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	if cached, found := cache.Products.Get("products:all"); found {
		return c.Status(fiber.StatusOK).JSON(cached)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, name, code, type, price, attachment_equip, created_at
		FROM products
	`)
	if err != nil {
		log.Printf("product list: query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		var attachment sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Type, &p.Price, &attachment, &p.CreatedAt); err != nil {
			log.Printf("product list: scan failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
		}
		p.AttachmentEquip = attachment.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		log.Printf("product list: rows failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	cache.Products.Set("products:all", products)
	return c.Status(fiber.StatusOK).JSON(products)
}

// Show handles GET /product/:id/show. Public endpoint.
func (h *ProductHandler) Show(c *fiber.Ctx) error {
	id := c.Params("id")

	if cached, found := cache.Products.Get("product:" + id); found {
		return c.Status(fiber.StatusOK).JSON(cached)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	var p models.Product
	var attachment sql.NullString
	err := h.db.QueryRowContext(ctx, `
		SELECT id, name, code, type, price, attachment_equip, created_at
		FROM products WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Code, &p.Type, &p.Price, &attachment, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "product not found"})
		}
		log.Printf("product show: query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	p.AttachmentEquip = attachment.String

	cache.Products.Set("product:"+id, p)
	return c.Status(fiber.StatusOK).JSON(p)
}

// Update handles PUT /product/:id/edit.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	req.AttachmentEquip = strings.TrimSpace(req.AttachmentEquip)

	if req.Name == "" || req.Code == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "name and code required"})
	}
	if !allowedAttachment(req.AttachmentEquip) {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(models.ErrorResponse{Error: "unsupported document format"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	var existingID string
	err := h.db.QueryRowContext(ctx, `SELECT id FROM products WHERE id = ?`, id).Scan(&existingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "product not found"})
		}
		log.Printf("product update: lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	_, err = h.db.ExecContext(ctx, `
		UPDATE products SET name = ?, code = ?, type = ?, price = ?, attachment_equip = ?
		WHERE id = ?
	`, req.Name, req.Code, req.Type, req.Price,
		sql.NullString{String: req.AttachmentEquip, Valid: req.AttachmentEquip != ""}, id)
	if err != nil {
		if isDuplicateEntry(err) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "product name or code already exists"})
		}
		log.Printf("product update: update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	cache.InvalidateProducts()
	activity.Publish("product.updated", "", "product updated", map[string]interface{}{"productId": id})

	return c.Status(fiber.StatusOK).JSON(models.Product{
		ID:              id,
		Name:            req.Name,
		Code:            req.Code,
		Type:            req.Type,
		Price:           req.Price,
		AttachmentEquip: req.AttachmentEquip,
	})
}

// Delete handles DELETE /product/:id/delete. Cart rows referencing the
// product go with it (FK cascade).
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		log.Printf("product delete: delete failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "product not found"})
	}

	cache.InvalidateProducts()
	activity.Publish("product.deleted", "", "product deleted", map[string]interface{}{"productId": id})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": id})
}
