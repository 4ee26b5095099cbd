package handlers

import (
	"database/sql"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/yourorg/snkrshop/internal/activity"
	"github.com/yourorg/snkrshop/internal/middleware"
	"github.com/yourorg/snkrshop/internal/models"
)

type CartHandler struct {
	db *sql.DB
}

func NewCartHandler(db *sql.DB) *CartHandler {
	return &CartHandler{db: db}
}

// AddItem handles POST /person/cart/:id/store, where :id is the product id.
// A product appears at most once per cart: a repeat add is rejected with 409,
// never merged into the quantity. Carts are provisioned at account creation;
// this handler does not create one.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "authentication required"})
	}
	productID := c.Params("id")

	ctx, cancel := requestCtx(c)
	defer cancel()

	var cartID string
	err := h.db.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = ?`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "user cart not found"})
		}
		log.Printf("cart add: cart lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	var existsID string
	err = h.db.QueryRowContext(ctx, `SELECT id FROM products WHERE id = ?`, productID).Scan(&existsID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "product not found"})
		}
		log.Printf("cart add: product lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	err = h.db.QueryRowContext(ctx, `SELECT id FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID).Scan(&existsID)
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "product already in cart"})
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("cart add: item check failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	item := models.CartItem{
		ID:        uuid.NewString(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  1,
	}
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES (?, ?, ?, 1)
	`, item.ID, item.CartID, item.ProductID)
	if err != nil {
		// The unique (cart_id, product_id) index is the authority when the
		// pre-check raced another add.
		if isDuplicateEntry(err) {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "product already in cart"})
		}
		log.Printf("cart add: insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	activity.Publish("cart.add", userID, "product added to cart", map[string]interface{}{
		"productId": productID,
	})

	return c.Status(fiber.StatusCreated).JSON(item)
}

// RemoveItem handles DELETE /person/cart/:id/delete, where :id is the cart
// item id. Deletion is scoped to the caller's own cart; an item id belonging
// to someone else's cart answers 404.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "authentication required"})
	}
	itemID := c.Params("id")

	ctx, cancel := requestCtx(c)
	defer cancel()

	var item models.CartItem
	err := h.db.QueryRowContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity
		FROM cart_items ci
		JOIN carts ct ON ct.id = ci.cart_id
		WHERE ci.id = ? AND ct.user_id = ?
	`, itemID, userID).Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "cart item not found"})
		}
		log.Printf("cart remove: lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	if _, err := h.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND cart_id = ?`, item.ID, item.CartID); err != nil {
		log.Printf("cart remove: delete failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	activity.Publish("cart.remove", userID, "product removed from cart", map[string]interface{}{
		"productId": item.ProductID,
	})

	return c.Status(fiber.StatusOK).JSON(item)
}

// ListItems handles GET /person/cart: every item of the caller's cart joined
// with its product.
func (h *CartHandler) ListItems(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "authentication required"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	rows, err := h.db.QueryContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
		       p.id, p.name, p.code, p.type, p.price, p.attachment_equip
		FROM cart_items ci
		JOIN carts ct ON ct.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE ct.user_id = ?
	`, userID)
	if err != nil {
		log.Printf("cart list: query failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	defer rows.Close()

	items := make([]models.CartItem, 0)
	for rows.Next() {
		var item models.CartItem
		var p models.Product
		var attachment sql.NullString
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&p.ID, &p.Name, &p.Code, &p.Type, &p.Price, &attachment); err != nil {
			log.Printf("cart list: scan failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
		}
		p.AttachmentEquip = attachment.String
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		log.Printf("cart list: rows failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}

	return c.Status(fiber.StatusOK).JSON(items)
}
