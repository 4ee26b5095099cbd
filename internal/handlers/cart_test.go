package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/snkrshop/internal/models"
)

var (
	cartByUserQuery  = regexp.QuoteMeta("SELECT id FROM carts WHERE user_id = ?")
	productByIDQuery = regexp.QuoteMeta("SELECT id FROM products WHERE id = ?")
	cartItemQuery    = regexp.QuoteMeta("SELECT id FROM cart_items WHERE cart_id = ? AND product_id = ?")
	itemInsert       = regexp.QuoteMeta("INSERT INTO cart_items")
	ownedItemQuery   = regexp.QuoteMeta("WHERE ci.id = ? AND ct.user_id = ?")
	itemDelete       = regexp.QuoteMeta("DELETE FROM cart_items WHERE id = ? AND cart_id = ?")
)

// newCartApp mounts the cart handler behind a stub that injects the
// authenticated user, standing in for the auth gate.
func newCartApp(db *sql.DB, userID string) *fiber.App {
	h := NewCartHandler(db)
	app := fiber.New()
	asUser := func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	}
	app.Post("/person/cart/:id/store", asUser, h.AddItem)
	app.Delete("/person/cart/:id/delete", asUser, h.RemoveItem)
	return app
}

func TestAddItemWithoutCartAnswersConflict(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	app := newCartApp(db, "user-1")

	mock.ExpectQuery(cartByUserQuery).WithArgs("user-1").WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest("POST", "/person/cart/prod-1/store", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAddItemRejectsSecondAddOfSameProduct(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	app := newCartApp(db, "user-1")

	// First add: cart resolves, product exists, no prior line, insert lands.
	mock.ExpectQuery(cartByUserQuery).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cart-1"))
	mock.ExpectQuery(productByIDQuery).WithArgs("prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prod-1"))
	mock.ExpectQuery(cartItemQuery).WithArgs("cart-1", "prod-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(itemInsert).WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("POST", "/person/cart/prod-1/store", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("first add: status = %d, want 201", resp.StatusCode)
	}
	var item models.CartItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if item.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", item.Quantity)
	}
	if item.CartID != "cart-1" || item.ProductID != "prod-1" {
		t.Errorf("item = %+v, want cart-1/prod-1", item)
	}

	// Second add of the same product: the existing line is found, no insert.
	mock.ExpectQuery(cartByUserQuery).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cart-1"))
	mock.ExpectQuery(productByIDQuery).WithArgs("prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prod-1"))
	mock.ExpectQuery(cartItemQuery).WithArgs("cart-1", "prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(item.ID))

	req = httptest.NewRequest("POST", "/person/cart/prod-1/store", nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("second add: status = %d, want 409", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAddItemLostRaceStillAnswersConflict(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	app := newCartApp(db, "user-1")

	// The pre-check sees no line, but a concurrent add wins the insert; the
	// unique (cart_id, product_id) index reports the duplicate.
	mock.ExpectQuery(cartByUserQuery).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cart-1"))
	mock.ExpectQuery(productByIDQuery).WithArgs("prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prod-1"))
	mock.ExpectQuery(cartItemQuery).WithArgs("cart-1", "prod-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(itemInsert).WillReturnError(
		errors.New(`Error 1062 (23000): Duplicate entry 'cart-1-prod-1' for key 'cart_items.uniq_cart_product'`))

	req := httptest.NewRequest("POST", "/person/cart/prod-1/store", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRemoveItemOutsideOwnCartAnswersNotFound(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	app := newCartApp(db, "user-1")

	// The item exists in another user's cart; the ownership-scoped lookup
	// finds nothing.
	mock.ExpectQuery(ownedItemQuery).WithArgs("item-9", "user-1").WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest("DELETE", "/person/cart/item-9/delete", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRemoveItemDeletesOwnLine(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	app := newCartApp(db, "user-1")

	mock.ExpectQuery(ownedItemQuery).WithArgs("item-1", "user-1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity"}).
			AddRow("item-1", "cart-1", "prod-1", 1))
	mock.ExpectExec(itemDelete).WithArgs("item-1", "cart-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("DELETE", "/person/cart/item-1/delete", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var item models.CartItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if item.ID != "item-1" || item.ProductID != "prod-1" {
		t.Errorf("item = %+v, want item-1/prod-1", item)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
