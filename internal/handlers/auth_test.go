package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/snkrshop/internal/config"
	"github.com/yourorg/snkrshop/internal/models"
	"github.com/yourorg/snkrshop/internal/token"
)

var loginQuery = regexp.QuoteMeta("SELECT id, email, first_name, password_hash FROM users WHERE email = ?")

// setTestDB swaps the shared connection for a mock, bypassing the
// once-per-process Setup.
func setTestDB(db *sql.DB) {
	setupMu.Lock()
	dbConn = db
	setupMu.Unlock()
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func setTestConfig() {
	config.AppConfig = &config.Config{
		JWTSecret: []byte("unit-test-secret-0123456789abcdef0123"),
		TokenTTL:  time.Hour,
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	return resp
}

func newLoginApp() *fiber.App {
	app := fiber.New()
	app.Post("/login", Login)
	return app
}

func TestLoginUnknownUserAnswersNotFound(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	setTestDB(db)

	mock.ExpectQuery(loginQuery).WithArgs("ghost@snkr.shop").WillReturnError(sql.ErrNoRows)

	app := newLoginApp()
	resp := postJSON(t, app, "/login", models.LoginRequest{Email: "ghost@snkr.shop", Password: "whatever"})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if bytes.Contains(body, []byte(`"token"`)) {
		t.Error("failed login leaked a token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoginWrongPasswordAnswersUnauthorized(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	setTestDB(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	mock.ExpectQuery(loginQuery).WithArgs("ana@snkr.shop").WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "first_name", "password_hash"}).
			AddRow("user-1", "ana@snkr.shop", "Ana", string(hash)))

	app := newLoginApp()
	resp := postJSON(t, app, "/login", models.LoginRequest{Email: "ana@snkr.shop", Password: "battery-staple"})
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if bytes.Contains(body, []byte(`"token"`)) {
		t.Error("failed login leaked a token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	setTestDB(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	mock.ExpectQuery(loginQuery).WithArgs("ana@snkr.shop").WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "first_name", "password_hash"}).
			AddRow("user-1", "ana@snkr.shop", "Ana", string(hash)))

	app := newLoginApp()
	resp := postJSON(t, app, "/login", models.LoginRequest{Email: "ana@snkr.shop", Password: "correct-horse"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Email != "ana@snkr.shop" || payload.Name != "Ana" || payload.ID != "user-1" {
		t.Errorf("response = %+v, want ana@snkr.shop/Ana/user-1", payload)
	}

	got, err := token.Verify(payload.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if got != "user-1" {
		t.Errorf("token subject = %q, want %q", got, "user-1")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoginAbortsOnCanceledRequestContext(t *testing.T) {
	setTestConfig()
	db, mock := newMockDB(t)
	setTestDB(db)

	mock.ExpectQuery(loginQuery).WillReturnError(context.Canceled)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		c.SetUserContext(canceled)
		return c.Next()
	}, Login)

	resp := postJSON(t, app, "/login", models.LoginRequest{Email: "ana@snkr.shop", Password: "correct-horse"})
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}
