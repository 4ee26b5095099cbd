package routes

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/snkrshop/internal/activity"
	"github.com/yourorg/snkrshop/internal/handlers"
	"github.com/yourorg/snkrshop/internal/middleware"
	"github.com/yourorg/snkrshop/internal/models"
	"github.com/yourorg/snkrshop/internal/token"
)

// Register wires the full HTTP surface. The public/protected split follows
// the storefront client contract; RequireAuth is applied per route.
func Register(app *fiber.App, db *sql.DB) {
	app.Use(middleware.GlobalRateLimiter())

	products := handlers.NewProductHandler(db)
	people := handlers.NewPersonHandler(db)
	carts := handlers.NewCartHandler(db)
	files := handlers.NewFileHandler(db)

	app.Get("/health", handlers.Health)

	// Authentication, rate limited against brute force.
	app.Post("/login", middleware.AuthRateLimiter(), handlers.Login)

	// Products
	app.Post("/products/store", middleware.RequireAuth, products.Store)
	app.Get("/products", middleware.RequireAuth, products.List)
	app.Delete("/product/:id/delete", middleware.RequireAuth, products.Delete)
	app.Put("/product/:id/edit", middleware.RequireAuth, products.Update)
	app.Get("/product/:id/show", products.Show)

	// People
	app.Post("/person/store", middleware.RequireAuth, people.Store)
	app.Get("/person/all", people.All)
	app.Delete("/person/:id/delete", people.Delete)
	app.Put("/person/:id/update", people.Update)

	// Cart of the authenticated user
	app.Get("/person/cart", middleware.RequireAuth, carts.ListItems)
	app.Delete("/person/cart/:id/delete", middleware.RequireAuth, carts.RemoveItem)
	app.Post("/person/cart/:id/store", middleware.RequireAuth, carts.AddItem)

	// Product attachments
	app.Get("/file/:id/show", files.Show)

	// Admin activity feed over websocket. The feed carries user emails and
	// ids, so the upgrade is gated on a session token; browser websocket
	// clients cannot set headers, hence the query parameter.
	app.Use("/ws/activity", func(c *fiber.Ctx) error {
		if _, err := token.Verify(c.Query("token")); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid token"})
		}
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/activity", websocket.New(func(c *websocket.Conn) {
		activity.HandleConn(c)
	}))
}
