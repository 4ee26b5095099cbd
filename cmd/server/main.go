package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/yourorg/snkrshop/internal/cache"
	"github.com/yourorg/snkrshop/internal/config"
	appdb "github.com/yourorg/snkrshop/internal/db"
	"github.com/yourorg/snkrshop/internal/handlers"
	"github.com/yourorg/snkrshop/internal/routes"
)

const dbConnectAttempts = 12

func main() {
	config.Load()
	cache.InitCaches()

	app := fiber.New()
	app.Use(logger.New())

	db, err := connectWithRetry()
	if err != nil {
		log.Fatalf("database unavailable: %v", err)
	}
	defer db.Close()

	if err := appdb.SeedAdmin(db); err != nil {
		log.Printf("admin seed failed: %v", err)
	}

	handlers.Setup(db)
	routes.Register(app, db)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutdown signal received, closing server...")
		cache.StopCaches()
		if err := app.Shutdown(); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
	}()

	log.Printf("listening on :%s", config.AppConfig.Port)
	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal(err)
	}
}

func connectWithRetry() (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		db, err := appdb.Connect()
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			if err = appdb.EnsureSchema(db); err == nil {
				return db, nil
			}
		}
		if db != nil {
			db.Close()
		}
		lastErr = err
		log.Printf("db connect error: %v (retrying in 5s, attempt %d/%d)", err, attempt, dbConnectAttempts)
		time.Sleep(5 * time.Second)
	}
	return nil, lastErr
}
