package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the application.
type Config struct {
	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret []byte
	TokenTTL  time.Duration

	UploadDir string
	Port      string

	AdminEmail    string
	AdminPassword string
}

var AppConfig *Config

// Load reads .env (if present) and environment variables into AppConfig.
// Call once during bootstrap, before anything touches AppConfig.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBUser:        os.Getenv("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		UploadDir:     os.Getenv("UPLOAD_DIR"),
		Port:          os.Getenv("PORT"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		TokenTTL:      24 * time.Hour,
	}
	if cfg.DBHost == "" {
		cfg.DBHost = "127.0.0.1"
	}
	if cfg.DBPort == "" {
		cfg.DBPort = "3306"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
	if cfg.Port == "" {
		cfg.Port = "3333"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if isProduction() {
			log.Fatal("CRITICAL: JWT_SECRET must be set in production environment")
		}
		log.Println("WARNING: using default JWT secret (development only)")
		secret = "dev-secret-change-me-0123456789abcdef"
	}
	if len(secret) < 32 {
		log.Fatalf("CRITICAL: JWT_SECRET must be at least 32 characters long (current: %d)", len(secret))
	}
	cfg.JWTSecret = []byte(secret)

	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		dur, err := time.ParseDuration(ttl)
		if err != nil || dur <= 0 {
			log.Printf("invalid JWT_TTL=%q, using default %s", ttl, cfg.TokenTTL)
		} else {
			cfg.TokenTTL = dur
		}
	}

	AppConfig = cfg
}

func isProduction() bool {
	return os.Getenv("ENV") == "production" || os.Getenv("ENVIRONMENT") == "production"
}
