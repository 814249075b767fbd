package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	AllowedOrigins []string
	GatewayToken   string

	SyncServiceURL string
	AuthServiceURL string
	RedisURL       string

	ReconcileInterval time.Duration
	ReconcileWindow   time.Duration

	R2 R2Config
}

// R2Config is optional; when AccountID is empty icon uploads are disabled.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.Bucket != ""
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	// a missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg := Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "5300"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		GatewayToken:   os.Getenv("GAME_SERVICE_TOKEN"),
		SyncServiceURL: os.Getenv("SYNC_SERVICE_URL"),
		AuthServiceURL: os.Getenv("AUTH_SERVICE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),

		ReconcileInterval: time.Duration(getEnvInt("RECONCILE_INTERVAL_MINUTES", 60)) * time.Minute,
		ReconcileWindow:   time.Duration(getEnvInt("RECONCILE_WINDOW_HOURS", 48)) * time.Hour,

		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
	}
	if c.GatewayToken == "" {
		errs = append(errs, errors.New("GAME_SERVICE_TOKEN environment variable not set"))
	}
	if c.ReconcileInterval <= 0 {
		errs = append(errs, fmt.Errorf("RECONCILE_INTERVAL_MINUTES must be positive, got %v", c.ReconcileInterval))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
