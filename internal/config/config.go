package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the storefront process.
type Config struct {
	HTTPAddr string

	// --- Database ---
	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration

	// --- Commerce ---
	PageSize          int
	DefaultCurrency   string
	RecentOrdersLimit int

	// --- Checkout Dialogue ---
	SessionTTL  time.Duration
	MaxSessions int

	// --- Bots ---
	BotQueueSize    int
	BotWorkers      int
	AdminBotEnabled bool
	WebAppURL       string
	WebAppOrigin    string

	// --- Security ---
	JWTSecret              string
	OperatorPassphraseHash string

	// --- AI ---
	GeminiAPIKey string
	GeminiModel  string

	// --- Logging ---
	LogLevel  string
	LogFormat string
}

// Load reads the optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:               GetEnv("HTTP_ADDR", ":8080"),
		DBDriver:               strings.ToLower(GetEnv("DB_DRIVER", "sqlite")),
		DBDSN:                  GetEnv("DB_DSN", "shop.db"),
		DefaultCurrency:        strings.ToUpper(GetEnv("DEFAULT_CURRENCY", "UAH")),
		WebAppURL:              GetEnv("WEBAPP_URL", ""),
		WebAppOrigin:           GetEnv("WEBAPP_ORIGIN", "*"),
		JWTSecret:              GetEnv("JWT_SECRET", ""),
		OperatorPassphraseHash: GetEnv("OPERATOR_PASSPHRASE_HASH", ""),
		GeminiAPIKey:           GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:            GetEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		LogLevel:               GetEnv("LOG_LEVEL", "info"),
		LogFormat:              GetEnv("LOG_FORMAT", "json"),
	}

	var errs []error
	cfg.DBMaxOpenConns = intEnv("DB_MAX_OPEN_CONNS", 25, &errs)
	cfg.PageSize = intEnv("CATALOG_PAGE_SIZE", 6, &errs)
	cfg.RecentOrdersLimit = intEnv("RECENT_ORDERS_LIMIT", 10, &errs)
	cfg.BotQueueSize = intEnv("BOT_QUEUE_SIZE", 256, &errs)
	cfg.BotWorkers = intEnv("BOT_WORKERS", 8, &errs)
	cfg.MaxSessions = intEnv("CHECKOUT_MAX_SESSIONS", 10000, &errs)
	cfg.DBConnMaxLifetime = durationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute, &errs)
	cfg.SessionTTL = durationEnv("CHECKOUT_SESSION_TTL", 30*time.Minute, &errs)
	cfg.AdminBotEnabled = boolEnv("ADMIN_BOT_ENABLED", true, &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "mysql" {
		return fmt.Errorf("DB_DRIVER must be sqlite or mysql, got %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.BotWorkers <= 0 || c.BotQueueSize <= 0 {
		return errors.New("BOT_WORKERS and BOT_QUEUE_SIZE must be positive")
	}
	if c.SessionTTL <= 0 || c.MaxSessions <= 0 {
		return errors.New("CHECKOUT_SESSION_TTL and CHECKOUT_MAX_SESSIONS must be positive")
	}
	return nil
}

// GetEnv returns the trimmed value of key, or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int, errs *[]error) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func boolEnv(key string, fallback bool, errs *[]error) bool {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}
