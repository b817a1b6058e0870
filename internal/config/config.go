package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/vbonduro/platos/internal/domain"
)

type Config struct {
	ListenAddr string

	DBBackend   string
	DBPath      string
	DatabaseURL string

	ImageBackend  string
	ImagePath     string
	PublicBaseURL string
	StorageURL    string
	StorageKey    string
	StorageSecret string
	StorageBucket string
	StorageSSL    bool
	StoragePublic string

	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	CookieSecure      bool

	CarouselInterval    time.Duration
	CarouselPause       time.Duration
	CarouselPlaceholder string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		DBBackend:           getEnv("DB_BACKEND", "sqlite"),
		DBPath:              getEnv("DB_PATH", "/data/platos.db"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		ImageBackend:        getEnv("IMAGE_BACKEND", "local"),
		ImagePath:           getEnv("IMAGE_LOCAL_PATH", "/data/images"),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		StorageURL:          getEnv("STORAGE_ENDPOINT", ""),
		StorageKey:          getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecret:       getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:       getEnv("STORAGE_BUCKET", "platos"),
		StorageSSL:          getBool("STORAGE_USE_SSL", false),
		StoragePublic:       getEnv("STORAGE_PUBLIC_URL", ""),
		AdminUsername:       getEnv("ADMIN_USERNAME", ""),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash:   getEnv("ADMIN_PASSWORD_HASH", ""),
		CookieSecure:        getBool("COOKIE_SECURE", false),
		CarouselInterval:    getDuration("CAROUSEL_INTERVAL", 8*time.Second),
		CarouselPause:       getDuration("CAROUSEL_PAUSE", 30*time.Second),
		CarouselPlaceholder: getEnv("CAROUSEL_PLACEHOLDER", "/placeholder.jpg"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		LogFile:             getEnv("LOG_FILE", ""),
	}
}

// Validate reports every required key that is missing for the selected
// backends as a *domain.ConfigurationError.
func (c *Config) Validate() error {
	var missing []string
	if c.AdminUsername == "" {
		missing = append(missing, "ADMIN_USERNAME")
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if c.DBBackend == "postgres" && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.ImageBackend == "s3" {
		if c.StorageURL == "" {
			missing = append(missing, "STORAGE_ENDPOINT")
		}
		if c.StorageKey == "" {
			missing = append(missing, "STORAGE_ACCESS_KEY")
		}
		if c.StorageSecret == "" {
			missing = append(missing, "STORAGE_SECRET_KEY")
		}
	}
	if len(missing) > 0 {
		return &domain.ConfigurationError{Missing: missing}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return b
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
