package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	CORSOrigin string
	LogLevel   string
	// State backend: sqlite, redis, postgres or memory
	StateBackend  string
	SQLitePath    string
	RedisURL      string
	DatabaseURL   string
	MigrationsDir string
	// Spreadsheet webhook; the stored URL wins over this default
	WebhookURL     string
	WebhookTimeout time.Duration
	MeiliURL       string
	MeiliMasterKey string
	// MinIO export archive - disabled if endpoint is empty
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	// OpenAI document import - disabled if key is empty
	OpenAIKey   string
	OpenAIModel string
	ChromePath  string
}

// Load reads the environment, after an optional .env file in the working
// directory.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("API_ADDR", ":8787"),
		CORSOrigin:     getenv("PREZENCE_CORS_ORIGIN", "*"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		StateBackend:   strings.ToLower(getenv("PREZENCE_STATE_BACKEND", "sqlite")),
		SQLitePath:     getenv("PREZENCE_SQLITE_PATH", "./data/prezence.db"),
		RedisURL:       getenv("REDIS_URL", ""),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		MigrationsDir:  getenv("PREZENCE_MIGRATIONS_DIR", "./db/migrations"),
		WebhookURL:     getenv("PREZENCE_WEBHOOK_URL", ""),
		WebhookTimeout: time.Duration(getenvInt("PREZENCE_WEBHOOK_TIMEOUT_SECONDS", 30)) * time.Second,
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "prezence-exports"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		OpenAIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIModel:    getenv("OPENAI_MODEL", "gpt-4o-mini"),
		ChromePath:     getenv("PREZENCE_CHROME_PATH", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
