package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DataDir       string
	SessionCookie string
	CookieSecure  bool
	SessionTTL    time.Duration
	CORSOrigin    string
	NoteHistory   bool
	// Redis Configuration
	RedisURL string
	// Meilisearch Configuration
	MeiliURL       string
	MeiliMasterKey string
	// S3 / MinIO Configuration
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:          getenv("API_ADDR", ":8787"),
		DataDir:       getenv("CHECKMARK_DATA_DIR", "./data"),
		SessionCookie: getenv("CHECKMARK_SESSION_COOKIE", "session"),
		CookieSecure:  getenvBool("CHECKMARK_COOKIE_SECURE", false),
		SessionTTL:    time.Duration(getenvInt("CHECKMARK_SESSION_TTL_SECONDS", 2592000)) * time.Second,
		CORSOrigin:    getenv("CHECKMARK_CORS_ORIGIN", "*"),
		NoteHistory:   getenvBool("CHECKMARK_NOTE_HISTORY", true),
		// Redis - sessions fall back to data/users/sessions.json when empty
		RedisURL: getenv("REDIS_URL", ""),
		// Meilisearch - search falls back to a file scan when empty
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		// S3 - uploads stay under data/uploads when empty
		S3Endpoint:  getenv("S3_ENDPOINT", ""),
		S3AccessKey: getenv("S3_ACCESS_KEY", ""),
		S3SecretKey: getenv("S3_SECRET_KEY", ""),
		S3Bucket:    getenv("S3_BUCKET", "checkmark"),
		S3UseSSL:    getenvBool("S3_USE_SSL", false),
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
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
