package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAPIBaseURL = "https://api.easyclaims.in"

type Config struct {
	Port        string
	DatabaseURL string

	APIBaseURL  string
	UseMocks    bool
	MockLatency time.Duration
	APITimeout  time.Duration

	SessionSecret    string
	SessionTTL       time.Duration
	SessionSweep     time.Duration
	CookieSecure     bool
	AdminIdentifiers []string

	SearchDebounce  time.Duration
	SearchMinLength int

	LoginRateLimitPerMinute      int
	LoginRateLimitBurst          int
	IdentifierRateLimitPerMinute int
	IdentifierRateLimitBurst     int

	ImportMaxBytes int64
}

func Load() Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	port := os.Getenv("PORTAL_PORT")
	if port == "" {
		port = "8080"
	}
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/")
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),

		APIBaseURL:  baseURL,
		UseMocks:    readBool("USE_MOCKS", false),
		MockLatency: readDurationMillis("MOCK_LATENCY_MS", 300),
		APITimeout:  readDurationSeconds("API_TIMEOUT_SECONDS", 15),

		SessionSecret:    os.Getenv("SESSION_SECRET"),
		SessionTTL:       readDurationHours("SESSION_TTL_HOURS", 12),
		SessionSweep:     readDurationSeconds("SESSION_SWEEP_SECONDS", 300),
		CookieSecure:     readBool("COOKIE_SECURE", false),
		AdminIdentifiers: readList("ADMIN_EMAILS"),

		SearchDebounce:  readDurationMillis("SEARCH_DEBOUNCE_MS", 300),
		SearchMinLength: readInt("SEARCH_MIN_LENGTH", 3),

		LoginRateLimitPerMinute:      readInt("LOGIN_RATE_LIMIT_PER_MIN", 30),
		LoginRateLimitBurst:          readInt("LOGIN_RATE_LIMIT_BURST", 10),
		IdentifierRateLimitPerMinute: readInt("IDENTIFIER_RATE_LIMIT_PER_MIN", 10),
		IdentifierRateLimitBurst:     readInt("IDENTIFIER_RATE_LIMIT_BURST", 5),

		ImportMaxBytes: int64(readInt("IMPORT_MAX_BYTES", 10<<20)),
	}
}

func readDurationMillis(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Millisecond
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readDurationHours(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Hour
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}
