package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string
	RedisURI       string // empty disables caching and the Redis rate limiter
	JWTSecret      string // no default; protected routes answer 500 until it is set
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host           string   // Raw HOST env (e.g. https://api.eguard.app)
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.
	TrustProxy     bool     // read client IPs from X-Forwarded-For / X-Real-IP

	BreachAPIURL        string
	PasswordAPIURL      string
	BreachLookupTimeout time.Duration
	BreachCacheTTL      time.Duration

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:5000")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/eguard")),
		RedisURI:       getEnv("REDIS_URI", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		Host:           host,
		AllowedHost:    allowedHost,
		Environment:    env,
		Port:           getEnv("PORT", "5000"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,
		TrustProxy:     getBool("TRUST_PROXY", false),

		BreachAPIURL:        getEnv("BREACH_API_URL", "https://api.xposedornot.com/v1"),
		PasswordAPIURL:      getEnv("PASSWORD_API_URL", "https://passwords.xposedornot.com/v1"),
		BreachLookupTimeout: getDuration("BREACH_LOOKUP_TIMEOUT", 10*time.Second),
		BreachCacheTTL:      getDuration("BREACH_CACHE_TTL", 15*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", defaultLogFormat(env)),
	}
}

// hostname strips scheme, path and port from a HOST value.
func hostname(host string) string {
	h := strings.TrimSpace(host)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func defaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "text"
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" && !containsOrigin(out, part) {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value, "default", defaultValue.String())
		return defaultValue
	}
	return d
}
