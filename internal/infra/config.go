package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// OpenAIKeyPlaceholder is the value shipped in the sample env file.
	OpenAIKeyPlaceholder = "sk-sua-chave-aqui"
	// NanoBananaKeyPlaceholder is the value shipped in the sample env file.
	NanoBananaKeyPlaceholder = "sua-chave-nanobanana-aqui"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	GeoIPDBPath        string
	CORSAllowedOrigins []string
	MaxRequestBytes    int64

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string
	OpenAITimeout time.Duration

	NanoBananaAPIKey       string
	NanoBananaBaseURL      string
	NanoBananaModel        string
	NanoBananaSubmitPath   string
	NanoBananaResultPath   string
	NanoBananaPollInterval time.Duration
	NanoBananaPollAttempts int
	NanoBananaFetchRemote  bool
	NanoBananaTimeout      time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxRequestBytes:    int64(getEnvInt("MAX_REQUEST_BYTES", 32<<20)),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),
		OpenAITimeout: time.Second * time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)),

		NanoBananaAPIKey:       strings.TrimSpace(os.Getenv("NANOBANANA_API_KEY")),
		NanoBananaBaseURL:      getEnv("NANOBANANA_BASE_URL", "https://api.nanobananaapi.dev"),
		NanoBananaModel:        getEnv("NANOBANANA_MODEL", "gemini-3-pro-image-preview"),
		NanoBananaSubmitPath:   getEnv("NANOBANANA_SUBMIT_PATH", "/v1/images/generate"),
		NanoBananaResultPath:   getEnv("NANOBANANA_RESULT_PATH", "/v1/images/result"),
		NanoBananaPollInterval: time.Millisecond * time.Duration(getEnvInt("NANOBANANA_POLL_INTERVAL_MS", 2000)),
		NanoBananaPollAttempts: getEnvInt("NANOBANANA_POLL_ATTEMPTS", 60),
		NanoBananaFetchRemote:  getEnvBool("NANOBANANA_FETCH_REMOTE", false),
		NanoBananaTimeout:      time.Second * time.Duration(getEnvInt("NANOBANANA_HTTP_TIMEOUT_SECONDS", 60)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.NanoBananaPollAttempts <= 0 {
		cfg.NanoBananaPollAttempts = 60
	}
	if cfg.NanoBananaPollInterval <= 0 {
		cfg.NanoBananaPollInterval = 2 * time.Second
	}

	return cfg, nil
}

// OpenAIConfigured reports whether the synchronous provider has a usable key.
func (c *Config) OpenAIConfigured() bool {
	return IsConfigured(c.OpenAIAPIKey, OpenAIKeyPlaceholder)
}

// NanoBananaConfigured reports whether the asynchronous provider has a usable key.
func (c *Config) NanoBananaConfigured() bool {
	return IsConfigured(c.NanoBananaAPIKey, NanoBananaKeyPlaceholder)
}

// IsConfigured reports whether key is set and is not the sample placeholder.
func IsConfigured(key, placeholder string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholder
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
