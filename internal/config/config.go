// Package config reads the server's settings from the environment.
//
// Everything comes from environment variables so the same binary runs
// unchanged on a laptop, in a container, or on a PaaS. Load applies
// defaults, checks the result with validator tags, and fills in a few
// settings that can be derived or generated.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/devpulse/internal/auth"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendGist   = "gist"
	BackendSQLite = "sqlite"
)

const (
	defaultPort        = 8080
	defaultFrontendURL = "http://localhost:3000"
	defaultDBPath      = "data/devpulse.db"
)

// Config holds every setting the server needs.
type Config struct {
	Port int `validate:"min=1,max=65535"`

	// JWTSecret signs session tokens.
	JWTSecret string `validate:"required,min=16"`

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string `validate:"omitempty,url"`

	// FrontendURL is where the browser lands after sign-in.
	FrontendURL string `validate:"required,url"`
	// AllowedOrigins are the CORS origins allowed to send credentials.
	AllowedOrigins []string `validate:"dive,url"`

	StoreBackend string `validate:"oneof=memory gist sqlite"`
	GistToken    string `validate:"required_if=StoreBackend gist"`
	DBPath       string `validate:"required_if=StoreBackend sqlite"`

	// An empty LLMAPIKey runs the scorer offline: every commit gets the
	// fallback assessment.
	LLMAPIKey  string
	LLMBaseURL string `validate:"omitempty,url"`
	LLMModel   string

	// TokenEncryptionKey is the hex key sealing stored GitHub tokens.
	TokenEncryptionKey string `validate:"required,hexadecimal,len=64"`

	CookieSecure bool
	LogLevel     slog.Level
}

// OAuthConfigured reports whether GitHub sign-in can work.
func (c *Config) OAuthConfigured() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads the configuration from the environment. Missing optional
// credentials are logged as warnings; invalid values are an error.
func Load(logger *slog.Logger) (*Config, error) {
	cfg := &Config{
		Port:               defaultPort,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
		FrontendURL:        envOr("FRONTEND_URL", defaultFrontendURL),
		StoreBackend:       strings.ToLower(envOr("STORE_BACKEND", BackendMemory)),
		GistToken:          os.Getenv("GITHUB_GIST_TOKEN"),
		DBPath:             envOr("DB_PATH", defaultDBPath),
		LLMAPIKey:          envOr("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
		LLMBaseURL:         os.Getenv("LLM_BASE_URL"),
		LLMModel:           os.Getenv("LLM_MODEL"),
		TokenEncryptionKey: os.Getenv("TOKEN_ENCRYPTION_KEY"),
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: PORT %q is not a number", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: COOKIE_SECURE %q is not a boolean", v)
		}
		cfg.CookieSecure = secure
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("config: LOG_LEVEL %q: %w", v, err)
		}
	}

	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.FrontendURL}
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if cfg.TokenEncryptionKey == "" {
		key, err := auth.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("config: generating token encryption key: %w", err)
		}
		cfg.TokenEncryptionKey = key
		logger.Warn("TOKEN_ENCRYPTION_KEY not set, using a random key: stored GitHub tokens will not survive a restart")
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if !cfg.OAuthConfigured() {
		logger.Warn("GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET not set, GitHub sign-in will fail")
	}
	if cfg.LLMAPIKey == "" {
		logger.Warn("LLM_API_KEY not set, commits will receive fallback scores")
	}

	return cfg, nil
}

var configValidator = validator.New()

// validate turns the first failing tag into an error naming the variable.
func validate(cfg *Config) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("config: %w", err)
	}

	fe := fieldErrs[0]
	name := envNames[fe.StructField()]
	if name == "" {
		name = fe.StructField()
	}
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Errorf("config: %s is required", name)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Errorf("config: %s must be at least %s characters", name, fe.Param())
		}
		return fmt.Errorf("config: %s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Errorf("config: %s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Errorf("config: %s must be one of: %s", name, fe.Param())
	case "hexadecimal", "len":
		return fmt.Errorf("config: %s must be 64 hex characters (32 bytes)", name)
	}
	return fmt.Errorf("config: %s has an invalid value %q", name, fmt.Sprint(fe.Value()))
}

// envNames maps Config fields to the variables that set them.
var envNames = map[string]string{
	"Port":               "PORT",
	"JWTSecret":          "JWT_SECRET",
	"GitHubCallbackURL":  "GITHUB_CALLBACK_URL",
	"FrontendURL":        "FRONTEND_URL",
	"AllowedOrigins":     "ALLOWED_ORIGINS",
	"StoreBackend":       "STORE_BACKEND",
	"GistToken":          "GITHUB_GIST_TOKEN",
	"DBPath":             "DB_PATH",
	"LLMBaseURL":         "LLM_BASE_URL",
	"TokenEncryptionKey": "TOKEN_ENCRYPTION_KEY",
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.TrimRight(part, "/"))
		}
	}
	return out
}
