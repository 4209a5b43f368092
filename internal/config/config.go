package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	defaultIDPRedirect = 8765

	defaultTokenBackend = "file"
)

type Config struct {
	APIBaseURL string
	IDPBaseURL string
	IDPAPIKey  string

	IDPRedirectPort int

	TokenBackend string // "file", "vault", or "memory"
	TokenPath    string
	IDPCachePath string

	VaultAddr       string
	VaultToken      string
	VaultMount      string
	VaultSecretPath string

	HTTPTimeout time.Duration
	MetricsAddr string
}

type LoadOptions struct {
	RequireAPIBaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireAPIBaseURL: true})
}

func LoadOptionalAPI() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireAPIBaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		APIBaseURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("TOURDESK_API_URL")), "/"),
		IDPBaseURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("IDP_URL")), "/"),
		IDPAPIKey:       strings.TrimSpace(os.Getenv("IDP_API_KEY")),
		IDPRedirectPort: getenvIntDefault("IDP_REDIRECT_PORT", defaultIDPRedirect),
		TokenBackend:    strings.ToLower(strings.TrimSpace(getenvDefault("TOKEN_BACKEND", defaultTokenBackend))),
		TokenPath:       strings.TrimSpace(os.Getenv("TOKEN_PATH")),
		IDPCachePath:    strings.TrimSpace(os.Getenv("IDP_CACHE_PATH")),
		VaultAddr:       strings.TrimSpace(os.Getenv("VAULT_ADDR")),
		VaultToken:      strings.TrimSpace(os.Getenv("VAULT_TOKEN")),
		VaultMount:      getenvDefault("VAULT_MOUNT", "secret"),
		VaultSecretPath: getenvDefault("VAULT_SECRET_PATH", "tourdesk/session"),
		HTTPTimeout:     defaultHTTPTimeout,
		MetricsAddr:     strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}

	if cfg.TokenPath == "" {
		cfg.TokenPath = defaultStatePath("token")
	}
	if cfg.IDPCachePath == "" {
		cfg.IDPCachePath = defaultStatePath("identity.json")
	}

	switch cfg.TokenBackend {
	case "file", "memory":
	case "vault":
		if cfg.VaultAddr == "" {
			return cfg, errors.New("VAULT_ADDR is required when TOKEN_BACKEND=vault")
		}
		if cfg.VaultToken == "" {
			return cfg, errors.New("VAULT_TOKEN is required when TOKEN_BACKEND=vault")
		}
	default:
		return cfg, errors.New("TOKEN_BACKEND must be one of: file, vault, memory")
	}

	if opts.RequireAPIBaseURL && cfg.APIBaseURL == "" {
		return cfg, errors.New("TOURDESK_API_URL is required")
	}

	return cfg, nil
}

func defaultStatePath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".tourdesk", name)
	}
	return filepath.Join(dir, "tourdesk", name)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 65535 {
		return def
	}
	return n
}
