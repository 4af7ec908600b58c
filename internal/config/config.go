package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const environmentDevelopment = "development"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port        int
	Environment string
	ServiceName string
	Version     string

	SupabaseURL            string
	SupabasePublicKey      string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string

	// DatabaseURL optionally points at the provider's Postgres for service-tier profile writes.
	DatabaseURL string

	AllowedOrigins []string
	// TrustedProxies lists the networks whose X-Forwarded-For is believed.
	// Empty means the client address is the socket peer.
	TrustedProxies []*net.IPNet
	FrontendURL    string
	JWTSecret      string

	ProviderTimeout time.Duration
	RateLimitRPM    int
}

// Load reads configuration from environment variables and validates required fields.
// A .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}

	timeout, err := getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_TIMEOUT: %w", err)
	}

	rpm, err := getEnvInt("RATE_LIMIT_RPM", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_RPM: %w", err)
	}

	proxies, err := parseNetworks(getEnvList("TRUSTED_PROXIES"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	cfg := Config{
		Port:                   port,
		Environment:            getEnv("ENVIRONMENT", "production"),
		ServiceName:            getEnv("SERVICE_NAME", "Dar El Houma API"),
		Version:                getEnv("APP_VERSION", "1.0.0"),
		SupabaseURL:            strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabasePublicKey:      getEnv("SUPABASE_PUBLIC_KEY", ""),
		SupabaseAnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		AllowedOrigins:         getEnvList("ALLOWED_ORIGINS"),
		TrustedProxies:         proxies,
		FrontendURL:            strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		ProviderTimeout:        timeout,
		RateLimitRPM:           rpm,
	}

	if cfg.SupabasePublicKey == "" {
		cfg.SupabasePublicKey = cfg.SupabaseAnonKey
	}
	if cfg.SupabaseAnonKey == "" {
		cfg.SupabaseAnonKey = cfg.SupabasePublicKey
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == environmentDevelopment
}

func (c Config) validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	u, err := url.Parse(c.SupabaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SUPABASE_URL must be an absolute http(s) URL")
	}
	if c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY or SUPABASE_PUBLIC_KEY is required")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}

func getEnvList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseNetworks accepts CIDRs and bare addresses.
func parseNetworks(values []string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, v := range values {
		if !strings.Contains(v, "/") {
			ip := net.ParseIP(v)
			if ip == nil {
				return nil, fmt.Errorf("invalid address %q", v)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
