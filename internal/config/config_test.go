package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darelhouma/api/internal/config"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("SUPABASE_PUBLIC_KEY", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("PROVIDER_TIMEOUT", "")
	t.Setenv("RATE_LIMIT_RPM", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("TRUSTED_PROXIES", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "production", cfg.Environment)
	require.False(t, cfg.IsDevelopment())
	require.Equal(t, "https://project.supabase.co", cfg.SupabaseURL)
	require.Equal(t, "anon-key", cfg.SupabasePublicKey)
	require.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	require.Equal(t, 60, cfg.RateLimitRPM)
	require.Empty(t, cfg.AllowedOrigins)
	require.Empty(t, cfg.TrustedProxies)
}

func TestLoadAllowedOrigins(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://app.example.com, ,https://admin.example.com ,")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	require.True(t, cfg.IsDevelopment())
}

func TestLoadPublicKeyFallsBackBothWays(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("SUPABASE_PUBLIC_KEY", "publishable")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "publishable", cfg.SupabaseAnonKey)
	require.Equal(t, "publishable", cfg.SupabasePublicKey)
}

func TestLoadRequiresSupabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_URL", "")

	_, err := config.Load()
	require.ErrorContains(t, err, "SUPABASE_URL")

	setBaseEnv(t)
	t.Setenv("SUPABASE_URL", "not a url")
	_, err = config.Load()
	require.ErrorContains(t, err, "SUPABASE_URL")

	setBaseEnv(t)
	t.Setenv("SUPABASE_ANON_KEY", "")
	_, err = config.Load()
	require.ErrorContains(t, err, "SUPABASE_ANON_KEY")
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "eighty")
	_, err := config.Load()
	require.ErrorContains(t, err, "PORT")

	setBaseEnv(t)
	t.Setenv("PROVIDER_TIMEOUT", "soon")
	_, err = config.Load()
	require.ErrorContains(t, err, "PROVIDER_TIMEOUT")
}

func TestLoadTrustedProxies(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Len(t, cfg.TrustedProxies, 2)
	require.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
	require.Equal(t, "192.0.2.7/32", cfg.TrustedProxies[1].String())

	setBaseEnv(t)
	t.Setenv("TRUSTED_PROXIES", "proxy.internal")
	_, err = config.Load()
	require.ErrorContains(t, err, "TRUSTED_PROXIES")
}
