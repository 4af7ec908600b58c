package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/darelhouma/api/internal/domain"
	"github.com/darelhouma/api/internal/handler"
	"github.com/darelhouma/api/internal/service"
	"github.com/darelhouma/api/internal/supabase/supabasetest"
)

type testEnv struct {
	fake *supabasetest.Fake
	e    *echo.Echo
}

func newTestEnv(t *testing.T, configure ...func(*handler.RouterConfig)) *testEnv {
	t.Helper()

	fake := supabasetest.New()
	auth := service.NewAuthService(fake, service.AuthConfig{
		JWTSecret:   supabasetest.Secret,
		FrontendURL: "https://darelhouma.example",
	})
	health := service.NewHealthService(fake.Public(), service.HealthConfig{Environment: "test", Version: "9.9.9"})

	cfg := handler.RouterConfig{
		CORS: handler.CORSConfig{AllowedOrigins: []string{"https://darelhouma.example"}},
		Info: handler.ServiceInfo{Name: "Dar El Houma API", Version: "9.9.9", Environment: "test"},
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	return &testEnv{fake: fake, e: handler.NewRouter(cfg, auth, health)}
}

func (env *testEnv) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "test", body["environment"])
	require.Equal(t, "9.9.9", body["version"])
	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	require.NoError(t, err)
}

func TestHealthDatabase(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health/db", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "connected", decode(t, rec)["database"])

	env.fake.ErrProbe = errors.New("relation \"profiles\" does not exist")
	rec = env.do(http.MethodGet, "/health/db", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "error", body["status"])
	require.Contains(t, body["error"], "profiles")
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "Dar El Houma API", body["name"])
	require.Equal(t, "running", body["status"])
	require.Contains(t, body, "endpoints")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "route not found", body["error"])
	require.Equal(t, "/nope", body["path"])
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register",
		`{"email":"amina@example.com","password":"correct-horse","full_name":"Amina Benali","phone":"0550123456"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user := decode(t, rec)["user"].(map[string]any)
	require.Equal(t, "amina@example.com", user["email"])
	require.Equal(t, "Amina Benali", user["full_name"])
	require.NotEmpty(t, user["id"])

	profile, ok := env.fake.Profile(user["id"].(string))
	require.True(t, ok)
	require.Equal(t, "+213", profile.CountryCode)
}

func TestRegisterShortPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register",
		`{"email":"amina@example.com","password":"short","full_name":"Amina Benali","phone":"0550123456"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	details := body["details"].([]any)
	require.Len(t, details, 1)
	require.Equal(t, "password", details[0].(map[string]any)["field"])
	require.Zero(t, env.fake.SignUpCalls)
}

func TestRegisterReportsEveryInvalidField(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register", `{"email":"not-an-email"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var fields []string
	for _, d := range decode(t, rec)["details"].([]any) {
		fields = append(fields, d.(map[string]any)["field"].(string))
	}
	require.ElementsMatch(t, []string{"email", "password", "full_name", "phone"}, fields)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddUser("amina@example.com", "correct-horse", domain.UserMetadata{})

	rec := env.do(http.MethodPost, "/auth/register",
		`{"email":"amina@example.com","password":"correct-horse","full_name":"Amina Benali","phone":"0550123456"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "User already registered", decode(t, rec)["error"])
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/login", `{"email":`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid request body", decode(t, rec)["error"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.fake.AddUser("lina@example.com", "pa55word!", domain.UserMetadata{FullName: "Lina"})
	env.fake.PutProfile(domain.Profile{ID: user.ID, FullName: "Lina", Role: "user"})

	rec := env.do(http.MethodPost, "/auth/login", `{"email":"lina@example.com","password":"pa55word!"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	session := body["session"].(map[string]any)
	require.NotEmpty(t, session["access_token"])
	require.NotEmpty(t, session["refresh_token"])

	u := body["user"].(map[string]any)
	require.Equal(t, user.ID, u["id"])
	require.Equal(t, user.ID, u["profile"].(map[string]any)["id"])
}

func TestLoginWrongCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddUser("lina@example.com", "pa55word!", domain.UserMetadata{})

	wrongPassword := env.do(http.MethodPost, "/auth/login", `{"email":"lina@example.com","password":"nope"}`, nil)
	unknownEmail := env.do(http.MethodPost, "/auth/login", `{"email":"who@example.com","password":"pa55word!"}`, nil)

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	require.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	require.Equal(t, "invalid credentials", decode(t, wrongPassword)["error"])
	require.NotContains(t, wrongPassword.Body.String(), "session")
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddUser("lina@example.com", "pa55word!", domain.UserMetadata{})
	session := env.fake.Login("lina@example.com")

	rec := env.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+session.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decode(t, rec)["session"].(map[string]any)["access_token"])

	rec = env.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"`+session.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/auth/refresh", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "refresh token missing", decode(t, rec)["error"])
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user := env.fake.AddUser("lina@example.com", "pa55word!", domain.UserMetadata{})
	env.fake.PutProfile(domain.Profile{ID: user.ID, FullName: "Lina"})
	session := env.fake.Login("lina@example.com")

	rec := env.do(http.MethodGet, "/auth/me", "", bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, user.ID, decode(t, rec)["profile"].(map[string]any)["id"])

	rec = env.do(http.MethodGet, "/auth/me", "", bearer(env.fake.ExpiredToken(user.ID)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotContains(t, decode(t, rec), "profile")
}

func TestMeWithoutProfile(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddUser("lina@example.com", "pa55word!", domain.UserMetadata{})
	session := env.fake.Login("lina@example.com")

	rec := env.do(http.MethodGet, "/auth/me", "", bearer(session.AccessToken))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "profile not found", decode(t, rec)["error"])
}

func TestProtectedRoutesRejectMissingOrMalformedAuth(t *testing.T) {
	env := newTestEnv(t)

	headers := map[string]http.Header{
		"missing":      nil,
		"wrong scheme": {"Authorization": {"Basic dXNlcjpwYXNz"}},
		"empty bearer": {"Authorization": {"Bearer "}},
		"no space":     {"Authorization": {"Bearertoken"}},
		"not a jwt":    bearer("opaque"),
	}
	routes := [][2]string{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/anything"},
	}

	for name, h := range headers {
		for _, r := range routes {
			t.Run(name+" "+r[1], func(t *testing.T) {
				rec := env.do(r[0], r[1], "", h)
				require.Equal(t, http.StatusUnauthorized, rec.Code)
				require.Equal(t, "invalid or expired token", decode(t, rec)["error"])
			})
		}
	}
	require.Zero(t, env.fake.SignOutCalls)
}

func TestAPIProfile(t *testing.T) {
	env := newTestEnv(t)
	user := env.fake.AddUser("lina@example.com", "pa55word!", domain.UserMetadata{})
	session := env.fake.Login("lina@example.com")

	rec := env.do(http.MethodGet, "/api/profile", "", bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "access granted", body["message"])
	require.Equal(t, user.ID, body["user"].(map[string]any)["id"])

	rec = env.do(http.MethodGet, "/api/unknown", "", bearer(session.AccessToken))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutTwice(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddUser("lina@example.com", "pa55word!", domain.UserMetadata{})
	session := env.fake.Login("lina@example.com")

	rec := env.do(http.MethodPost, "/auth/logout", "", bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "logged out successfully", decode(t, rec)["message"])

	rec = env.do(http.MethodPost, "/auth/logout", "", bearer(session.AccessToken))
	require.Contains(t, []int{http.StatusOK, http.StatusUnauthorized}, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *handler.RouterConfig) { cfg.RateLimitRPM = 6 })

	rec := env.do(http.MethodPost, "/auth/login", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/auth/login", `{}`, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	env := newTestEnv(t, func(cfg *handler.RouterConfig) { cfg.RateLimitRPM = 6 })

	limited := 0
	for i := range 10 {
		rec := env.do(http.MethodPost, "/auth/login", `{}`, http.Header{
			"X-Forwarded-For": {fmt.Sprintf("10.0.0.%d", i)},
		})
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	require.Equal(t, 9, limited)
}

func TestAuthRateLimitBehindTrustedProxy(t *testing.T) {
	_, proxy, err := net.ParseCIDR("192.0.2.0/24")
	require.NoError(t, err)
	env := newTestEnv(t, func(cfg *handler.RouterConfig) {
		cfg.RateLimitRPM = 6
		cfg.TrustedProxies = []*net.IPNet{proxy}
	})

	for i := range 5 {
		rec := env.do(http.MethodPost, "/auth/login", `{}`, http.Header{
			"X-Forwarded-For": {fmt.Sprintf("203.0.113.%d", i)},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := env.do(http.MethodPost, "/auth/login", `{}`, http.Header{"X-Forwarded-For": {"203.0.113.0"}})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRegisterAcceptsAnyCountryCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register",
		`{"email":"amina@example.com","password":"correct-horse","full_name":"Amina Benali","phone":"0550123456","country_code":"213"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	profile, ok := env.fake.Profile(decode(t, rec)["user"].(map[string]any)["id"].(string))
	require.True(t, ok)
	require.Equal(t, "213", profile.CountryCode)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}
