package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func makeAppWithAuth(t *testing.T) (*fiber.App, *Verifier) {
	t.Helper()
	v := newTestVerifier(t, Config{Issuer: "https://abcd.supabase.co", Audience: "authenticated"})
	app := fiber.New()
	api := app.Group("/api/v1")
	NewHandler().RegisterProtectedRoutes(api, Middleware(v, zap.NewNop()))
	return app, v
}

func TestValidateRoute(t *testing.T) {
	app, _ := makeAppWithAuth(t)

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	require.True(t, routes["/api/v1/auth/validate"], "expected route '/api/v1/auth/validate' to be registered")

	// missing header
	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/auth/validate", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	// expired token
	claims := validClaims()
	claims["exp"] = fixedNow.Add(-time.Hour).Unix()
	req := httptest.NewRequest("GET", "/api/v1/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, claims))
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	b, _ := io.ReadAll(res.Body)
	assert.JSONEq(t, `{"message":"unauthorized"}`, string(b))

	// valid token
	req = httptest.NewRequest("GET", "/api/v1/auth/validate", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, validClaims()))
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	b, _ = io.ReadAll(res.Body)
	assert.JSONEq(t, `{"isAuthenticated":true,"userId":"2b1c6f8e-7d3a-4c55-9d0e-1f2a3b4c5d6e"}`, string(b))
}

func TestUserIDFromCtx_Missing(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, err := UserIDFromCtx(c)
		assert.ErrorIs(t, err, fiber.ErrUnauthorized)
		SetUserID(c, "u1")
		id, err := UserIDFromCtx(c)
		assert.NoError(t, err)
		return c.SendString(id)
	})

	res, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	b, _ := io.ReadAll(res.Body)
	assert.Equal(t, "u1", string(b))
}

func TestMiddleware_LogsFailureDetail(t *testing.T) {
	v := newTestVerifier(t, Config{})
	core, logs := observer.New(zapcore.WarnLevel)
	app := fiber.New()
	app.Get("/secure", Middleware(v, zap.New(core)), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	claims := validClaims()
	claims["exp"] = fixedNow.Add(-time.Hour).Unix()
	req := httptest.NewRequest("GET", "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, claims))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	entries := logs.FilterMessage("authentication failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "expired", fields["reason"])
	assert.Contains(t, fields["detail"], "token expired at")
	assert.Equal(t, "2b1c6f8e-7d3a-4c55-9d0e-1f2a3b4c5d6e", fields["claimed_user_id"])
	assert.Equal(t, "/secure", fields["path"])
}
