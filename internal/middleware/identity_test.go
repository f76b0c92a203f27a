package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret-at-least-32-characters!!")

	raw, issued, err := tokens.Issue(42, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), issued.ExpiresAt, 5*time.Second)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokens_ParseRejects(t *testing.T) {
	tokens := NewTokens("test-secret-at-least-32-characters!!")
	other := NewTokens("another-secret-at-least-32-characters")

	foreign, _, err := other.Issue(1, "bob")
	require.NoError(t, err)

	expired := NewTokens("test-secret-at-least-32-characters!!")
	expired.now = func() time.Time { return time.Now().Add(-TokenTTL - time.Hour) }
	stale, _, err := expired.Issue(1, "bob")
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{"someone-else"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret-at-least-32-characters!!"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"wrong audience", wrongAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Parse(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestTokens_IssueWithoutSecret(t *testing.T) {
	_, _, err := NewTokens("").Issue(1, "alice")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc.def", "abc.def"},
		{"Basic Zm9vOmJhcg==", ""},
		{"", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, tt.want, string(body), tt.header)
	}
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-Test-User") != "" {
			SetIdentity(c, &Identity{UserID: 7, Username: "alice", Method: AuthSession})
		}
		return c.Next()
	})
	app.Get("/private", AuthRequired("User not authenticated."), func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		require.True(t, ok)
		assert.Equal(t, uint(7), c.UserContext().Value(UserIDKey))
		return c.SendString(id.Username)
	})

	t.Run("anonymous", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"detail":"User not authenticated.","code":"UNAUTHORIZED"}`, string(body))
	})

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/private", nil)
		req.Header.Set("X-Test-User", "1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "alice", string(body))
	})
}
