// Package middleware provides authentication, logging, tracing and metrics middleware for the application.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"blogapi/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "blog-api"
	tokenAudience = "blog-client"

	// TokenTTL is the lifetime of bearer access tokens.
	TokenTTL = 7 * 24 * time.Hour
)

var errInvalidToken = errors.New("invalid or expired token")

// TokenClaims is the verified content of a bearer access token.
type TokenClaims struct {
	UserID    uint
	Username  string
	ID        string
	ExpiresAt time.Time
}

type accessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer access tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens returns a token signer for the given secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue signs a new access token for the user.
func (t *Tokens) Issue(userID uint, username string) (string, *TokenClaims, error) {
	if len(t.secret) == 0 {
		return "", nil, errors.New("JWT secret not configured")
	}

	now := t.now()
	claims := accessClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, &TokenClaims{
		UserID:    userID,
		Username:  username,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies signature, issuer, audience and expiry of a raw token.
func (t *Tokens) Parse(raw string) (*TokenClaims, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, errInvalidToken
	}

	out := &TokenClaims{
		UserID:   uint(userID),
		Username: claims.Username,
		ID:       claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired rejects requests without a resolved Identity. It must run
// after the identity middleware.
func AuthRequired(message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentIdentity(c); !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(message))
		}
		return c.Next()
	}
}
