package server

import (
	"strings"
	"time"

	"blogapi/internal/cache"
	"blogapi/internal/config"
	"blogapi/internal/featureflags"
	"blogapi/internal/middleware"
	"blogapi/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionUserKey    = "_auth_user_id"
	csrfHeaderName    = "X-CSRFToken"
	csrfContextKey    = "csrf"
	csrfFailedMessage = "CSRF Failed: CSRF token missing or incorrect."
	logoutPath        = "/api/logout"
)

func newSessionStore(cfg *config.Config, rdb *redis.Client) *session.Store {
	sc := session.Config{
		Expiration:     time.Duration(cfg.SessionTTLHours) * time.Hour,
		KeyLookup:      "cookie:" + cfg.SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.IsProduction(),
		CookieSameSite: "Lax",
		KeyGenerator:   uuid.NewString,
	}
	if rdb != nil {
		sc.Storage = cache.NewStorage(rdb, "session:")
	}
	return session.New(sc)
}

// IdentityMiddleware resolves the request's Identity from a bearer token
// (when the api_tokens flag allows it) or from the session cookie.
// Unauthenticated requests continue without an identity; handlers decide
// whether that is acceptable.
func (s *Server) IdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := s.bearerIdentity(c); id != nil {
			middleware.SetIdentity(c, id)
			return c.Next()
		}

		id, err := s.sessionIdentity(c)
		if err != nil {
			return s.respond(c, err)
		}
		if id != nil {
			middleware.SetIdentity(c, id)
		}
		return c.Next()
	}
}

func (s *Server) bearerIdentity(c *fiber.Ctx) *middleware.Identity {
	raw := middleware.BearerToken(c)
	if raw == "" || s.tokens == nil {
		return nil
	}
	ctx := c.UserContext()

	claims, err := s.tokens.Parse(raw)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "rejected bearer token", "error", err.Error())
		return nil
	}
	if s.featureFlags == nil || !s.featureFlags.Enabled(featureflags.APITokens, claims.UserID) {
		return nil
	}
	revoked, err := cache.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation check failed", "error", err.Error())
		return nil
	}
	if revoked {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil
	}
	return &middleware.Identity{
		UserID:         user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Method:         middleware.AuthBearer,
		TokenID:        claims.ID,
		TokenExpiresAt: claims.ExpiresAt,
	}
}

func (s *Server) sessionIdentity(c *fiber.Ctx) (*middleware.Identity, error) {
	if s.sessions == nil || c.Cookies(s.config.SessionCookieName) == "" {
		return nil, nil
	}
	sess, err := s.sessions.Get(c)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	userID, ok := sess.Get(sessionUserKey).(uint)
	if !ok || userID == 0 {
		return nil, nil
	}

	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			// The account behind a stale session is gone.
			return nil, nil
		}
		return nil, err
	}
	return &middleware.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Method:   middleware.AuthSession,
	}, nil
}

// CSRFMiddleware issues the CSRF cookie on safe requests and checks the
// X-CSRFToken header on unsafe requests made with a logged-in session.
// Anonymous and bearer-authenticated writes are not checked, and neither is
// logout, which always tears the session down.
func (s *Server) CSRFMiddleware() fiber.Handler {
	cc := csrf.Config{
		Next: func(c *fiber.Ctx) bool {
			if !s.config.CSRFEnabled {
				return true
			}
			if isSafeMethod(c.Method()) {
				return false
			}
			if strings.TrimSuffix(c.Path(), "/") == logoutPath {
				return true
			}
			id, ok := middleware.CurrentIdentity(c)
			return !ok || id.Method != middleware.AuthSession
		},
		KeyLookup:      "header:" + csrfHeaderName,
		CookieName:     s.config.CSRFCookieName,
		CookieSameSite: "Lax",
		CookieSecure:   s.config.IsProduction(),
		Expiration:     time.Duration(s.config.SessionTTLHours) * time.Hour,
		ContextKey:     csrfContextKey,
		KeyGenerator:   uuid.NewString,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			middleware.Logger.InfoContext(c.UserContext(), "csrf check failed",
				"path", c.Path(),
				"reason", err.Error(),
			)
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(csrfFailedMessage))
		},
	}
	if s.redis != nil {
		cc.Storage = cache.NewStorage(s.redis, "csrf:")
	}
	return csrf.New(cc)
}

func isSafeMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace:
		return true
	}
	return false
}
