package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AuthMethod records how a request was authenticated.
type AuthMethod string

const (
	AuthSession AuthMethod = "session"
	AuthBearer  AuthMethod = "bearer"
)

const identityLocalsKey = "identity"

// Identity is the authenticated principal of a single request.
type Identity struct {
	UserID   uint
	Username string
	Email    string
	Method   AuthMethod

	// Set only for bearer-authenticated requests.
	TokenID        string
	TokenExpiresAt time.Time
}

// SetIdentity attaches the identity to the request and propagates the user id
// to the request context for logging and tracing.
func SetIdentity(c *fiber.Ctx, id *Identity) {
	c.Locals(identityLocalsKey, id)
	c.Locals("userID", id.UserID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, id.UserID))
}

// CurrentIdentity returns the identity resolved for this request, if any.
func CurrentIdentity(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(identityLocalsKey).(*Identity)
	return id, ok && id != nil
}
