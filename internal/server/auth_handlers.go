package server

import (
	"blogapi/internal/cache"
	"blogapi/internal/featureflags"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

const notAuthenticatedProfileMessage = "User not authenticated."

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// profileRequest distinguishes absent keys (nil) from empty values.
type profileRequest struct {
	Username  *string `json:"username" form:"username"`
	FirstName *string `json:"firstname" form:"firstname"`
	LastName  *string `json:"lastname" form:"lastname"`
	Email     *string `json:"email" form:"email"`
}

// Login handles POST /api/login/
// @Summary Log in
// @Description Authenticates with username and password and starts a session. When API tokens are enabled a bearer token is returned as well.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login request"
// @Success 200 {object} object{detail=string,user=models.User,token=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	// A malformed body is treated like missing credentials.
	_ = decodeBody(c, &req)

	user, err := s.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if models.ErrorCode(err) == models.CodeUnauthorized {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Detail: service.InvalidCredentialsMessage,
			})
		}
		return s.respond(c, err)
	}

	sess, err := s.sessions.Get(c)
	if err != nil {
		return s.respond(c, models.NewInternalError(err))
	}
	// A fresh session id on every login prevents session fixation.
	if err := sess.Regenerate(); err != nil {
		return s.respond(c, models.NewInternalError(err))
	}
	sess.Set(sessionUserKey, user.ID)
	if err := sess.Save(); err != nil {
		return s.respond(c, models.NewInternalError(err))
	}

	resp := fiber.Map{
		"detail": "Logged in successfully.",
		"user":   user,
	}
	if s.featureFlags.Enabled(featureflags.APITokens, user.ID) {
		token, _, err := s.tokens.Issue(user.ID, user.Username)
		if err != nil {
			return s.respond(c, models.NewInternalError(err))
		}
		resp["token"] = token
	}

	middleware.Logger.InfoContext(c.UserContext(), "user logged in", "user_id", user.ID)
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Register handles POST /api/register/
// @Summary Register
// @Description Creates a user account. Every invalid field is reported; the code names the error kind.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Registration request"
// @Success 201 {object} object{detail=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /register/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := decodeBody(c, &req); err != nil {
		return s.respond(c, err)
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"detail": "User created successfully.",
		"user":   user,
	})
}

// GetProfile handles GET /api/profile/
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /profile/ [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.authService.Profile(c.UserContext(), identity(c))
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles POST /api/profile/
// @Summary Update profile
// @Description Applies only the fields present in the body. An empty body changes nothing.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,firstname=string,lastname=string,email=string} false "Profile fields"
// @Success 200 {object} object{detail=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /profile/ [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := decodeBody(c, &req); err != nil {
		return s.respond(c, err)
	}

	user, err := s.authService.UpdateProfile(c.UserContext(), identity(c), service.ProfilePatch{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		return s.respond(c, err)
	}

	return c.JSON(fiber.Map{
		"detail": "Profile updated successfully.",
		"user":   user,
	})
}

// Logout handles POST /api/logout/
// @Summary Log out
// @Description Destroys the session and revokes a presented bearer token. Always succeeds.
// @Tags auth
// @Produce json
// @Success 200 {object} object{detail=string}
// @Router /logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if id, ok := middleware.CurrentIdentity(c); ok && id.Method == middleware.AuthBearer {
		if err := cache.RevokeToken(ctx, id.TokenID, id.TokenExpiresAt); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to revoke token", "error", err.Error())
		}
	}

	if c.Cookies(s.config.SessionCookieName) != "" {
		sess, err := s.sessions.Get(c)
		if err == nil {
			err = sess.Destroy()
		}
		if err != nil {
			middleware.Logger.WarnContext(ctx, "failed to destroy session", "error", err.Error())
		}
	}

	return c.JSON(fiber.Map{"detail": "Logged out successfully."})
}

// GetCSRFToken handles GET /api/csrf/
// @Summary Issue CSRF cookie
// @Description Sets the csrftoken cookie. Send its value in the X-CSRFToken header on session-authenticated writes.
// @Tags auth
// @Produce json
// @Success 200 {object} object{detail=string}
// @Router /csrf/ [get]
func (s *Server) GetCSRFToken(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(fiber.Map{"detail": "CSRF cookie set"})
}
