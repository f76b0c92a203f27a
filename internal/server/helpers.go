package server

import (
	"errors"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parsePostID extracts the :id route parameter. A non-numeric or
// non-positive id cannot name a post, so it is answered with the same 404
// as a missing one.
// Callers should check: if err != nil { return nil }
func (s *Server) parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Post"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// decodeBody parses a JSON or form body into dest. An empty body leaves dest
// untouched and a body without a content type is read as JSON.
// A malformed body yields a VALIDATION_ERROR.
func decodeBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	var err error
	if c.Get(fiber.HeaderContentType) == "" || c.Is("json") {
		err = c.App().Config().JSONDecoder(c.Body(), dest)
	} else {
		err = c.BodyParser(dest)
	}
	if err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// statusFor maps an error code to its HTTP status.
func statusFor(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation,
		models.CodeDuplicateUsername,
		models.CodeDuplicateEmail,
		models.CodeInvalidUsername,
		models.CodeInvalidEmail,
		models.CodeWeakPassword:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// respond writes err with the status for its code. Internal causes are logged
// and never sent to the client.
func (s *Server) respond(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		)
	}
	return models.RespondWithError(c, status, err)
}

// identity returns the request identity or nil for anonymous requests.
func identity(c *fiber.Ctx) *middleware.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}
