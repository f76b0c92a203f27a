package server

import (
	"blogapi/internal/models"
	"blogapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// addCommentRequest carries only the message. Name and email are taken from
// the current user.
type addCommentRequest struct {
	Message string `json:"message" form:"message"`
}

// AddComment handles POST /api/post/:id/comments/
// @Summary Comment on a post
// @Description A missing post is reported before authentication and validation.
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{message=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/comments/ [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	postID, err := s.parsePostID(c)
	if err != nil {
		return nil
	}

	var req addCommentRequest
	if decodeErr := decodeBody(c, &req); decodeErr != nil {
		if err := s.commentService.RequirePost(ctx, postID); err != nil {
			return s.respond(c, err)
		}
		if identity(c) == nil {
			return s.respond(c, models.NewUnauthorizedError("Authentication credentials were not provided."))
		}
		return s.respond(c, decodeErr)
	}

	comment, err := s.commentService.AddComment(ctx, identity(c), service.AddCommentInput{
		PostID:  postID,
		Message: req.Message,
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListComments handles GET /api/post/:id/comments/
// @Summary List comments of a post
// @Description Oldest first.
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/comments/ [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := s.parsePostID(c)
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(comments)
}
