package server

import (
	"blogapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// createPostRequest has no author field: the author is always the caller.
type createPostRequest struct {
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

// CreatePost handles POST /api/post/
// @Summary Create a post
// @Description Creates a post authored by the current user. Any author in the body is ignored.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{title=string,body=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /post/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	id := identity(c)
	var req createPostRequest
	if err := decodeBody(c, &req); err != nil && id != nil {
		return s.respond(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), id, service.CreatePostInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ListPosts handles GET /api/post/
// @Summary List posts
// @Description Newest first, each post with its comments.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /post/ [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/post/:id/
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/ [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parsePostID(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(post)
}
