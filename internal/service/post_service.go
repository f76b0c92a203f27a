package service

import (
	"context"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
	"blogapi/internal/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	notAuthenticatedMessage = "Authentication credentials were not provided."
)

type PostService struct {
	postRepo repository.PostRepository
	events   EventPublisher
}

type CreatePostInput struct {
	Title string
	Body  string
}

type ListPostsInput struct {
	Limit  int
	Offset int
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// SetPublisher installs the publisher notified after each new post.
func (s *PostService) SetPublisher(p EventPublisher) {
	s.events = p
}

// CreatePost stores a post authored by the identity. The author is never
// taken from client input.
func (s *PostService) CreatePost(ctx context.Context, id *middleware.Identity, in CreatePostInput) (*models.Post, error) {
	if id == nil {
		return nil, models.NewUnauthorizedError(notAuthenticatedMessage)
	}
	if errs := validation.PostFields(in.Title, in.Body); len(errs) > 0 {
		return nil, models.NewFieldError(models.CodeValidation, errs)
	}

	post := &models.Post{
		Title:    in.Title,
		Body:     in.Body,
		AuthorID: id.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("post").Inc()
	if s.events != nil {
		logPublishError(ctx, "post", s.events.PublishPost(ctx, post))
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// ListPosts clamps the page to [1, MaxPageSize] and returns newest first.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	if in.Limit <= 0 {
		in.Limit = DefaultPageSize
	}
	if in.Limit > MaxPageSize {
		in.Limit = MaxPageSize
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	posts, err := s.postRepo.List(ctx, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}
