package service

import (
	"context"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
	"blogapi/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	events      EventPublisher
}

type AddCommentInput struct {
	PostID  uint
	Message string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// SetPublisher installs the publisher notified after each new comment.
func (s *CommentService) SetPublisher(p EventPublisher) {
	s.events = p
}

// AddComment checks, in order: the post exists (404), the caller is
// authenticated (401), the message is valid (400). Name and email are
// always the identity's username and email.
func (s *CommentService) AddComment(ctx context.Context, id *middleware.Identity, in AddCommentInput) (*models.Comment, error) {
	if err := s.RequirePost(ctx, in.PostID); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, models.NewUnauthorizedError(notAuthenticatedMessage)
	}
	if errs := validation.CommentFields(in.Message); len(errs) > 0 {
		return nil, models.NewFieldError(models.CodeValidation, errs)
	}

	userID := id.UserID
	comment := &models.Comment{
		PostID:  in.PostID,
		UserID:  &userID,
		Name:    id.Username,
		Email:   id.Email,
		Message: in.Message,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("comment").Inc()
	if s.events != nil {
		logPublishError(ctx, "comment", s.events.PublishComment(ctx, comment))
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if err := s.RequirePost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// RequirePost returns a NOT_FOUND error when the post does not exist.
func (s *CommentService) RequirePost(ctx context.Context, postID uint) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Post")
	}
	return nil
}
