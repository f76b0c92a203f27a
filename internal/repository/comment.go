package repository

import (
	"context"

	"blogapi/internal/cache"
	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

// Create stores the comment and drops the cached copy of its post.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (err error) {
	ctx, done := startOp(ctx, "Create", "comments")
	defer func() { done(err) }()

	if err = r.db.WithContext(ctx).Omit("Post").Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, comment.PostID)
	r.log.LogCreate(ctx, map[string]any{"comment_id": comment.ID, "post_id": comment.PostID})
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) (comments []*models.Comment, err error) {
	ctx, done := startOp(ctx, "ListByPost", "comments")
	defer func() { done(err) }()

	err = readDB(r.db).WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}
