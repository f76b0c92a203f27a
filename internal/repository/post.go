package repository

import (
	"context"
	"errors"

	"blogapi/internal/cache"
	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID returns the post with its comments, oldest first.
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	// List returns posts newest first, each with its comments.
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func orderedComments(db *gorm.DB) *gorm.DB {
	return db.Order("comments.created_at ASC, comments.id ASC")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, done := startOp(ctx, "Create", "posts")
	defer func() { done(err) }()

	if err = r.db.WithContext(ctx).Omit("Author", "Comments").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	post.Comments = []models.Comment{}
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (post *models.Post, err error) {
	ctx, done := startOp(ctx, "GetByID", "posts")
	defer func() { done(err) }()

	var p models.Post
	// The cached copy is refilled from the primary so it never misses a
	// comment that a lagging replica has not seen yet.
	err = cache.Aside(ctx, cache.PostKey(id), &p, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("Comments", orderedComments).
			First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	return &p, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	// Primary read: a post created a moment ago must be visible to comments.
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) (posts []*models.Post, err error) {
	ctx, done := startOp(ctx, "List", "posts")
	defer func() { done(err) }()

	err = readDB(r.db).WithContext(ctx).
		Preload("Comments", orderedComments).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range posts {
		if p.Comments == nil {
			p.Comments = []models.Comment{}
		}
	}
	return posts, nil
}
