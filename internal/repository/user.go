package repository

import (
	"context"
	"errors"

	"blogapi/internal/cache"
	"blogapi/internal/models"
	"blogapi/internal/observability"

	"gorm.io/gorm"
)

// DuplicateUsernameMessage is returned in the username field error when the name is taken.
const DuplicateUsernameMessage = "A user with that username already exists."

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID returns the user without the password hash (served from cache when possible).
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByUsername returns the full record including the password hash.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]any) (*models.User, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (user *models.User, err error) {
	ctx, done := startOp(ctx, "GetByID", "users")
	defer func() { done(err) }()

	var u models.User
	err = cache.Aside(ctx, cache.UserKey(id), &u, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (user *models.User, err error) {
	ctx, done := startOp(ctx, "GetByUsername", "users")
	defer func() { done(err) }()

	var u models.User
	if err = r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User")
		}
		return nil, models.NewInternalError(err)
	}
	return &u, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.exists(ctx, "username = ?", username, excludeID)
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER(?)", email, excludeID)
}

func (r *userRepository) exists(ctx context.Context, cond string, value string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where(cond, value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, done := startOp(ctx, "Create", "users")
	defer func() { done(err) }()

	if err = r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return duplicateUsername()
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"user_id": user.ID})
	return nil
}

// Update writes only the given columns and returns the fresh row.
func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]any) (user *models.User, err error) {
	ctx, done := startOp(ctx, "Update", "users")
	defer func() { done(err) }()

	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{ID: id}).Updates(fields)
		if res.Error != nil {
			if isUniqueConstraintError(res.Error) {
				return nil, duplicateUsername()
			}
			r.log.LogError(ctx, res.Error, "update")
			return nil, models.NewInternalError(res.Error)
		}
		cache.InvalidateUser(ctx, id)
		r.log.LogUpdate(ctx, map[string]any{"user_id": id, "fields": len(fields)})
	}

	var u models.User
	if err = r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User")
		}
		return nil, models.NewInternalError(err)
	}
	u.Password = ""
	return &u, nil
}

func duplicateUsername() *models.AppError {
	return models.NewFieldError(models.CodeDuplicateUsername, models.FieldErrors{
		"username": {DuplicateUsernameMessage},
	})
}
