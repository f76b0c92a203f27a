// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"blogapi/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is assigned to every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db       *gorm.DB
	faker    *gofakeit.Faker
	rng      *rand.Rand
	maxDays  int
	password string
}

// NewFactory creates a Factory bound to db. A zero seed picks one from the clock.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	// Every seeded user shares one password, so hash it once.
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	return &Factory{
		db:       db,
		faker:    gofakeit.New(seed),
		rng:      rand.New(rand.NewSource(seed)),
		maxDays:  maxDays,
		password: string(hash),
	}, nil
}

// BuildUser returns an unsaved user with a unique-ish username.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first := f.faker.FirstName()
	last := f.faker.LastName()
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", strings.ToLower(f.faker.Username()), f.faker.Number(100, 99999)),
		FirstName: first,
		LastName:  last,
		Password:  f.password,
	}
	user.Email = strings.ToLower(fmt.Sprintf("%s.%s@%s", first, last, f.faker.DomainName()))
	if len(user.Username) > 150 {
		user.Username = user.Username[:150]
	}

	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a generated user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return user, nil
}

// BuildPost returns an unsaved post by author with a created_at spread over
// the configured window.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.rng.Intn(6)+3), ".")
	if len(title) > 200 {
		title = title[:200]
	}
	post := &models.Post{
		Title:     title,
		Body:      f.faker.Paragraph(f.rng.Intn(3)+1, 4, 12, "\n\n"),
		AuthorID:  author.ID,
		CreatedAt: f.pastTime(),
	}
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in a single statement.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.CreateInBatches(posts, 100).Error
}

// BuildComment returns an unsaved comment by user on post. Name and email
// copy the user's account, as the API does.
func (f *Factory) BuildComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) *models.Comment {
	uid := user.ID
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  &uid,
		Name:    user.Username,
		Email:   user.Email,
		Message: f.faker.Sentence(f.rng.Intn(18) + 4),
	}
	// Comments never predate their post.
	since := time.Since(post.CreatedAt)
	if since > 0 {
		comment.CreatedAt = post.CreatedAt.Add(time.Duration(f.rng.Int63n(int64(since))))
	} else {
		comment.CreatedAt = time.Now()
	}

	for _, override := range overrides {
		override(comment)
	}
	return comment
}

// CreateCommentsBatch persists comments in a single statement.
func (f *Factory) CreateCommentsBatch(comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	return f.db.CreateInBatches(comments, 200).Error
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rng.Intn(f.maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}
