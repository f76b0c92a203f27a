package seed

import (
	"context"
	"fmt"
	"log"

	"blogapi/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	NumComments int
	ShouldClean bool
	// MaxDays bounds how far back post timestamps are spread.
	MaxDays int
	// RandSeed makes a run reproducible when non-zero.
	RandSeed int64
	// BcryptCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
	BcryptCost int
}

// Result reports what a run created.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Comments []*models.Comment
}

// Seed populates the database with users, posts and comments.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("seed needs at least one user, got %d", opts.NumUsers)
	}
	db = db.WithContext(ctx)

	log.Printf("🌱 Seeding %d users, %d posts, %d comments", opts.NumUsers, opts.NumPosts, opts.NumComments)

	if opts.ShouldClean {
		if err := ClearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		res.Users = append(res.Users, user)
	}
	log.Printf("✓ %d users created", len(res.Users))

	res.Posts = make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := res.Users[f.rng.Intn(len(res.Users))]
		res.Posts = append(res.Posts, f.BuildPost(author))
	}
	if err := f.CreatePostsBatch(res.Posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(res.Posts))

	if len(res.Posts) > 0 {
		res.Comments = make([]*models.Comment, 0, opts.NumComments)
		for i := 0; i < opts.NumComments; i++ {
			user := res.Users[f.rng.Intn(len(res.Users))]
			post := res.Posts[f.rng.Intn(len(res.Posts))]
			res.Comments = append(res.Comments, f.BuildComment(user, post))
		}
		if err := f.CreateCommentsBatch(res.Comments); err != nil {
			return nil, fmt.Errorf("failed to create comments: %w", err)
		}
	}
	log.Printf("✓ %d comments created", len(res.Comments))

	return res, nil
}

// ClearData removes all blog rows. Postgres also resets identity sequences.
func ClearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE comments, posts, users RESTART IDENTITY CASCADE`).Error
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"comments", "posts", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
