package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"blogapi/internal/database"
	"blogapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func TestSeed(t *testing.T) {
	db := openDB(t)
	opts := Options{NumUsers: 5, NumPosts: 12, NumComments: 30, RandSeed: 42, BcryptCost: bcrypt.MinCost}

	res, err := Seed(context.Background(), db, opts)
	require.NoError(t, err)
	assert.Len(t, res.Users, 5)
	assert.Len(t, res.Posts, 12)
	assert.Len(t, res.Comments, 30)

	var users, posts, comments int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(12), posts)
	assert.Equal(t, int64(30), comments)

	authors := map[uint]*models.User{}
	for _, u := range res.Users {
		authors[u.ID] = u
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DefaultPassword)))
	}
	for _, c := range res.Comments {
		require.NotNil(t, c.UserID)
		u := authors[*c.UserID]
		require.NotNil(t, u)
		assert.Equal(t, u.Username, c.Name)
		assert.Equal(t, u.Email, c.Email)
		assert.NotEmpty(t, c.Message)
	}
}

func TestSeed_Clean(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	opts := Options{NumUsers: 2, NumPosts: 3, NumComments: 3, BcryptCost: bcrypt.MinCost}

	_, err := Seed(ctx, db, opts)
	require.NoError(t, err)

	opts.ShouldClean = true
	_, err = Seed(ctx, db, opts)
	require.NoError(t, err)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(3), posts)
}

func TestSeed_RequiresUsers(t *testing.T) {
	_, err := Seed(context.Background(), openDB(t), Options{NumPosts: 3})
	assert.Error(t, err)
}

func TestSeed_NoPostsMeansNoComments(t *testing.T) {
	res, err := Seed(context.Background(), openDB(t), Options{NumUsers: 1, NumComments: 10, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Empty(t, res.Comments)
}

func TestBuildPost(t *testing.T) {
	f, err := NewFactory(nil, Options{MaxDays: 30, RandSeed: 7, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	author := &models.User{ID: 9}

	for i := 0; i < 20; i++ {
		p := f.BuildPost(author)
		assert.Equal(t, uint(9), p.AuthorID)
		assert.NotEmpty(t, p.Title)
		assert.LessOrEqual(t, len(p.Title), 200)
		assert.NotEmpty(t, p.Body)
		assert.Less(t, time.Since(p.CreatedAt), 31*24*time.Hour)

		c := f.BuildComment(&models.User{ID: 1, Username: "bob"}, p)
		assert.False(t, c.CreatedAt.Before(p.CreatedAt))
	}
}

func TestBuildUser_Overrides(t *testing.T) {
	f, err := NewFactory(nil, Options{RandSeed: 1, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	u := f.BuildUser(func(u *models.User) { u.Username = "fixed" })
	assert.Equal(t, "fixed", u.Username)
	assert.Equal(t, strings.ToLower(u.Email), u.Email)
	assert.Contains(t, u.Email, "@")
}
