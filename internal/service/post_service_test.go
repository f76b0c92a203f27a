package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogapi/internal/middleware"
	"blogapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = &middleware.Identity{UserID: 7, Username: "alice", Email: "alice@example.com", Method: middleware.AuthSession}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo())
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreatePost(ctx, nil, CreatePostInput{Title: "t", Body: "b"})
		appErr := assertAppError(t, err, models.CodeUnauthorized)
		assert.Equal(t, "Authentication credentials were not provided.", appErr.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreatePost(ctx, alice, CreatePostInput{})
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Equal(t, []string{"This field is required."}, appErr.Fields["title"])
		assert.Equal(t, []string{"This field is required."}, appErr.Fields["body"])
	})

	t.Run("title too long", func(t *testing.T) {
		t.Parallel()
		_, err := svc.CreatePost(ctx, alice, CreatePostInput{Title: strings.Repeat("x", 201), Body: "b"})
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Contains(t, appErr.Fields, "title")
	})
}

func TestPostService_CreatePost_AuthorFromIdentity(t *testing.T) {
	t.Parallel()

	var saved *models.Post
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 3
		saved = p
		return nil
	}

	post, err := NewPostService(repo).CreatePost(context.Background(), alice, CreatePostInput{Title: "Hello", Body: "World"})
	require.NoError(t, err)
	assert.Equal(t, uint(3), post.ID)
	assert.Equal(t, uint(7), saved.AuthorID)
}

func TestPostService_ListPosts_Clamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in         ListPostsInput
		wantLimit  int
		wantOffset int
	}{
		{ListPostsInput{}, DefaultPageSize, 0},
		{ListPostsInput{Limit: 500, Offset: -3}, MaxPageSize, 0},
		{ListPostsInput{Limit: 5, Offset: 10}, 5, 10},
	}

	for _, tt := range tests {
		var gotLimit, gotOffset int
		repo := noopPostRepo()
		repo.listFn = func(_ context.Context, limit, offset int) ([]*models.Post, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		}
		posts, err := NewPostService(repo).ListPosts(context.Background(), tt.in)
		require.NoError(t, err)
		assert.NotNil(t, posts)
		assert.Equal(t, tt.wantLimit, gotLimit)
		assert.Equal(t, tt.wantOffset, gotOffset)
	}
}

func TestPostService_GetPost_PropagatesError(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("db down")
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return nil, repoErr }

	_, err := NewPostService(repo).GetPost(context.Background(), 1)
	assert.ErrorIs(t, err, repoErr)
}
