package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"blogapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Comment{PostID: 1, Name: "alice", Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPost(t *testing.T) {
	db := setupSQLiteDB(t)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "alice")
	first := &models.Post{Title: "One", Body: "1", AuthorID: author.ID}
	second := &models.Post{Title: "Two", Body: "2", AuthorID: author.ID}
	require.NoError(t, posts.Create(ctx, first))
	require.NoError(t, posts.Create(ctx, second))

	uid := author.ID
	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, comments.Create(ctx, &models.Comment{PostID: first.ID, UserID: &uid, Name: "alice", Message: msg}))
	}
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: second.ID, UserID: &uid, Name: "alice", Message: "other"}))

	got, err := comments.ListByPost(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Message, got[1].Message, got[2].Message})

	got, err = comments.ListByPost(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, got)
}
