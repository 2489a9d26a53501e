package service

import (
	"context"
	"strings"
	"testing"

	"atelier/internal/models"
	"atelier/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	owner := fx.User("owner")
	viewer := fx.User("viewer")
	post := fx.Post(owner.ID, models.VisibilityPublic)
	hidden := fx.Post(owner.ID, models.VisibilityFollowers)

	s := newServices(db, &signerStub{})
	ctx := context.Background()

	t.Run("rejects blank and oversized messages", func(t *testing.T) {
		for _, msg := range []string{"", "   \n\t", strings.Repeat("é", models.MaxCommentLength+1)} {
			_, err := s.comments.AddComment(ctx, post.ID, viewer.ID, msg)
			assertValidationError(t, err)
		}
	})

	t.Run("accepts exactly the maximum length", func(t *testing.T) {
		res, err := s.comments.AddComment(ctx, post.ID, viewer.ID, strings.Repeat("é", models.MaxCommentLength))
		require.NoError(t, err)
		assert.Equal(t, 1, res.CommentCount)
	})

	t.Run("trims and counts", func(t *testing.T) {
		res, err := s.comments.AddComment(ctx, post.ID, viewer.ID, "  lovely light  ")
		require.NoError(t, err)
		assert.Equal(t, "lovely light", res.Comment.Message)
		assert.Equal(t, 2, res.CommentCount)
		assert.True(t, res.Comment.CanDelete)
		assert.Equal(t, "viewer", res.Comment.Author.Username)
	})

	t.Run("hidden post", func(t *testing.T) {
		_, err := s.comments.AddComment(ctx, hidden.ID, viewer.ID, "hello")
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := s.comments.AddComment(ctx, 9999, viewer.ID, "hello")
		assertAppErrorCode(t, err, models.CodeNotFound)
	})
}

func TestDeleteComment(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	owner := fx.User("owner")
	author := fx.User("author")
	other := fx.User("other")
	post := fx.Post(owner.ID, models.VisibilityPublic)

	s := newServices(db, &signerStub{})
	ctx := context.Background()

	first, err := s.comments.AddComment(ctx, post.ID, author.ID, "one")
	require.NoError(t, err)
	second, err := s.comments.AddComment(ctx, post.ID, author.ID, "two")
	require.NoError(t, err)

	_, err = s.comments.DeleteComment(ctx, first.Comment.ID, other.ID)
	assertAppErrorCode(t, err, models.CodeForbidden)

	res, err := s.comments.DeleteComment(ctx, first.Comment.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Comment.ID, res.CommentID)
	assert.Equal(t, 1, res.CommentCount)

	res, err = s.comments.DeleteComment(ctx, second.Comment.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CommentCount)

	_, err = s.comments.DeleteComment(ctx, second.Comment.ID, owner.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)

	stored, err := s.postRepo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CommentCount)
}
