package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"atelier/internal/models"
	"atelier/internal/repository"
)

type CommentService struct {
	comments  repository.CommentRepository
	posts     repository.PostRepository
	gate      *VisibilityGate
	counters  *CounterRecalculator
	summaries *SummaryBuilder
}

// CommentPage is one page of comment summaries, newest first.
type CommentPage struct {
	Comments   []models.CommentSummary `json:"comments"`
	NextCursor *time.Time              `json:"nextCursor"`
}

// AddCommentResult is the created comment and the post's recomputed count.
type AddCommentResult struct {
	Comment      models.CommentSummary `json:"comment"`
	CommentCount int                   `json:"commentCount"`
}

// DeleteCommentResult identifies the removed comment and the post's recomputed count.
type DeleteCommentResult struct {
	CommentID    uint `json:"commentId"`
	CommentCount int  `json:"commentCount"`
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	gate *VisibilityGate,
	counters *CounterRecalculator,
	summaries *SummaryBuilder,
) *CommentService {
	return &CommentService{
		comments:  comments,
		posts:     posts,
		gate:      gate,
		counters:  counters,
		summaries: summaries,
	}
}

// AddComment adds a comment to a post the viewer can see.
func (s *CommentService) AddComment(ctx context.Context, postID, viewerID uint, message string) (*AddCommentResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewValidationError("Comment message is required")
	}
	if utf8.RuneCountInString(message) > models.MaxCommentLength {
		return nil, models.NewValidationError("Comment too long (max 500 characters)")
	}

	access, err := s.gate.Require(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:    postID,
		UserID:    viewerID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	count, err := s.counters.Recount(ctx, postID, CounterComments)
	if err != nil {
		return nil, err
	}

	summaries, err := s.summaries.BuildCommentSummaries(ctx, []models.Comment{*comment}, viewerID, access.Post.UserID)
	if err != nil {
		return nil, err
	}
	return &AddCommentResult{Comment: summaries[0], CommentCount: count}, nil
}

// DeleteComment removes a comment. Only its author or the post owner may do this.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, viewerID uint) (*DeleteCommentResult, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if comment.UserID != viewerID {
		post, err := s.posts.GetByID(ctx, comment.PostID)
		if err != nil {
			return nil, err
		}
		if post.UserID != viewerID {
			return nil, models.NewForbiddenError("You can only delete your own comments or comments on your posts")
		}
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return nil, err
	}

	count, err := s.counters.Recount(ctx, comment.PostID, CounterComments)
	if err != nil {
		return nil, err
	}
	return &DeleteCommentResult{CommentID: commentID, CommentCount: count}, nil
}

// ListComments returns a page of comments on a post the viewer can see.
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint, cursor *time.Time, limit int) (*CommentPage, error) {
	access, err := s.gate.Require(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, access.Post, viewerID, cursor, limit)
}

func (s *CommentService) page(ctx context.Context, post *models.Post, viewerID uint, cursor *time.Time, limit int) (*CommentPage, error) {
	page, err := s.comments.ListByPost(ctx, post.ID, cursor, CommentLimits.Clamp(limit))
	if err != nil {
		return nil, err
	}
	summaries, err := s.summaries.BuildCommentSummaries(ctx, page.Items, viewerID, post.UserID)
	if err != nil {
		return nil, err
	}
	return &CommentPage{Comments: summaries, NextCursor: page.NextCursor}, nil
}
