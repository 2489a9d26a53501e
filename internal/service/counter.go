package service

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/observability"
	"atelier/internal/repository"
)

// CounterKind selects which cached post counter to recompute.
type CounterKind string

const (
	CounterLikes    CounterKind = "like"
	CounterComments CounterKind = "comment"
)

// CounterRecalculator rewrites a post's cached like/comment count from the
// fact tables. Counters are always recomputed, never incremented, so
// concurrent writers cannot lose updates.
type CounterRecalculator struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	now      func() time.Time
}

// NewCounterRecalculator creates a CounterRecalculator.
func NewCounterRecalculator(posts repository.PostRepository, comments repository.CommentRepository) *CounterRecalculator {
	return &CounterRecalculator{
		posts:    posts,
		comments: comments,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Recount counts the fact rows for postID, stores the count with a fresh
// updatedAt on the post, and returns it.
func (r *CounterRecalculator) Recount(ctx context.Context, postID uint, kind CounterKind) (count int, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		observability.CounterRecounts.WithLabelValues(string(kind), result).Inc()
	}()

	var total int64
	switch kind {
	case CounterLikes:
		total, err = r.posts.CountLikes(ctx, postID)
	case CounterComments:
		total, err = r.comments.CountByPost(ctx, postID)
	default:
		return 0, fmt.Errorf("unknown counter kind %q", kind)
	}
	if err != nil {
		return 0, err
	}

	count = int(total)
	at := r.now()
	switch kind {
	case CounterLikes:
		err = r.posts.SetLikeCount(ctx, postID, count, at)
	case CounterComments:
		err = r.posts.SetCommentCount(ctx, postID, count, at)
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}
