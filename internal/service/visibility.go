// Package service contains business logic for the feed: visibility decisions,
// counter maintenance, read-model assembly, and the post/comment/follow actions.
package service

import (
	"context"
	"errors"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/repository"
)

// AccessStatus is the outcome of a visibility decision.
type AccessStatus string

const (
	AccessOK        AccessStatus = "ok"
	AccessForbidden AccessStatus = "forbidden"
	AccessNotFound  AccessStatus = "not_found"
)

// Access is the result of VisibilityGate.Resolve. Post is set only when
// Status is AccessOK.
type Access struct {
	Status  AccessStatus
	Post    *models.Post
	IsOwner bool
}

// VisibilityGate decides whether a viewer may see a post. It holds no state;
// every call re-reads the post and, for followers-only posts, the follow edge.
type VisibilityGate struct {
	posts   repository.PostRepository
	follows repository.FollowRepository
}

// NewVisibilityGate creates a VisibilityGate.
func NewVisibilityGate(posts repository.PostRepository, follows repository.FollowRepository) *VisibilityGate {
	return &VisibilityGate{posts: posts, follows: follows}
}

// Resolve returns the viewer's access to postID. The returned error is only
// set for dependency failures; missing and hidden posts are reported via Status.
func (g *VisibilityGate) Resolve(ctx context.Context, postID, viewerID uint) (Access, error) {
	post, err := g.posts.GetByID(ctx, postID)
	if err != nil {
		if isNotFound(err) {
			return g.record(Access{Status: AccessNotFound}), nil
		}
		return Access{}, err
	}

	if post.UserID == viewerID {
		return g.record(Access{Status: AccessOK, Post: post, IsOwner: true}), nil
	}

	switch post.Visibility {
	case models.VisibilityPublic:
		return g.record(Access{Status: AccessOK, Post: post}), nil
	case models.VisibilityFollowers:
		follows, err := g.follows.Exists(ctx, viewerID, post.UserID)
		if err != nil {
			return Access{}, err
		}
		if follows {
			return g.record(Access{Status: AccessOK, Post: post}), nil
		}
	}
	return g.record(Access{Status: AccessForbidden}), nil
}

// Require is Resolve with forbidden and not_found turned into AppErrors.
// Missing posts are 404 and hidden posts 403, so existence is not concealed.
func (g *VisibilityGate) Require(ctx context.Context, postID, viewerID uint) (Access, error) {
	access, err := g.Resolve(ctx, postID, viewerID)
	if err != nil {
		return Access{}, err
	}
	switch access.Status {
	case AccessNotFound:
		return Access{}, models.NewNotFoundError("Post", postID)
	case AccessForbidden:
		return Access{}, models.NewForbiddenError("You do not have access to this post")
	}
	return access, nil
}

func (g *VisibilityGate) record(access Access) Access {
	observability.VisibilityDecisions.WithLabelValues(string(access.Status)).Inc()
	return access
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
