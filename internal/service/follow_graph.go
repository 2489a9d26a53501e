package service

import (
	"context"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// FollowGraphService resolves author summaries for a batch of accounts
// relative to a viewer in a fixed number of queries, independent of batch size.
type FollowGraphService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

// NewFollowGraphService creates a FollowGraphService.
func NewFollowGraphService(users repository.UserRepository, follows repository.FollowRepository) *FollowGraphService {
	return &FollowGraphService{users: users, follows: follows}
}

// BatchResolve returns author summaries keyed by id. The five lookups run
// concurrently and are joined before the result is assembled. Ids without a
// profile row are omitted.
func (s *FollowGraphService) BatchResolve(ctx context.Context, authorIDs []uint, viewerID uint) (result map[uint]models.AuthorSummary, err error) {
	ids := uniqueIDs(authorIDs)
	result = make(map[uint]models.AuthorSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, span := observability.StartSpan(ctx, "followgraph.batch_resolve", attribute.Int("authors", len(ids)))
	defer func() { observability.EndSpan(span, err) }()

	var (
		profiles       []models.User
		followedByMe   []uint
		followingMe    []uint
		followerCounts map[uint]int64
		followingCount map[uint]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.users.GetByIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		followedByMe, err = s.follows.FolloweesAmong(gctx, viewerID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		followingMe, err = s.follows.FollowersAmong(gctx, viewerID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		followerCounts, err = s.follows.CountFollowers(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		followingCount, err = s.follows.CountFollowing(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	viewerFollows := toSet(followedByMe)
	followsViewer := toSet(followingMe)
	for _, u := range profiles {
		result[u.ID] = models.AuthorSummary{
			ID:                 u.ID,
			Username:           u.Username,
			DisplayName:        u.Name(),
			AvatarURL:          u.AvatarURL,
			IsFollowedByViewer: viewerFollows[u.ID],
			IsFollowingViewer:  followsViewer[u.ID],
			FollowerCount:      followerCounts[u.ID],
			FollowingCount:     followingCount[u.ID],
		}
	}
	return result, nil
}

// Resolve returns the summary of a single account, or NotFound when the
// account has no profile.
func (s *FollowGraphService) Resolve(ctx context.Context, authorID, viewerID uint) (models.AuthorSummary, error) {
	authors, err := s.BatchResolve(ctx, []uint{authorID}, viewerID)
	if err != nil {
		return models.AuthorSummary{}, err
	}
	author, ok := authors[authorID]
	if !ok {
		return models.AuthorSummary{}, models.NewNotFoundError("User", authorID)
	}
	return author, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
