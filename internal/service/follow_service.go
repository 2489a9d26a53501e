package service

import (
	"context"

	"atelier/internal/models"
	"atelier/internal/repository"
)

type FollowService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	graph   *FollowGraphService
}

// FollowResult is the followed (or unfollowed) author as the viewer now sees them.
type FollowResult struct {
	Author      models.AuthorSummary `json:"author"`
	IsFollowing bool                 `json:"isFollowing"`
}

func NewFollowService(users repository.UserRepository, follows repository.FollowRepository, graph *FollowGraphService) *FollowService {
	return &FollowService{users: users, follows: follows, graph: graph}
}

// Follow makes the viewer follow targetID. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, viewerID, targetID uint) (*FollowResult, error) {
	if err := s.validateTarget(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	if err := s.follows.Follow(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	return s.result(ctx, viewerID, targetID)
}

// Unfollow removes the viewer's follow edge to targetID, if any.
func (s *FollowService) Unfollow(ctx context.Context, viewerID, targetID uint) (*FollowResult, error) {
	if err := s.validateTarget(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	if err := s.follows.Unfollow(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	return s.result(ctx, viewerID, targetID)
}

// GetAuthor returns the author summary of userID relative to the viewer.
func (s *FollowService) GetAuthor(ctx context.Context, userID, viewerID uint) (*models.AuthorSummary, error) {
	author, err := s.graph.Resolve(ctx, userID, viewerID)
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (s *FollowService) validateTarget(ctx context.Context, viewerID, targetID uint) error {
	if targetID == 0 {
		return models.NewValidationError("user id is required")
	}
	if targetID == viewerID {
		return models.NewValidationError("You cannot follow yourself")
	}
	_, err := s.users.GetByID(ctx, targetID)
	return err
}

func (s *FollowService) result(ctx context.Context, viewerID, targetID uint) (*FollowResult, error) {
	author, err := s.graph.Resolve(ctx, targetID, viewerID)
	if err != nil {
		return nil, err
	}
	return &FollowResult{Author: author, IsFollowing: author.IsFollowedByViewer}, nil
}
