package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"atelier/internal/models"
	"atelier/internal/repository"

	"gorm.io/datatypes"
)

const (
	maxCaptionLength = 2000
	maxHashtags      = 30
	maxHashtagLength = 64
)

var hashtagPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// FeedScope selects which posts a feed lists.
type FeedScope string

const (
	// FeedScopeHome lists every post the viewer may see.
	FeedScopeHome FeedScope = "home"
	// FeedScopeProfile lists one author's posts the viewer may see.
	FeedScopeProfile FeedScope = "profile"
)

// ParseFeedScope validates a scope parameter; empty means home.
func ParseFeedScope(raw string) (FeedScope, error) {
	switch FeedScope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FeedScopeHome:
		return FeedScopeHome, nil
	case FeedScopeProfile:
		return FeedScopeProfile, nil
	}
	return "", models.NewValidationError("scope must be one of: home, profile")
}

type PostService struct {
	posts     repository.PostRepository
	assets    repository.AssetRepository
	gate      *VisibilityGate
	counters  *CounterRecalculator
	summaries *SummaryBuilder
	comments  *CommentService
}

type ListFeedInput struct {
	ViewerID uint
	Scope    FeedScope
	AuthorID *uint
	Cursor   *time.Time
	Limit    int
}

// FeedPage is one page of post summaries. NextCursor is nil on the last page.
type FeedPage struct {
	Posts      []models.PostSummary `json:"posts"`
	NextCursor *time.Time           `json:"nextCursor"`
}

// PostDetail is a post with the first page of its comments.
type PostDetail struct {
	Post       models.PostSummary      `json:"post"`
	Comments   []models.CommentSummary `json:"comments"`
	NextCursor *time.Time              `json:"nextCursor"`
}

type CreatePostInput struct {
	ViewerID   uint
	AssetID    uint
	Caption    *string
	Hashtags   []string
	Visibility string
}

func NewPostService(
	posts repository.PostRepository,
	assets repository.AssetRepository,
	gate *VisibilityGate,
	counters *CounterRecalculator,
	summaries *SummaryBuilder,
	comments *CommentService,
) *PostService {
	return &PostService{
		posts:     posts,
		assets:    assets,
		gate:      gate,
		counters:  counters,
		summaries: summaries,
		comments:  comments,
	}
}

// ListFeed returns a page of the home or profile feed. Profile feeds default
// to the viewer's own profile.
func (s *PostService) ListFeed(ctx context.Context, in ListFeedInput) (FeedPage, error) {
	filter := repository.FeedFilter{ViewerID: in.ViewerID}
	switch in.Scope {
	case "", FeedScopeHome:
	case FeedScopeProfile:
		authorID := in.ViewerID
		if in.AuthorID != nil && *in.AuthorID != 0 {
			authorID = *in.AuthorID
		}
		filter.AuthorID = &authorID
	default:
		return FeedPage{}, models.NewValidationError("scope must be one of: home, profile")
	}

	page, err := s.posts.ListVisible(ctx, filter, in.Cursor, FeedLimits.Clamp(in.Limit))
	if err != nil {
		return FeedPage{}, err
	}

	summaries, err := s.summaries.BuildPostSummaries(ctx, page.Items, in.ViewerID)
	if err != nil {
		return FeedPage{}, err
	}
	return FeedPage{Posts: summaries, NextCursor: page.NextCursor}, nil
}

// GetPostDetail returns a visible post and a page of its comments.
func (s *PostService) GetPostDetail(ctx context.Context, postID, viewerID uint, cursor *time.Time, limit int) (*PostDetail, error) {
	access, err := s.gate.Require(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summaries.BuildPostSummary(ctx, *access.Post, viewerID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.page(ctx, access.Post, viewerID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &PostDetail{
		Post:       summary,
		Comments:   comments.Comments,
		NextCursor: comments.NextCursor,
	}, nil
}

// CreatePost publishes one of the viewer's assets. All input is validated
// before the datastore is touched.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.PostSummary, error) {
	if in.AssetID == 0 {
		return nil, models.NewValidationError("assetId is required")
	}
	visibility, err := models.ParseVisibility(in.Visibility)
	if err != nil {
		return nil, err
	}
	caption, err := normalizeCaption(in.Caption)
	if err != nil {
		return nil, err
	}
	hashtags, err := normalizeHashtags(in.Hashtags)
	if err != nil {
		return nil, err
	}

	asset, err := s.assets.GetByID(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.UserID != in.ViewerID {
		return nil, models.NewForbiddenError("You can only post your own assets")
	}

	now := time.Now().UTC()
	post := &models.Post{
		UserID:     in.ViewerID,
		AssetID:    asset.ID,
		Caption:    caption,
		Hashtags:   datatypes.JSONSlice[string](hashtags),
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	summary, err := s.summaries.BuildPostSummary(ctx, *post, in.ViewerID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdateVisibility changes the visibility of a post. Only the owner may do this.
func (s *PostService) UpdateVisibility(ctx context.Context, postID, viewerID uint, raw string) (*models.PostSummary, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, models.NewValidationError("visibility is required")
	}
	visibility, err := models.ParseVisibility(raw)
	if err != nil {
		return nil, err
	}

	access, err := s.gate.Require(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	if !access.IsOwner {
		return nil, models.NewForbiddenError("Only the owner can change a post's visibility")
	}

	if err := s.posts.UpdateVisibility(ctx, postID, visibility); err != nil {
		return nil, err
	}
	return s.reloadSummary(ctx, postID, viewerID)
}

// LikePost records the viewer's like and returns the post with its recomputed
// like count. Liking twice leaves a single like.
func (s *PostService) LikePost(ctx context.Context, postID, viewerID uint) (*models.PostSummary, error) {
	if _, err := s.gate.Require(ctx, postID, viewerID); err != nil {
		return nil, err
	}
	if err := s.posts.Like(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	if _, err := s.counters.Recount(ctx, postID, CounterLikes); err != nil {
		return nil, err
	}
	return s.reloadSummary(ctx, postID, viewerID)
}

// UnlikePost removes the viewer's like, if any, and returns the post with its
// recomputed like count.
func (s *PostService) UnlikePost(ctx context.Context, postID, viewerID uint) (*models.PostSummary, error) {
	if _, err := s.gate.Require(ctx, postID, viewerID); err != nil {
		return nil, err
	}
	if err := s.posts.Unlike(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	if _, err := s.counters.Recount(ctx, postID, CounterLikes); err != nil {
		return nil, err
	}
	return s.reloadSummary(ctx, postID, viewerID)
}

func (s *PostService) reloadSummary(ctx context.Context, postID, viewerID uint) (*models.PostSummary, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summaries.BuildPostSummary(ctx, *post, viewerID)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func normalizeCaption(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	caption := strings.TrimSpace(*raw)
	if caption == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(caption) > maxCaptionLength {
		return nil, models.NewValidationError("Caption too long (max 2000 characters)")
	}
	return &caption, nil
}

// normalizeHashtags strips leading '#', lowercases and dedupes, keeping the
// first-seen order.
func normalizeHashtags(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		if tag == "" || seen[tag] {
			continue
		}
		if len(tag) > maxHashtagLength {
			return nil, models.NewValidationError("Hashtag too long (max 64 characters)")
		}
		if !hashtagPattern.MatchString(tag) {
			return nil, models.NewValidationError("Hashtags may only contain letters, digits and underscores")
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) > maxHashtags {
		return nil, models.NewValidationError("Too many hashtags (max 30)")
	}
	return out, nil
}
