package service

import (
	"context"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ObjectURLSigner issues time-limited read URLs for stored assets.
type ObjectURLSigner interface {
	Sign(ctx context.Context, path string) (string, error)
	SignBatch(ctx context.Context, paths []string) (map[string]string, error)
}

// SummaryBuilder joins posts and comments with their authors, assets and the
// viewer's own state into response-ready summaries.
type SummaryBuilder struct {
	posts  repository.PostRepository
	assets repository.AssetRepository
	graph  *FollowGraphService
	signer ObjectURLSigner
}

// NewSummaryBuilder creates a SummaryBuilder.
func NewSummaryBuilder(
	posts repository.PostRepository,
	assets repository.AssetRepository,
	graph *FollowGraphService,
	signer ObjectURLSigner,
) *SummaryBuilder {
	return &SummaryBuilder{
		posts:  posts,
		assets: assets,
		graph:  graph,
		signer: signer,
	}
}

// BuildPostSummaries assembles one summary per post, in input order. Assets are
// fetched in one query and signed in one batch call, likes and authors are
// resolved once for the whole batch. A post whose asset or author row is
// missing still gets a summary, with an empty sub-object in its place.
func (b *SummaryBuilder) BuildPostSummaries(ctx context.Context, posts []models.Post, viewerID uint) (summaries []models.PostSummary, err error) {
	summaries = make([]models.PostSummary, 0, len(posts))
	if len(posts) == 0 {
		return summaries, nil
	}

	ctx, span := observability.StartSpan(ctx, "summary.build_posts", attribute.Int("posts", len(posts)))
	defer func() { observability.EndSpan(span, err) }()

	postIDs := make([]uint, 0, len(posts))
	assetIDs := make([]uint, 0, len(posts))
	ownerIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		assetIDs = append(assetIDs, p.AssetID)
		ownerIDs = append(ownerIDs, p.UserID)
	}

	var (
		assets  map[uint]models.AssetSummary
		liked   []uint
		authors map[uint]models.AuthorSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assets, err = b.resolveAssets(gctx, uniqueIDs(assetIDs))
		return err
	})
	g.Go(func() error {
		var err error
		liked, err = b.posts.GetLikedPostIDs(gctx, viewerID, postIDs)
		return err
	})
	g.Go(func() error {
		var err error
		authors, err = b.graph.BatchResolve(gctx, ownerIDs, viewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	likedSet := toSet(liked)
	for _, p := range posts {
		asset, ok := assets[p.AssetID]
		if !ok {
			asset = models.AssetSummary{ID: p.AssetID, Tags: []string{}}
		}
		author, ok := authors[p.UserID]
		if !ok {
			author = models.AuthorSummary{ID: p.UserID}
		}
		hashtags := []string(p.Hashtags)
		if hashtags == nil {
			hashtags = []string{}
		}

		summaries = append(summaries, models.PostSummary{
			ID:           p.ID,
			Caption:      p.Caption,
			Hashtags:     hashtags,
			Visibility:   p.Visibility,
			LikeCount:    p.LikeCount,
			CommentCount: p.CommentCount,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
			Author:       author,
			Asset:        asset,
			IsLiked:      likedSet[p.ID],
			IsSaved:      false,
			CanEdit:      p.UserID == viewerID,
		})
	}
	return summaries, nil
}

// BuildPostSummary is BuildPostSummaries for a single post.
func (b *SummaryBuilder) BuildPostSummary(ctx context.Context, post models.Post, viewerID uint) (models.PostSummary, error) {
	summaries, err := b.BuildPostSummaries(ctx, []models.Post{post}, viewerID)
	if err != nil {
		return models.PostSummary{}, err
	}
	return summaries[0], nil
}

// BuildCommentSummaries assembles one summary per comment. A comment may be
// deleted by its author or by the owner of the post it belongs to.
func (b *SummaryBuilder) BuildCommentSummaries(ctx context.Context, comments []models.Comment, viewerID, postOwnerID uint) ([]models.CommentSummary, error) {
	summaries := make([]models.CommentSummary, 0, len(comments))
	if len(comments) == 0 {
		return summaries, nil
	}

	authorIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.UserID)
	}
	authors, err := b.graph.BatchResolve(ctx, authorIDs, viewerID)
	if err != nil {
		return nil, err
	}

	for _, c := range comments {
		author, ok := authors[c.UserID]
		if !ok {
			author = models.AuthorSummary{ID: c.UserID}
		}
		summaries = append(summaries, models.CommentSummary{
			ID:        c.ID,
			PostID:    c.PostID,
			Message:   c.Message,
			CreatedAt: c.CreatedAt,
			Author:    author,
			CanDelete: c.UserID == viewerID || viewerID == postOwnerID,
		})
	}
	return summaries, nil
}

// resolveAssets loads the assets and signs all their storage paths in a
// single batch call. A signing failure fails the whole batch.
func (b *SummaryBuilder) resolveAssets(ctx context.Context, ids []uint) (map[uint]models.AssetSummary, error) {
	rows, err := b.assets.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(rows))
	for _, a := range rows {
		if a.StoragePath != "" {
			paths = append(paths, a.StoragePath)
		}
	}

	urls := map[string]string{}
	if len(paths) > 0 {
		urls, err = b.signer.SignBatch(ctx, paths)
		if err != nil {
			return nil, err
		}
	}

	out := make(map[uint]models.AssetSummary, len(rows))
	for _, a := range rows {
		tags := []string(a.Tags)
		if tags == nil {
			tags = []string{}
		}
		out[a.ID] = models.AssetSummary{
			ID:       a.ID,
			Name:     a.Name,
			Tags:     tags,
			ImageURL: urls[a.StoragePath],
		}
	}
	return out, nil
}
