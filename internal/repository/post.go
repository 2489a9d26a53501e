// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedFilter selects the posts a viewer may see. AuthorID narrows the feed to
// a single profile.
type FeedFilter struct {
	ViewerID uint
	AuthorID *uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	UpdateVisibility(ctx context.Context, id uint, visibility models.Visibility) error
	ListVisible(ctx context.Context, filter FeedFilter, cursor *time.Time, limit int) (Page[models.Post], error)
	GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	CountLikes(ctx context.Context, postID uint) (int64, error)
	SetLikeCount(ctx context.Context, postID uint, count int, at time.Time) error
	SetCommentCount(ctx context.Context, postID uint, count int, at time.Time) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("This asset has already been posted")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) UpdateVisibility(ctx context.Context, id uint, visibility models.Visibility) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]any{"visibility": visibility, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// ListVisible pages through posts the viewer may see: their own, every public
// post, and followers-only posts of accounts they follow. This is the same
// rule VisibilityGate applies to a single post.
func (r *postRepository) ListVisible(ctx context.Context, filter FeedFilter, cursor *time.Time, limit int) (Page[models.Post], error) {
	followees := r.db.Model(&models.Follow{}).
		Select("followee_id").
		Where("follower_id = ?", filter.ViewerID)

	base := r.db.Model(&models.Post{}).
		Where("(posts.user_id = ? OR posts.visibility = ? OR (posts.visibility = ? AND posts.user_id IN (?)))",
			filter.ViewerID, models.VisibilityPublic, models.VisibilityFollowers, followees)
	if filter.AuthorID != nil {
		base = base.Where("posts.user_id = ?", *filter.AuthorID)
	}

	return Paginate[models.Post](ctx, base, "posts.created_at", cursor, limit)
}

func (r *postRepository) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var likedPostIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &likedPostIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return likedPostIDs, nil
}

// Like inserts the (post, user) row. A concurrent or repeated like hits the
// primary key and is dropped by ON CONFLICT DO NOTHING.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	like := models.Like{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) SetLikeCount(ctx context.Context, postID uint, count int, at time.Time) error {
	return r.setCounter(ctx, postID, "like_count", count, at)
}

func (r *postRepository) SetCommentCount(ctx context.Context, postID uint, count int, at time.Time) error {
	return r.setCounter(ctx, postID, "comment_count", count, at)
}

func (r *postRepository) setCounter(ctx context.Context, postID uint, column string, count int, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumns(map[string]any{column: count, "updated_at": at}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
