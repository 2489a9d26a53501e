package repository

import (
	"context"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow-edge operations.
// The *Among and Count* methods answer for a whole batch of users in one query.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID uint) error
	Unfollow(ctx context.Context, followerID, followeeID uint) error
	Exists(ctx context.Context, followerID, followeeID uint) (bool, error)
	FolloweesAmong(ctx context.Context, followerID uint, candidateIDs []uint) ([]uint, error)
	FollowersAmong(ctx context.Context, followeeID uint, candidateIDs []uint) ([]uint, error)
	CountFollowers(ctx context.Context, userIDs []uint) (map[uint]int64, error)
	CountFollowing(ctx context.Context, userIDs []uint) (map[uint]int64, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// groupCount is one row of a GROUP BY user aggregate.
type groupCount struct {
	UserID uint
	Total  int64
}

func (r *followRepository) Follow(ctx context.Context, followerID, followeeID uint) error {
	edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// FolloweesAmong returns the candidates that followerID follows.
func (r *followRepository) FolloweesAmong(ctx context.Context, followerID uint, candidateIDs []uint) ([]uint, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id IN ?", followerID, candidateIDs).
		Pluck("followee_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// FollowersAmong returns the candidates that follow followeeID.
func (r *followRepository) FollowersAmong(ctx context.Context, followeeID uint, candidateIDs []uint) ([]uint, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("followee_id = ? AND follower_id IN ?", followeeID, candidateIDs).
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// CountFollowers returns follower counts keyed by user in a single GROUP BY query.
// Users without followers are absent from the map.
func (r *followRepository) CountFollowers(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	return r.groupedCount(ctx, "followee_id", userIDs)
}

// CountFollowing returns following counts keyed by user in a single GROUP BY query.
func (r *followRepository) CountFollowing(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	return r.groupedCount(ctx, "follower_id", userIDs)
}

func (r *followRepository) groupedCount(ctx context.Context, column string, userIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []groupCount
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Select(column+" AS user_id, COUNT(*) AS total").
		Where(column+" IN ?", userIDs).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}
