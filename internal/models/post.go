package models

import (
	"time"

	"gorm.io/datatypes"
)

// Visibility is the access tier of a post.
type Visibility string

const (
	// VisibilityPublic posts are visible to every authenticated viewer.
	VisibilityPublic Visibility = "public"
	// VisibilityFollowers posts are visible to the owner and to accounts following the owner.
	VisibilityFollowers Visibility = "followers"
	// VisibilityPrivate posts are visible to the owner only.
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility validates a raw visibility value. An empty value defaults to public.
func ParseVisibility(raw string) (Visibility, error) {
	switch Visibility(raw) {
	case "":
		return VisibilityPublic, nil
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return Visibility(raw), nil
	default:
		return "", NewValidationError("Invalid visibility (expected public, followers or private)")
	}
}

// Post is an asset shared to the feed by its owner.
//
// LikeCount and CommentCount are cached display values. The likes and comments
// tables are the source of truth; the counters are rewritten from them after
// every successful like, unlike, comment add and comment delete.
type Post struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	UserID       uint                        `gorm:"not null;index" json:"ownerId"`
	AssetID      uint                        `gorm:"not null;uniqueIndex" json:"assetId"`
	Caption      *string                     `gorm:"type:text" json:"caption,omitempty"`
	Hashtags     datatypes.JSONSlice[string] `json:"hashtags"`
	Visibility   Visibility                  `gorm:"type:varchar(16);not null;default:'public';index" json:"visibility"`
	LikeCount    int                         `gorm:"not null;default:0" json:"likeCount"`
	CommentCount int                         `gorm:"not null;default:0" json:"commentCount"`
	CreatedAt    time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

// CreatedAtKey returns the pagination key of the post.
func (p Post) CreatedAtKey() time.Time { return p.CreatedAt }
