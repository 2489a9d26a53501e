package models

import "time"

// AuthorSummary is the per-request view of an account relative to the viewer.
// It is recomputed from the follows table on every request and never cached.
type AuthorSummary struct {
	ID                 uint   `json:"id"`
	Username           string `json:"username"`
	DisplayName        string `json:"displayName"`
	AvatarURL          string `json:"avatarURL"`
	IsFollowedByViewer bool   `json:"isFollowedByViewer"`
	IsFollowingViewer  bool   `json:"isFollowingViewer"`
	FollowerCount      int64  `json:"followerCount"`
	FollowingCount     int64  `json:"followingCount"`
}

// AssetSummary is the image part of a post summary with a time-limited URL.
type AssetSummary struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	ImageURL string   `json:"imageURL"`
}

// PostSummary is the response-ready read model of a post for one viewer.
type PostSummary struct {
	ID           uint          `json:"id"`
	Caption      *string       `json:"caption"`
	Hashtags     []string      `json:"hashtags"`
	Visibility   Visibility    `json:"visibility"`
	LikeCount    int           `json:"likeCount"`
	CommentCount int           `json:"commentCount"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Author       AuthorSummary `json:"author"`
	Asset        AssetSummary  `json:"asset"`
	IsLiked      bool          `json:"isLiked"`
	IsSaved      bool          `json:"isSaved"`
	CanEdit      bool          `json:"canEdit"`
}

// CommentSummary is the response-ready read model of a comment for one viewer.
type CommentSummary struct {
	ID        uint          `json:"id"`
	PostID    uint          `json:"postId"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
	Author    AuthorSummary `json:"author"`
	CanDelete bool          `json:"canDelete"`
}
