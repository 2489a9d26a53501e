package models

import "time"

// Like represents a user's like on a post.
// The (PostID, UserID) pair is the primary key, so a user likes a post at most once.
type Like struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"postId"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
