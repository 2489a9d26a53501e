package models

import "time"

// MaxCommentLength is the maximum comment length in characters after trimming.
const MaxCommentLength = 500

// Comment is a flat, immutable message on a post. It can only be deleted,
// by its author or by the owner of the post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index:idx_comments_post_created,priority:1" json:"postId"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"createdAt"`
}

// CreatedAtKey returns the pagination key of the comment.
func (c Comment) CreatedAtKey() time.Time { return c.CreatedAt }
