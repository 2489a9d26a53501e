// Package models contains data structures for the application's domain models.
package models

import "time"

// User is the profile row of an account. Credentials live with the external
// identity provider; this table only carries what the feed needs to render authors.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	DisplayName string    `gorm:"size:120" json:"displayName"`
	AvatarURL   string    `json:"avatarURL"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
