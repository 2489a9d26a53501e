package models

import (
	"time"

	"gorm.io/datatypes"
)

// Asset is a generated image owned by the generation pipeline. The feed only
// reads it to resolve the image behind a post.
type Asset struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	UserID      uint                        `gorm:"not null;index" json:"ownerId"`
	Name        string                      `gorm:"size:255" json:"name"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	StoragePath string                      `gorm:"not null" json:"-"`
	CreatedAt   time.Time                   `json:"createdAt"`
}
