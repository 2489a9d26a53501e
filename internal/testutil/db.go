// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"atelier/internal/models"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an isolated in-memory database with the full schema.
// The pool is pinned to a single connection so every query sees the same
// in-memory database, including queries issued from parallel goroutines.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Asset{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Follow{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// Fixtures writes rows straight to the database for test setup.
type Fixtures struct {
	t    *testing.T
	db   *gorm.DB
	base time.Time
	seq  int
}

// NewFixtures returns a fixture writer. Rows it creates get strictly
// increasing CreatedAt values one second apart.
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{
		t:    t,
		db:   db,
		base: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Tick returns the next fixture timestamp.
func (f *Fixtures) Tick() time.Time {
	f.seq++
	return f.base.Add(time.Duration(f.seq) * time.Second)
}

// User creates a user with the given username.
func (f *Fixtures) User(username string) *models.User {
	f.t.Helper()
	user := &models.User{
		Username:    username,
		DisplayName: "",
		AvatarURL:   fmt.Sprintf("https://avatars.example.com/%s.png", username),
	}
	f.must(f.db.Create(user).Error)
	return user
}

// Asset creates an asset owned by ownerID.
func (f *Fixtures) Asset(ownerID uint) *models.Asset {
	f.t.Helper()
	f.seq++
	asset := &models.Asset{
		UserID:      ownerID,
		Name:        fmt.Sprintf("render-%d", f.seq),
		Tags:        datatypes.JSONSlice[string]{"fixture"},
		StoragePath: fmt.Sprintf("assets/%d/render-%d.png", ownerID, f.seq),
		CreatedAt:   f.base,
	}
	f.must(f.db.Create(asset).Error)
	return asset
}

// Post creates a post for a fresh asset owned by ownerID.
func (f *Fixtures) Post(ownerID uint, visibility models.Visibility) *models.Post {
	f.t.Helper()
	asset := f.Asset(ownerID)
	at := f.Tick()
	post := &models.Post{
		UserID:     ownerID,
		AssetID:    asset.ID,
		Hashtags:   datatypes.JSONSlice[string]{},
		Visibility: visibility,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	f.must(f.db.Create(post).Error)
	return post
}

// Follow records followerID following followeeID.
func (f *Fixtures) Follow(followerID, followeeID uint) {
	f.t.Helper()
	f.must(f.db.Create(&models.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  f.Tick(),
	}).Error)
}

// Comment creates a comment on postID by userID.
func (f *Fixtures) Comment(postID, userID uint, message string) *models.Comment {
	f.t.Helper()
	comment := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Message:   message,
		CreatedAt: f.Tick(),
	}
	f.must(f.db.Create(comment).Error)
	return comment
}

func (f *Fixtures) must(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("fixture: %v", err)
	}
}
