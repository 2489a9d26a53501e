// Package seed creates demo data for development databases. It is not used
// by the API server.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"atelier/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FactoryOptions control how generated rows look and whether they are written.
type FactoryOptions struct {
	// DryRun assigns synthetic ids instead of writing rows.
	DryRun bool
	// MaxDays bounds how far back generated createdAt values reach.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts FactoryOptions
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

// pastTime returns a time within the last MaxDays, in UTC.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rng.Intn(f.opts.MaxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute +
		time.Duration(f.rng.Intn(60_000))*time.Millisecond
	return time.Now().UTC().Add(-back)
}

func (f *Factory) create(value interface{}, assignID func(uint)) error {
	if f.opts.DryRun {
		f.nextID++
		assignID(f.nextID)
		return nil
	}
	return f.db.Create(value).Error
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	user := &models.User{
		Username:    strings.ToLower(first+"_"+last) + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		DisplayName: first + " " + last,
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.create(user, func(id uint) { user.ID = id }); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildAsset constructs an asset owned by user without persisting it.
func (f *Factory) BuildAsset(user *models.User, overrides ...func(*models.Asset)) *models.Asset {
	asset := &models.Asset{
		UserID:      user.ID,
		Name:        strings.TrimSuffix(gofakeit.Sentence(3), "."),
		Tags:        datatypes.JSONSlice[string]{gofakeit.Color(), gofakeit.HipsterWord()},
		StoragePath: fmt.Sprintf("assets/%d/%s.png", user.ID, uuid.NewString()),
		CreatedAt:   f.pastTime(),
	}
	for _, override := range overrides {
		override(asset)
	}
	return asset
}

// CreateAsset constructs and persists a sample asset for user.
func (f *Factory) CreateAsset(user *models.User, overrides ...func(*models.Asset)) (*models.Asset, error) {
	asset := f.BuildAsset(user, overrides...)
	if err := f.create(asset, func(id uint) { asset.ID = id }); err != nil {
		return nil, err
	}
	return asset, nil
}

// BuildPost constructs a post of asset by its owner without persisting it.
// Visibility is weighted toward public.
func (f *Factory) BuildPost(asset *models.Asset, overrides ...func(*models.Post)) *models.Post {
	visibility := models.VisibilityPublic
	switch n := f.rng.Intn(10); {
	case n >= 9:
		visibility = models.VisibilityPrivate
	case n >= 7:
		visibility = models.VisibilityFollowers
	}

	caption := gofakeit.Sentence(8)
	hashtags := make(datatypes.JSONSlice[string], 0, 3)
	seen := map[string]bool{}
	for i := 0; i < 1+f.rng.Intn(3); i++ {
		tag := strings.ToLower(gofakeit.Word())
		if !seen[tag] {
			seen[tag] = true
			hashtags = append(hashtags, tag)
		}
	}

	createdAt := asset.CreatedAt.Add(time.Duration(f.rng.Intn(3600)) * time.Second)
	post := &models.Post{
		UserID:     asset.UserID,
		AssetID:    asset.ID,
		Caption:    &caption,
		Hashtags:   hashtags,
		Visibility: visibility,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample post of asset.
func (f *Factory) CreatePost(asset *models.Asset, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(asset, overrides...)
	if err := f.create(post, func(id uint) { post.ID = id }); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment constructs and persists a sample comment on post by user.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		Message:   gofakeit.Sentence(8),
		CreatedAt: post.CreatedAt.Add(time.Duration(1+f.rng.Intn(72*3600)) * time.Second),
	}
	for _, override := range overrides {
		override(comment)
	}

	if err := f.create(comment, func(id uint) { comment.ID = id }); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post. Repeated likes are ignored.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Like{
		PostID:    post.ID,
		UserID:    user.ID,
		CreatedAt: post.CreatedAt.Add(time.Minute),
	}).Error
}

// CreateFollow persists follower following followee. Repeated edges are ignored.
func (f *Factory) CreateFollow(follower, followee *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	if follower.ID == followee.ID {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follow{
		FollowerID: follower.ID,
		FolloweeID: followee.ID,
		CreatedAt:  f.pastTime(),
	}).Error
}

func logDryRun(format string, args ...interface{}) {
	log.Printf("[dry-run] "+format, args...)
}
