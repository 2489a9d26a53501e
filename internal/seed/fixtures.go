package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"atelier/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FixtureSet is a hand-written demo dataset. Users are referenced by username.
//
//	users:
//	  - username: ada
//	    displayName: Ada Lovelace
//	    follows: [grace]
//	posts:
//	  - author: ada
//	    asset: {name: Engine, path: assets/ada/engine.png, tags: [render]}
//	    caption: first light
//	    hashtags: [engine]
//	    visibility: followers
//	    createdAt: 2024-03-01T12:00:00Z
//	    likedBy: [grace]
//	    comments:
//	      - {author: grace, message: lovely}
type FixtureSet struct {
	Users []UserFixture `yaml:"users"`
	Posts []PostFixture `yaml:"posts"`
}

// UserFixture describes one account and the accounts it follows.
type UserFixture struct {
	Username    string   `yaml:"username"`
	DisplayName string   `yaml:"displayName"`
	AvatarURL   string   `yaml:"avatarURL"`
	Follows     []string `yaml:"follows"`
}

// AssetFixture describes the stored image behind a post.
type AssetFixture struct {
	Name string   `yaml:"name"`
	Path string   `yaml:"path"`
	Tags []string `yaml:"tags"`
}

// CommentFixture is one comment on a fixture post.
type CommentFixture struct {
	Author  string `yaml:"author"`
	Message string `yaml:"message"`
}

// PostFixture describes a post, its asset and its engagement.
type PostFixture struct {
	Author     string           `yaml:"author"`
	Asset      AssetFixture     `yaml:"asset"`
	Caption    string           `yaml:"caption"`
	Hashtags   []string         `yaml:"hashtags"`
	Visibility string           `yaml:"visibility"`
	CreatedAt  time.Time        `yaml:"createdAt"`
	LikedBy    []string         `yaml:"likedBy"`
	Comments   []CommentFixture `yaml:"comments"`
}

// LoadFixtures decodes and validates a fixture set.
func LoadFixtures(r io.Reader) (*FixtureSet, error) {
	var set FixtureSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// LoadFixtureFile reads a fixture set from path.
func LoadFixtureFile(path string) (*FixtureSet, error) {
	f, err := os.Open(path) // #nosec G304: path comes from the operator
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadFixtures(f)
}

func (s *FixtureSet) validate() error {
	known := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if u.Username == "" {
			return fmt.Errorf("fixture user without username")
		}
		if known[u.Username] {
			return fmt.Errorf("duplicate fixture user %q", u.Username)
		}
		known[u.Username] = true
	}

	ref := func(where, username string) error {
		if !known[username] {
			return fmt.Errorf("%s references unknown user %q", where, username)
		}
		return nil
	}
	for _, u := range s.Users {
		for _, followee := range u.Follows {
			if err := ref("follows of "+u.Username, followee); err != nil {
				return err
			}
		}
	}
	for i, p := range s.Posts {
		where := fmt.Sprintf("post %d", i)
		if err := ref(where, p.Author); err != nil {
			return err
		}
		if p.Asset.Path == "" {
			return fmt.Errorf("%s has no asset path", where)
		}
		if _, err := models.ParseVisibility(p.Visibility); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		for _, liker := range p.LikedBy {
			if err := ref(where+" likedBy", liker); err != nil {
				return err
			}
		}
		for _, c := range p.Comments {
			if err := ref(where+" comment", c.Author); err != nil {
				return err
			}
			if c.Message == "" || len([]rune(c.Message)) > models.MaxCommentLength {
				return fmt.Errorf("%s has a comment with an invalid message", where)
			}
		}
	}
	return nil
}

// Apply writes the fixture set in one transaction and recomputes the
// counters of the posts it created. Users that already exist are reused.
func (s *FixtureSet) Apply(ctx context.Context, db *gorm.DB) (*Result, error) {
	result := &Result{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byName := make(map[string]*models.User, len(s.Users))
		for _, u := range s.Users {
			user := models.User{Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
			if err := tx.Where(models.User{Username: u.Username}).FirstOrCreate(&user).Error; err != nil {
				return fmt.Errorf("user %s: %w", u.Username, err)
			}
			byName[u.Username] = &user
			result.Users = append(result.Users, &user)
		}

		for _, u := range s.Users {
			for _, followee := range u.Follows {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follow{
					FollowerID: byName[u.Username].ID,
					FolloweeID: byName[followee].ID,
					CreatedAt:  time.Now().UTC(),
				}).Error; err != nil {
					return fmt.Errorf("follow %s -> %s: %w", u.Username, followee, err)
				}
			}
		}

		for i, p := range s.Posts {
			post, err := applyPost(tx, byName, i, p)
			if err != nil {
				return err
			}
			result.Posts = append(result.Posts, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := recountAll(ctx, db, result.Posts); err != nil {
		return nil, err
	}
	return result, nil
}

func applyPost(tx *gorm.DB, byName map[string]*models.User, i int, p PostFixture) (*models.Post, error) {
	author := byName[p.Author]
	createdAt := p.CreatedAt.UTC()
	if p.CreatedAt.IsZero() {
		// Later entries are newer so the feed order follows the file.
		createdAt = time.Now().UTC().Add(time.Duration(i-1000) * time.Minute)
	}

	tags := p.Asset.Tags
	if tags == nil {
		tags = []string{}
	}
	asset := &models.Asset{
		UserID:      author.ID,
		Name:        p.Asset.Name,
		Tags:        datatypes.JSONSlice[string](tags),
		StoragePath: p.Asset.Path,
		CreatedAt:   createdAt,
	}
	if err := tx.Create(asset).Error; err != nil {
		return nil, fmt.Errorf("post %d asset: %w", i, err)
	}

	visibility, _ := models.ParseVisibility(p.Visibility)
	hashtags := p.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	post := &models.Post{
		UserID:     author.ID,
		AssetID:    asset.ID,
		Hashtags:   datatypes.JSONSlice[string](hashtags),
		Visibility: visibility,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if p.Caption != "" {
		caption := p.Caption
		post.Caption = &caption
	}
	if err := tx.Create(post).Error; err != nil {
		return nil, fmt.Errorf("post %d: %w", i, err)
	}

	for _, liker := range p.LikedBy {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Like{
			PostID:    post.ID,
			UserID:    byName[liker].ID,
			CreatedAt: createdAt.Add(time.Minute),
		}).Error; err != nil {
			return nil, fmt.Errorf("post %d like by %s: %w", i, liker, err)
		}
	}
	for j, c := range p.Comments {
		if err := tx.Create(&models.Comment{
			PostID:    post.ID,
			UserID:    byName[c.Author].ID,
			Message:   c.Message,
			CreatedAt: createdAt.Add(time.Duration(j+1) * time.Minute),
		}).Error; err != nil {
			return nil, fmt.Errorf("post %d comment %d: %w", i, j, err)
		}
	}
	return post, nil
}
