package seed

import (
	"context"
	"fmt"
	"log"

	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// FollowRatio is the chance that one user follows another.
	FollowRatio float64
	Factory     FactoryOptions
}

// Result lists the rows a seeding run created.
type Result struct {
	Users []*models.User
	Posts []*models.Post
}

// clearOrder deletes children before parents.
var clearOrder = []string{"likes", "comments", "follows", "posts", "assets", "users"}

// Seed populates the database with demo users, a follow mesh, posts with
// assets, likes and comments. Cached post counters are recomputed at the end.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("seed: NumUsers must be positive")
	}
	if opts.FollowRatio <= 0 {
		opts.FollowRatio = 0.3
	}
	log.Printf("Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)
	if opts.Factory.DryRun {
		logDryRun("no rows will be written")
	}

	if opts.ShouldClean && !opts.Factory.DryRun {
		if err := ClearAll(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(db.WithContext(ctx), opts.Factory)
	result := &Result{}

	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		result.Users = append(result.Users, user)
	}
	log.Printf("%d users created", len(result.Users))

	for _, follower := range result.Users {
		for _, followee := range result.Users {
			if follower.ID == followee.ID || f.rng.Float64() >= opts.FollowRatio {
				continue
			}
			if err := f.CreateFollow(follower, followee); err != nil {
				return nil, fmt.Errorf("failed to create follow: %w", err)
			}
		}
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := result.Users[f.rng.Intn(len(result.Users))]
		asset, err := f.CreateAsset(author)
		if err != nil {
			return nil, fmt.Errorf("failed to create asset: %w", err)
		}
		post, err := f.CreatePost(asset)
		if err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		result.Posts = append(result.Posts, post)

		if err := engage(f, post, result.Users); err != nil {
			return nil, err
		}
	}
	log.Printf("%d posts created", len(result.Posts))

	if !opts.Factory.DryRun {
		if err := recountAll(ctx, db, result.Posts); err != nil {
			return nil, err
		}
	}

	log.Println("Database seeding completed")
	return result, nil
}

// engage adds likes and comments on post from a random subset of users.
// Engagement ignores visibility; the seeded data is for demos only.
func engage(f *Factory, post *models.Post, users []*models.User) error {
	for _, u := range users {
		if f.rng.Intn(4) == 0 {
			if err := f.CreateLike(u, post); err != nil {
				return fmt.Errorf("failed to create like: %w", err)
			}
		}
		if f.rng.Intn(8) == 0 {
			if _, err := f.CreateComment(u, post); err != nil {
				return fmt.Errorf("failed to create comment: %w", err)
			}
		}
	}
	return nil
}

// recountAll refreshes likeCount and commentCount of every post from the fact rows.
func recountAll(ctx context.Context, db *gorm.DB, posts []*models.Post) error {
	counters := service.NewCounterRecalculator(
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
	)
	for _, p := range posts {
		for _, kind := range []service.CounterKind{service.CounterLikes, service.CounterComments} {
			if _, err := counters.Recount(ctx, p.ID, kind); err != nil {
				return fmt.Errorf("failed to recount %s for post %d: %w", kind, p.ID, err)
			}
		}
	}
	return nil
}

// ClearAll removes every row the seeder can create.
func ClearAll(ctx context.Context, db *gorm.DB) error {
	log.Println("Clearing existing data...")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range clearOrder {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
