// Command seed populates a development database with demo data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"atelier/internal/auth"
	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fixtures := flag.String("fixtures", "", "Load a YAML fixture file instead of generating data")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	tokens := flag.Int("tokens", 3, "Print bearer tokens for this many seeded users")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of printed bearer tokens")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	var result *seed.Result
	if *fixtures != "" {
		set, err := seed.LoadFixtureFile(*fixtures)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		if *shouldClean {
			if err := seed.ClearAll(ctx, db); err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
		}
		result, err = set.Apply(ctx, db)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		result, err = seed.Seed(ctx, db, seed.Options{
			NumUsers:    *numUsers,
			NumPosts:    *numPosts,
			ShouldClean: *shouldClean,
			Factory:     seed.FactoryOptions{DryRun: *dryRun},
		})
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Seeded %d users and %d posts", len(result.Users), len(result.Posts))

	issuer := auth.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, nil)
	for i, u := range result.Users {
		if i >= *tokens {
			break
		}
		token, err := issuer.Issue(u.ID, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Printf("%s (id %d): Bearer %s\n", u.Username, u.ID, token)
	}
}
