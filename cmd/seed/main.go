package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/oggyb/ravematch/internal/app"
	"github.com/oggyb/ravematch/internal/config"
	"github.com/oggyb/ravematch/internal/db"
	"github.com/oggyb/ravematch/internal/logger"
	"github.com/oggyb/ravematch/internal/seed"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	// no Redis needed: seeding writes only to the store
	appCtx, err := app.New(cfg, database, nil, logger.L())
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	stats, err := seed.SeedTestData(context.Background(), appCtx, r)
	if err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Printf("Seeding completed: %d users, %d likes, %d matches.", stats.Users, stats.Likes, stats.Matches)
}
