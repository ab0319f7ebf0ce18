// Package seed fills the store with demo ravers, likes and matches.
package seed

import (
	"context"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"github.com/oggyb/ravematch/internal/app"
	"github.com/oggyb/ravematch/internal/db"
	"github.com/oggyb/ravematch/internal/docstore"
	"github.com/oggyb/ravematch/internal/model"
)

// Stats reports what a seed run wrote.
type Stats struct {
	Users   int
	Likes   int
	Matches int
}

var (
	cities = []string{"Istanbul", "Izmir", "Ankara"}
	genres = [][]string{
		{"techno", "minimal"},
		{"house", "deep house"},
		{"trance", "psytrance"},
		{"drum and bass"},
		{"techno", "acid"},
	}
	bpms = []string{"120-125", "125-130", "130-140", "140+"}
)

// Reset deletes every document of the swipe collections, messages included.
func Reset(database *gorm.DB) error {
	err := database.
		Where("collection IN ? OR collection LIKE ?",
			[]string{model.CollectionUsers, model.CollectionLikes, model.CollectionMatches},
			model.CollectionMatches+"/%").
		Delete(&db.Document{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// SeedTestData resets the store and populates it with demo data.
//
// Behavior:
//  1. Clears users, likes, matches and messages.
//  2. Creates 20 profiles (10 male, 10 female) in three Turkish cities; every
//     fifth one is premium.
//  3. Each user likes a handful of users of the other gender (about 70%);
//     every third pair is made mutual and turned into a match.
//
// Likes are written through the ledger without quota checks.
func SeedTestData(ctx context.Context, a *app.AppContext, r *rand.Rand) (Stats, error) {
	var (
		stats Stats
		err   error
	)
	if err = Reset(a.DB); err != nil {
		return stats, err
	}

	now := a.Clock()
	users := make([]model.UserProfile, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := "male"
		preferred := "female"
		if i > 10 {
			gender, preferred = "female", "male"
		}
		premium := i%5 == 0
		maxDaily := a.Tracker.Limits().NewProfileDailySwipes
		if premium {
			maxDaily = a.Tracker.Limits().PremiumDailySwipes
		}

		p := model.UserProfile{
			UID:                   fmt.Sprintf("user%d", i),
			Name:                  fmt.Sprintf("Raver %d", i),
			Age:                   21 + r.Intn(15),
			Gender:                gender,
			Country:               "TR",
			City:                  cities[r.Intn(len(cities))],
			Photos:                []string{fmt.Sprintf("https://picsum.photos/seed/user%d/600/800", i)},
			Genres:                genres[r.Intn(len(genres))],
			BPMPreference:         bpms[r.Intn(len(bpms))],
			AfterParty:            r.Intn(2) == 0,
			PreferredGender:       preferred,
			MinAge:                18,
			MaxAge:                45,
			MaxDistanceKm:         50,
			Premium:               premium,
			LastSwipeDate:         a.Tracker.DateKey(now),
			MaxDailySwipes:        maxDaily,
			VerificationStatus:    model.VerificationNone,
			VerificationUpdatedAt: now.UnixMilli(),
		}
		if err := a.Profiles.Create(ctx, p); err != nil {
			return stats, fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, p)
	}
	stats.Users = len(users)

	counter := 0
	for _, actor := range users {
		for j := 0; j < 6; j++ {
			target := users[r.Intn(len(users))]
			if target.UID == actor.UID || target.Gender == actor.Gender {
				continue
			}

			mutual := counter%3 == 0
			counter++
			if !mutual && r.Intn(100) >= 70 {
				continue
			}

			if err := like(ctx, a, actor, target); err != nil {
				return stats, err
			}
			if mutual {
				if err := like(ctx, a, target, actor); err != nil {
					return stats, err
				}
			}
		}
	}

	if stats.Likes, err = count(ctx, a, model.CollectionLikes); err != nil {
		return stats, err
	}
	if stats.Matches, err = count(ctx, a, model.CollectionMatches); err != nil {
		return stats, err
	}

	a.Logger.Info("seed completed", "users", stats.Users, "likes", stats.Likes, "matches", stats.Matches)
	return stats, nil
}

func like(ctx context.Context, a *app.AppContext, actor, target model.UserProfile) error {
	to := target.Snapshot()
	rec, err := a.Engine.RecordLike(ctx, actor.UID, target.UID, model.LikeTypeLike, &to)
	if err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	if _, _, err := a.Engine.AfterLike(ctx, *rec); err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}
	return nil
}

func count(ctx context.Context, a *app.AppContext, collection string) (int, error) {
	n, err := a.Store.Count(ctx, docstore.Query{Collection: collection})
	return int(n), err
}
