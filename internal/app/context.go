package app

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ravematch/internal/auth"
	"github.com/oggyb/ravematch/internal/cache"
	"github.com/oggyb/ravematch/internal/config"
	"github.com/oggyb/ravematch/internal/docstore"
	"github.com/oggyb/ravematch/internal/repository"
	"github.com/oggyb/ravematch/internal/swipe"
)

// AppContext holds shared dependencies (DB, store, Redis, Logger, engine).
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	Store      *docstore.Store
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Clock      func() time.Time

	Tracker  *swipe.Tracker
	Engine   *swipe.Engine
	Selector *swipe.Selector
	Verifier *auth.Verifier

	Profiles *repository.ProfileRepository
	Likes    *repository.LikeRepository
	Matches  *repository.MatchRepository
}

type Option func(*AppContext)

// WithClock overrides time.Now for every component.
func WithClock(now func() time.Time) Option {
	return func(a *AppContext) { a.Clock = now }
}

// New wires the store and the engine on top of the DB and Redis.
// rdb may be nil: the store then runs without change feed and the liked-you
// counter is always read from the store.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, opts ...Option) (*AppContext, error) {
	a := &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Clock:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	loc, err := time.LoadLocation(cfg.Quota.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("quota time zone %q: %w", cfg.Quota.TimeZone, err)
	}

	storeOpts := []docstore.Option{docstore.WithClock(a.Clock), docstore.WithLogger(logger)}
	engineOpts := []swipe.Option{swipe.WithClock(a.Clock), swipe.WithLogger(logger)}
	if rdb != nil {
		storeOpts = append(storeOpts, docstore.WithNotifier(rdb))
		engineOpts = append(engineOpts, swipe.WithLikeCounter(rdb))
	}
	a.Store = docstore.New(db, storeOpts...)

	limits := swipe.LimitsFromConfig(cfg.Quota)
	a.Tracker = swipe.NewTracker(limits, loc)
	a.Engine = swipe.NewEngine(a.Store, a.Tracker, engineOpts...)

	a.Profiles = repository.NewProfileRepository(a.Store).WithLogger(logger)
	a.Likes = repository.NewLikeRepository(a.Store)
	a.Matches = repository.NewMatchRepository(a.Store)
	a.Selector = swipe.NewSelector(a.Profiles, limits, logger)
	a.Verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	return a, nil
}
