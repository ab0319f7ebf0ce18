// Package session keeps the signed-in user's profile close at hand: it
// bootstraps the profile on first sign-in, serves reads from a local copy
// and writes through to the store with merge semantics.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oggyb/ravematch/internal/docstore"
	apperr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/model"
	"github.com/oggyb/ravematch/internal/repository"
	"github.com/oggyb/ravematch/internal/swipe"
)

// Context is the profile context of one user.
type Context struct {
	uid      string
	store    *docstore.Store
	profiles *repository.ProfileRepository
	tracker  *swipe.Tracker
	now      func() time.Time
	log      *slog.Logger

	mu      sync.RWMutex
	profile model.UserProfile

	watch   *docstore.Watch
	updates chan model.UserProfile
	done    chan struct{}
}

type Option func(*Context)

func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// Load reads (or bootstraps) the profile of uid without subscribing to
// changes. Close is a no-op on the result.
func Load(ctx context.Context, store *docstore.Store, tracker *swipe.Tracker, uid string, opts ...Option) (*Context, error) {
	if uid == "" {
		return nil, apperr.InvalidArgument("uid is required")
	}
	c := &Context{
		uid:      uid,
		store:    store,
		profiles: repository.NewProfileRepository(store),
		tracker:  tracker,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	p, err := c.bootstrap(ctx)
	if err != nil {
		return nil, err
	}
	c.profile = *p
	return c, nil
}

// Open is Load plus a subscription on users/{uid}: the local copy follows
// writes made by any other flow until Close is called or ctx ends. Without
// a change feed on the store it behaves like Load.
func Open(ctx context.Context, store *docstore.Store, tracker *swipe.Tracker, uid string, opts ...Option) (*Context, error) {
	c, err := Load(ctx, store, tracker, uid, opts...)
	if err != nil {
		return nil, err
	}

	w, err := store.Watch(ctx, model.CollectionUsers, uid)
	if errors.Is(err, docstore.ErrNoNotifier) {
		c.log.Debug("session without live refresh", "uid", uid)
		return c, nil
	}
	if err != nil {
		return nil, err
	}

	c.watch = w
	c.updates = make(chan model.UserProfile, 1)
	c.done = make(chan struct{})
	go c.follow()
	return c, nil
}

// bootstrap returns the stored profile, creating the default one on first
// sign-in and normalising the premium ceiling of existing ones.
func (c *Context) bootstrap(ctx context.Context) (*model.UserProfile, error) {
	var out *model.UserProfile
	err := c.store.RunTransaction(ctx, func(tx *docstore.Tx) error {
		profiles := c.profiles.WithTx(tx)
		p, err := profiles.Get(ctx, c.uid)
		switch {
		case apperr.IsCode(err, apperr.CodeUserNotFound):
			def := DefaultProfile(c.uid, c.tracker, c.now())
			if err := profiles.Create(ctx, def); err != nil {
				return err
			}
			c.log.Info("profile created", "uid", c.uid)
			out = &def
			return nil
		case err != nil:
			return err
		}

		ceiling := c.tracker.Limits().PremiumDailySwipes
		if p.Premium && p.MaxDailySwipes != ceiling {
			if err := profiles.Update(ctx, c.uid, docstore.Fields{"maxDailySwipes": ceiling}); err != nil {
				return err
			}
			p.MaxDailySwipes = ceiling
		}
		out = p
		return nil
	})
	return out, err
}

// DefaultProfile is the profile written on first sign-in.
func DefaultProfile(uid string, tracker *swipe.Tracker, now time.Time) model.UserProfile {
	return model.UserProfile{
		UID:                    uid,
		Name:                   "Mobile Raver",
		Age:                    25,
		Gender:                 "N/A",
		Country:                "TR",
		City:                   "Istanbul",
		Photos:                 []string{},
		Genres:                 []string{},
		BPMPreference:          "130-140",
		DailySwipeCount:        0,
		LastSwipeDate:          tracker.DateKey(now),
		MaxDailySwipes:         tracker.Limits().NewProfileDailySwipes,
		WeeklySuperlikeWeekKey: swipe.WeekKey(now),
		VerificationStatus:     model.VerificationNone,
		VerificationUpdatedAt:  now.UnixMilli(),
	}
}

func (c *Context) follow() {
	defer close(c.done)
	defer close(c.updates)

	for snap := range c.watch.Events() {
		if snap.Err != nil {
			c.log.Warn("profile refresh failed", "uid", c.uid, "err", snap.Err)
			continue
		}
		d := snap.First()
		if d == nil {
			continue
		}
		var p model.UserProfile
		if err := d.DataTo(&p); err != nil {
			c.log.Warn("profile refresh decode failed", "uid", c.uid, "err", err)
			continue
		}
		if p.UID == "" {
			p.UID = c.uid
		}

		c.mu.Lock()
		c.profile = p
		c.mu.Unlock()

		// keep only the latest state for slow readers
		select {
		case <-c.updates:
		default:
		}
		c.updates <- p
	}
}

// UID is the owner of the context.
func (c *Context) UID() string { return c.uid }

// Profile returns the local copy.
func (c *Context) Profile() model.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// Updates delivers the profile after each observed change. It is nil for
// contexts without live refresh and is closed by Close.
func (c *Context) Updates() <-chan model.UserProfile { return c.updates }

// Update merge-writes fields and refreshes the local copy from the store.
func (c *Context) Update(ctx context.Context, fields docstore.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if _, ok := fields["uid"]; ok {
		return apperr.InvalidArgument("uid cannot be changed")
	}
	if err := checkProfileFields(c.uid, fields); err != nil {
		return err
	}
	if err := c.profiles.Update(ctx, c.uid, fields); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// checkProfileFields rejects values that would not decode back into a
// profile, before anything is written.
func checkProfileFields(uid string, fields docstore.Fields) error {
	var p model.UserProfile
	d := &docstore.Document{Collection: model.CollectionUsers, ID: uid, Fields: fields}
	if err := d.DataTo(&p); err != nil {
		return apperr.InvalidArgument(fmt.Sprintf("profile fields: %v", err))
	}
	return nil
}

// Refresh re-reads the profile.
func (c *Context) Refresh(ctx context.Context) error {
	p, err := c.profiles.Get(ctx, c.uid)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.profile = *p
	c.mu.Unlock()
	return nil
}

// SetPremium toggles premium and moves the daily ceiling with it.
func (c *Context) SetPremium(ctx context.Context, premium bool) error {
	limits := c.tracker.Limits()
	ceiling := limits.NewProfileDailySwipes
	if premium {
		ceiling = limits.PremiumDailySwipes
	}
	return c.Update(ctx, docstore.Fields{
		"premium":        premium,
		"maxDailySwipes": ceiling,
	})
}

// RequestVerification marks the profile as waiting for review.
func (c *Context) RequestVerification(ctx context.Context) error {
	return c.Update(ctx, docstore.Fields{
		"verificationStatus":    string(model.VerificationPending),
		"verificationUpdatedAt": c.now().UnixMilli(),
	})
}

// Close ends the subscription, if any, and waits for it to drain.
func (c *Context) Close() {
	if c.watch == nil {
		return
	}
	c.watch.Close()
	<-c.done
}
