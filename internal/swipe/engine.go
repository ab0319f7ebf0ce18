// Package swipe holds the like/match decision engine: quota gating, the like
// ledger, match detection and candidate selection.
package swipe

import (
	"context"
	"log/slog"
	"time"

	"github.com/oggyb/ravematch/internal/docstore"
	apperr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/model"
	"github.com/oggyb/ravematch/internal/repository"
)

// LikeCounter keeps the cached liked-you counters fresh.
type LikeCounter interface {
	IncrLikeCount(ctx context.Context, uid string) error
}

// Engine runs the like flow: quota check, ledger write, match detection.
type Engine struct {
	store    *docstore.Store
	profiles *repository.ProfileRepository
	likes    *repository.LikeRepository
	tracker  *Tracker
	detector *Detector
	counter  LikeCounter
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithLikeCounter bumps the target's cached counter on new likes.
func WithLikeCounter(c LikeCounter) Option {
	return func(e *Engine) { e.counter = c }
}

func NewEngine(store *docstore.Store, tracker *Tracker, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		profiles: repository.NewProfileRepository(store),
		likes:    repository.NewLikeRepository(store),
		tracker:  tracker,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.detector = NewDetector(store, e.log, e.now)
	return e
}

func (e *Engine) Tracker() *Tracker   { return e.tracker }
func (e *Engine) Detector() *Detector { return e.detector }

// LikeRequest is one like or superlike action.
type LikeRequest struct {
	ActorID  string
	TargetID string
	Type     model.LikeType
	// ToProfile is the caller's view of the target; may be nil.
	ToProfile *model.ProfileSnapshot
}

// LikeResult tells the caller whether to open the conversation view.
type LikeResult struct {
	Matched bool
	MatchID string
	Like    model.LikeRecord
	// Profile is the actor's profile with the updated counters.
	Profile model.UserProfile
}

func (r LikeRequest) validate() error {
	switch {
	case r.ActorID == "":
		return apperr.InvalidArgument("actor id is required")
	case r.TargetID == "":
		return apperr.InvalidArgument("target id is required")
	case r.ActorID == r.TargetID:
		return apperr.InvalidArgument("cannot like yourself")
	case !r.Type.Valid():
		return apperr.InvalidArgument("type must be like or superlike")
	}
	return nil
}

// SendLike records a like and reports whether it completed a match.
//
// Behavior:
//   - The actor profile read, the quota check, the counter write and the
//     like write commit in one transaction; two devices of the same user
//     cannot both pass the last free slot.
//   - The match is detected after commit; see Detector.AfterLike.
//   - Business rejections are returned unchanged (SWIPE_LIMIT_REACHED, ...).
//
// Example:
//
//	res, err := engine.SendLike(ctx, swipe.LikeRequest{ActorID: "a", TargetID: "b", Type: model.LikeTypeLike})
func (e *Engine) SendLike(ctx context.Context, req LikeRequest) (*LikeResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var (
		res     LikeResult
		created bool
	)
	err := e.store.RunTransaction(ctx, func(tx *docstore.Tx) error {
		profiles := e.profiles.WithTx(tx)
		actor, err := profiles.Get(ctx, req.ActorID)
		if err != nil {
			return err
		}

		now := e.now()
		if err := e.tracker.CanSwipe(*actor, req.Type, now); err != nil {
			return err
		}
		updated := e.tracker.RecordSwipe(*actor, req.Type, now)
		if err := profiles.Update(ctx, req.ActorID, QuotaFields(updated, req.Type)); err != nil {
			return err
		}

		res.Profile = updated
		res.Like, created, err = e.putLike(ctx, e.likes.WithTx(tx), *actor, req)
		return err
	})
	if err != nil {
		if code := apperr.GetCode(err); code.IsRejection() {
			e.log.Debug("like rejected", "actor", req.ActorID, "target", req.TargetID, "code", code)
		}
		return nil, err
	}

	if created && e.counter != nil {
		if err := e.counter.IncrLikeCount(ctx, req.TargetID); err != nil {
			e.log.Warn("like counter update failed", "target", req.TargetID, "err", err)
		}
	}

	res.Matched, res.MatchID, err = e.detector.AfterLike(ctx, res.Like)
	if err != nil {
		return nil, err
	}

	e.log.Debug("like recorded",
		"actor", req.ActorID, "target", req.TargetID, "type", req.Type,
		"matched", res.Matched, "daily_count", res.Profile.DailySwipeCount)
	return &res, nil
}

// RecordLike writes the like ledger entry without quota checks and without
// match detection. Calling it again for the same pair merges into the same
// document.
func (e *Engine) RecordLike(
	ctx context.Context,
	actorID, targetID string,
	typ model.LikeType,
	toProfile *model.ProfileSnapshot,
) (*model.LikeRecord, error) {
	req := LikeRequest{ActorID: actorID, TargetID: targetID, Type: typ, ToProfile: toProfile}
	if err := req.validate(); err != nil {
		return nil, err
	}

	var like model.LikeRecord
	err := e.store.RunTransaction(ctx, func(tx *docstore.Tx) error {
		actor, err := e.profiles.WithTx(tx).Get(ctx, actorID)
		if err != nil {
			return err
		}
		like, _, err = e.putLike(ctx, e.likes.WithTx(tx), *actor, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// AfterLike runs match detection for a like already recorded.
func (e *Engine) AfterLike(ctx context.Context, like model.LikeRecord) (bool, string, error) {
	return e.detector.AfterLike(ctx, like)
}

func (e *Engine) putLike(
	ctx context.Context,
	likes *repository.LikeRepository,
	actor model.UserProfile,
	req LikeRequest,
) (model.LikeRecord, bool, error) {
	from := actor.Snapshot()
	like := model.LikeRecord{
		ID:          model.LikeID(req.ActorID, req.TargetID),
		From:        req.ActorID,
		To:          req.TargetID,
		Type:        req.Type,
		FromProfile: &from,
		ToProfile:   req.ToProfile,
		CreatedAt:   e.now().UnixMilli(),
	}
	created, err := likes.Put(ctx, like)
	return like, created, err
}

// Boost puts a premium profile at the front of other users' candidate
// lists until the returned epoch-millisecond time.
func (e *Engine) Boost(ctx context.Context, uid string) (int64, error) {
	var until int64
	err := e.store.RunTransaction(ctx, func(tx *docstore.Tx) error {
		profiles := e.profiles.WithTx(tx)
		p, err := profiles.Get(ctx, uid)
		if err != nil {
			return err
		}
		if !p.Premium {
			return apperr.New(apperr.CodeBoostPremiumOnly, "boost requires premium")
		}
		until = e.now().Add(e.tracker.Limits().BoostDuration).UnixMilli()
		return profiles.Update(ctx, uid, docstore.Fields{"boostUntil": until})
	})
	if err != nil {
		return 0, err
	}
	return until, nil
}
