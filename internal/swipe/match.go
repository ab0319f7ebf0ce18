package swipe

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/ravematch/internal/docstore"
	apperr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/model"
	"github.com/oggyb/ravematch/internal/repository"
)

// Detector turns two reciprocal likes into one match document.
type Detector struct {
	store    *docstore.Store
	likes    *repository.LikeRepository
	profiles *repository.ProfileRepository
	matches  *repository.MatchRepository
	now      func() time.Time
	log      *slog.Logger
}

func NewDetector(store *docstore.Store, log *slog.Logger, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{
		store:    store,
		likes:    repository.NewLikeRepository(store),
		profiles: repository.NewProfileRepository(store),
		matches:  repository.NewMatchRepository(store),
		now:      now,
		log:      log,
	}
}

// AfterLike checks for the reciprocal of a committed like and, when it
// exists, materialises the match at the sorted key. A later like on a
// matched pair only refreshes the participant names.
//
// A failed reciprocity probe is reported as no match; only a failed match
// write is returned as an error.
func (d *Detector) AfterLike(ctx context.Context, like model.LikeRecord) (matched bool, matchID string, err error) {
	reciprocal, err := d.likes.HasLiked(ctx, like.To, like.From)
	if err != nil {
		d.log.Warn("reciprocity probe failed, treating as no match",
			"actor", like.From, "target", like.To, "err", err)
		return false, "", nil
	}
	if !reciprocal {
		return false, "", nil
	}

	var snapshotName string
	if like.ToProfile != nil {
		snapshotName = like.ToProfile.Name
	}
	names := map[string]string{
		like.From: nameOr(snapshotNameOf(like.FromProfile), like.From),
		like.To:   d.liveName(ctx, like.To, snapshotName),
	}

	matchID, err = d.matches.Upsert(ctx, model.MatchRecord{
		UserA:           like.From,
		UserB:           like.To,
		UserNames:       names,
		LastMessageAt:   d.now().UnixMilli(),
		LastMessageFrom: like.From,
	})
	if err != nil {
		return false, "", err
	}

	d.log.Info("match created", "match_id", matchID, "actor", like.From, "target", like.To)
	return true, matchID, nil
}

// EnsureMatchOnFirstMessage is the fallback used when a conversation is
// opened. It never creates a match the likes do not support: both likes must
// exist, otherwise NOT_MATCHED. The match and the optional first message are
// committed in one transaction; without a message an existing match is left
// as it is.
func (d *Detector) EnsureMatchOnFirstMessage(ctx context.Context, actorID, otherID, text string) (string, error) {
	for _, pair := range [][2]string{{actorID, otherID}, {otherID, actorID}} {
		ok, err := d.likes.HasLiked(ctx, pair[0], pair[1])
		if err != nil {
			return "", err
		}
		if !ok {
			return "", apperr.New(apperr.CodeNotMatched, model.MatchID(actorID, otherID))
		}
	}

	match := model.MatchRecord{
		UserA: actorID,
		UserB: otherID,
		UserNames: map[string]string{
			actorID: d.liveName(ctx, actorID, ""),
			otherID: d.liveName(ctx, otherID, ""),
		},
		LastMessageAt:   d.now().UnixMilli(),
		LastMessageFrom: actorID,
	}
	text = strings.TrimSpace(text)

	var matchID string
	err := d.store.RunTransaction(ctx, func(tx *docstore.Tx) error {
		matches := d.matches.WithTx(tx)
		var err error
		if text == "" {
			matchID, _, err = matches.Ensure(ctx, match)
			return err
		}
		if matchID, _, err = matches.Touch(ctx, match); err != nil {
			return err
		}
		return tx.Set(ctx, model.MessagesCollection(matchID), uuid.NewString(), docstore.Fields{
			"from":      actorID,
			"text":      text,
			"users":     []string{actorID, otherID},
			"createdAt": docstore.ServerTimestamp,
		})
	})
	if err != nil {
		return "", err
	}
	return matchID, nil
}

// liveName reads the current display name; it falls back to the snapshot
// name and then to the raw id.
func (d *Detector) liveName(ctx context.Context, uid, snapshotName string) string {
	p, err := d.profiles.Get(ctx, uid)
	if err != nil {
		if !apperr.IsCode(err, apperr.CodeUserNotFound) {
			d.log.Warn("name lookup failed", "uid", uid, "err", err)
		}
		return nameOr(snapshotName, uid)
	}
	return nameOr(p.Name, nameOr(snapshotName, uid))
}

func snapshotNameOf(s *model.ProfileSnapshot) string {
	if s == nil {
		return ""
	}
	return s.Name
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
