package swipe

import (
	"fmt"
	"time"

	"github.com/oggyb/ravematch/internal/config"
	"github.com/oggyb/ravematch/internal/docstore"
	apperr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/model"
)

// Limits are the business quotas of the swipe flow.
type Limits struct {
	// DefaultDailySwipes applies when a profile has no maxDailySwipes.
	DefaultDailySwipes int
	// NewProfileDailySwipes is written on profiles created at first login
	// and restored when premium is turned off.
	NewProfileDailySwipes int
	// PremiumDailySwipes is the ceiling written on premium profiles.
	PremiumDailySwipes   int
	WeeklySuperlikes     int
	CandidateLimit       int
	CandidateAgeDistance int
	BoostDuration        time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		DefaultDailySwipes:    15,
		NewProfileDailySwipes: 20,
		PremiumDailySwipes:    9999,
		WeeklySuperlikes:      5,
		CandidateLimit:        50,
		CandidateAgeDistance:  3,
		BoostDuration:         5 * time.Minute,
	}
}

// LimitsFromConfig overlays the configured values on the defaults.
func LimitsFromConfig(c config.QuotaConfig) Limits {
	l := DefaultLimits()
	if c.DefaultDailySwipes > 0 {
		l.DefaultDailySwipes = c.DefaultDailySwipes
	}
	if c.NewProfileSwipes > 0 {
		l.NewProfileDailySwipes = c.NewProfileSwipes
	}
	if c.PremiumDailySwipes > 0 {
		l.PremiumDailySwipes = c.PremiumDailySwipes
	}
	if c.WeeklySuperlikes > 0 {
		l.WeeklySuperlikes = c.WeeklySuperlikes
	}
	if c.CandidateLimit > 0 {
		l.CandidateLimit = c.CandidateLimit
	}
	if c.CandidateAgeDistance > 0 {
		l.CandidateAgeDistance = c.CandidateAgeDistance
	}
	if c.BoostDuration > 0 {
		l.BoostDuration = c.BoostDuration
	}
	return l
}

// Tracker decides whether a swipe is allowed and computes the counters
// after it.
type Tracker struct {
	limits Limits
	loc    *time.Location
}

// NewTracker creates a tracker. Daily counters roll over at midnight in loc
// (UTC when nil).
func NewTracker(limits Limits, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{limits: limits, loc: loc}
}

func (t *Tracker) Limits() Limits { return t.limits }

// DateKey is the YYYY-MM-DD day of now in the tracker's time zone.
func (t *Tracker) DateKey(now time.Time) string {
	return now.In(t.loc).Format(time.DateOnly)
}

// WeekKey is the ISO-8601 year-week of now in UTC, e.g. "2026-W42".
func WeekKey(now time.Time) string {
	year, week := now.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// EffectiveDailyCount is the stored counter if it belongs to today, else 0.
func (t *Tracker) EffectiveDailyCount(p model.UserProfile, now time.Time) int {
	if p.LastSwipeDate != t.DateKey(now) {
		return 0
	}
	return p.DailySwipeCount
}

// EffectiveWeeklySuperlikes is the stored counter if it belongs to the
// current week, else 0.
func EffectiveWeeklySuperlikes(p model.UserProfile, now time.Time) int {
	if p.WeeklySuperlikeWeekKey != WeekKey(now) {
		return 0
	}
	return p.WeeklySuperlikeCount
}

// MaxDailySwipes is the daily ceiling of p.
func (t *Tracker) MaxDailySwipes(p model.UserProfile) int {
	if p.Premium {
		return max(p.MaxDailySwipes, t.limits.PremiumDailySwipes)
	}
	if p.MaxDailySwipes > 0 {
		return p.MaxDailySwipes
	}
	return t.limits.DefaultDailySwipes
}

// CanSwipe returns nil when p may perform a swipe of the given type now,
// or one of SUPERLIKE_PREMIUM_ONLY, SUPERLIKE_LIMIT_REACHED,
// SWIPE_LIMIT_REACHED.
func (t *Tracker) CanSwipe(p model.UserProfile, typ model.LikeType, now time.Time) error {
	if typ == model.LikeTypeSuperlike {
		if !p.Premium {
			return apperr.New(apperr.CodeSuperlikePremiumOnly, "superlike requires premium")
		}
		if EffectiveWeeklySuperlikes(p, now) >= t.limits.WeeklySuperlikes {
			return apperr.New(apperr.CodeSuperlikeLimitReached,
				fmt.Sprintf("%d superlikes per week", t.limits.WeeklySuperlikes))
		}
	}

	if !p.Premium && t.EffectiveDailyCount(p, now) >= t.MaxDailySwipes(p) {
		return apperr.New(apperr.CodeSwipeLimitReached,
			fmt.Sprintf("%d swipes per day", t.MaxDailySwipes(p)))
	}
	return nil
}

// RecordSwipe returns p with its counters advanced by one swipe of typ.
// A superlike counts against both the weekly and the daily counter.
func (t *Tracker) RecordSwipe(p model.UserProfile, typ model.LikeType, now time.Time) model.UserProfile {
	p.DailySwipeCount = t.EffectiveDailyCount(p, now) + 1
	p.LastSwipeDate = t.DateKey(now)
	if typ == model.LikeTypeSuperlike {
		p.WeeklySuperlikeCount = EffectiveWeeklySuperlikes(p, now) + 1
		p.WeeklySuperlikeWeekKey = WeekKey(now)
	}
	return p
}

// QuotaFields are the profile fields RecordSwipe changes, for a merge-write.
func QuotaFields(p model.UserProfile, typ model.LikeType) docstore.Fields {
	f := docstore.Fields{
		"dailySwipeCount": p.DailySwipeCount,
		"lastSwipeDate":   p.LastSwipeDate,
	}
	if typ == model.LikeTypeSuperlike {
		f["weeklySuperlikeCount"] = p.WeeklySuperlikeCount
		f["weeklySuperlikeWeekKey"] = p.WeeklySuperlikeWeekKey
	}
	return f
}
