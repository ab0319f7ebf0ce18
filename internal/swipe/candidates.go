package swipe

import (
	"context"
	"log/slog"
	"sort"

	"github.com/oggyb/ravematch/internal/docstore"
	"github.com/oggyb/ravematch/internal/model"
)

// ProfileFinder queries the user pool.
type ProfileFinder interface {
	Find(ctx context.Context, where []docstore.Predicate, limit int) ([]model.UserProfile, error)
}

// Selector picks the profiles a user can swipe on.
type Selector struct {
	finder ProfileFinder
	limits Limits
	log    *slog.Logger
}

func NewSelector(finder ProfileFinder, limits Limits, log *slog.Logger) *Selector {
	return &Selector{finder: finder, limits: limits, log: log}
}

// CandidateFilters returns the predicates for self: same country when set;
// for premium users also same city and an age window.
func (s *Selector) CandidateFilters(self model.UserProfile) []docstore.Predicate {
	var where []docstore.Predicate
	if self.Country != "" {
		where = append(where, docstore.Where("country", docstore.OpEqual, self.Country))
	}
	if self.Premium {
		if self.City != "" {
			where = append(where, docstore.Where("city", docstore.OpEqual, self.City))
		}
		if self.Age > 0 {
			d := s.limits.CandidateAgeDistance
			where = append(where,
				docstore.Where("age", docstore.OpGreaterEqual, self.Age-d),
				docstore.Where("age", docstore.OpLessEqual, self.Age+d),
			)
		}
	}
	return where
}

// FetchCandidates returns up to the candidate limit of profiles, boosted
// ones first and self never included.
//
// Behavior:
//   - A failing filtered query falls back to the unfiltered bounded query.
//   - Only a failure of that fallback is returned.
func (s *Selector) FetchCandidates(ctx context.Context, self model.UserProfile) ([]model.UserProfile, error) {
	limit := s.limits.CandidateLimit

	found, err := s.finder.Find(ctx, s.CandidateFilters(self), limit)
	if err != nil {
		s.log.Warn("filtered candidate query failed, falling back to unfiltered",
			"uid", self.UID, "err", err)
		found, err = s.finder.Find(ctx, nil, limit)
		if err != nil {
			return nil, err
		}
	}

	candidates := make([]model.UserProfile, 0, len(found))
	for _, p := range found {
		if p.UID == self.UID {
			continue
		}
		candidates = append(candidates, p)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].BoostUntil > candidates[j].BoostUntil
	})
	return candidates, nil
}
