package swipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/oggyb/ravematch/internal/app"
	"github.com/oggyb/ravematch/internal/auth"
	"github.com/oggyb/ravematch/internal/docstore"
	svcErr "github.com/oggyb/ravematch/internal/errors"
	"github.com/oggyb/ravematch/internal/model"
	"github.com/oggyb/ravematch/internal/repository"
	"github.com/oggyb/ravematch/internal/session"
	core "github.com/oggyb/ravematch/internal/swipe"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// editableFields are the profile fields a user may change directly. Quota
// counters, premium and verification go through their own operations.
var editableFields = map[string]bool{
	"name":            true,
	"age":             true,
	"gender":          true,
	"country":         true,
	"city":            true,
	"photos":          true,
	"genres":          true,
	"bpmPreference":   true,
	"afterParty":      true,
	"bio":             true,
	"preferredGender": true,
	"minAge":          true,
	"maxAge":          true,
	"maxDistanceKm":   true,
}

// Service implements the Swipe API on top of the engine, the session
// context and the repositories. Both the gRPC server and the HTTP gateway
// call into it.
type Service struct {
	appCtx *app.AppContext
}

// NewSwipeService creates a new Swipe service with dependencies from AppContext.
func NewSwipeService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

func (s *Service) session(ctx context.Context, uid string) (*session.Context, error) {
	if err := auth.CheckActor(ctx, uid); err != nil {
		return nil, err
	}
	return session.Load(ctx, s.appCtx.Store, s.appCtx.Tracker, uid,
		session.WithClock(s.appCtx.Clock), session.WithLogger(s.appCtx.Logger))
}

// GetProfile returns the caller's profile, creating the default one on
// first sign-in.
func (s *Service) GetProfile(ctx context.Context, req *UserRequest) (*ProfileResponse, error) {
	sess, err := s.session(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{Profile: sess.Profile()}, nil
}

// UpdateProfile merges the given public fields into the profile.
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*ProfileResponse, error) {
	for k := range req.Fields {
		if !editableFields[k] {
			return nil, svcErr.InvalidArgument(fmt.Sprintf("field %q cannot be updated", k))
		}
	}
	sess, err := s.session(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	if err := sess.Update(ctx, docstore.Fields(req.Fields)); err != nil {
		return nil, err
	}
	s.appCtx.Logger.Debug("profile updated", "uid", req.UID, "fields", len(req.Fields))
	return &ProfileResponse{Profile: sess.Profile()}, nil
}

// SetPremium toggles premium for the caller.
func (s *Service) SetPremium(ctx context.Context, req *SetPremiumRequest) (*ProfileResponse, error) {
	sess, err := s.session(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	if err := sess.SetPremium(ctx, req.Premium); err != nil {
		return nil, err
	}
	s.appCtx.Logger.Info("premium changed", "uid", req.UID, "premium", req.Premium)
	return &ProfileResponse{Profile: sess.Profile()}, nil
}

// RequestVerification puts the caller's verification in review.
func (s *Service) RequestVerification(ctx context.Context, req *UserRequest) (*ProfileResponse, error) {
	sess, err := s.session(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	if err := sess.RequestVerification(ctx); err != nil {
		return nil, err
	}
	return &ProfileResponse{Profile: sess.Profile()}, nil
}

// Boost moves a premium caller to the front of candidate lists for a while.
func (s *Service) Boost(ctx context.Context, req *UserRequest) (*BoostResponse, error) {
	if err := auth.CheckActor(ctx, req.UID); err != nil {
		return nil, err
	}
	until, err := s.appCtx.Engine.Boost(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	return &BoostResponse{BoostUntil: until}, nil
}

// FetchCandidates returns the swipe deck of the caller.
func (s *Service) FetchCandidates(ctx context.Context, req *UserRequest) (*CandidatesResponse, error) {
	sess, err := s.session(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	found, err := s.appCtx.Selector.FetchCandidates(ctx, sess.Profile())
	if err != nil {
		return nil, err
	}
	resp := &CandidatesResponse{Candidates: make([]Candidate, 0, len(found))}
	for _, p := range found {
		resp.Candidates = append(resp.Candidates, toCandidate(p))
	}
	return resp, nil
}

// SendLike records a like or superlike and reports a match.
//
// Behavior:
//   - Quota rejections come back as SWIPE_LIMIT_REACHED,
//     SUPERLIKE_LIMIT_REACHED or SUPERLIKE_PREMIUM_ONLY.
//   - Matched is true when the target had already liked the caller.
//
// Example:
//
//	svc.SendLike(ctx, &SendLikeRequest{ActorID: "a", TargetID: "b", Type: model.LikeTypeLike})
func (s *Service) SendLike(ctx context.Context, req *SendLikeRequest) (*SendLikeResponse, error) {
	s.appCtx.Logger.Debug("SendLike called", "actor", req.ActorID, "target", req.TargetID, "type", req.Type)

	if err := auth.CheckActor(ctx, req.ActorID); err != nil {
		return nil, err
	}
	typ := req.Type
	if typ == "" {
		typ = model.LikeTypeLike
	}

	res, err := s.appCtx.Engine.SendLike(ctx, core.LikeRequest{
		ActorID:   req.ActorID,
		TargetID:  req.TargetID,
		Type:      typ,
		ToProfile: req.ToProfile,
	})
	if err != nil {
		return nil, err
	}
	return &SendLikeResponse{
		Matched:              res.Matched,
		MatchID:              res.MatchID,
		DailySwipeCount:      res.Profile.DailySwipeCount,
		WeeklySuperlikeCount: res.Profile.WeeklySuperlikeCount,
	}, nil
}

// ListLikedYou returns the users who liked the caller, newest first.
// Without premium the likers stay anonymous.
func (s *Service) ListLikedYou(ctx context.Context, req *ListLikesRequest) (*ListLikesResponse, error) {
	sess, err := s.session(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	likes, next, err := s.appCtx.Likes.ListIncoming(ctx, req.UID, req.PaginationToken, pageSize(req.Limit))
	if err != nil {
		return nil, err
	}

	premium := sess.Profile().Premium
	var live map[string]model.ProfileSnapshot
	if premium {
		if live, err = s.likerProfiles(ctx, likes); err != nil {
			return nil, err
		}
	}

	resp := &ListLikesResponse{Likes: make([]LikeView, 0, len(likes)), NextPaginationToken: next}
	for _, l := range likes {
		v := LikeView{Type: l.Type, CreatedAt: l.CreatedAt}
		if premium {
			v.UserID = l.From
			v.Profile = l.FromProfile
			if snap, ok := live[l.From]; ok {
				v.Profile = &snap
			}
		} else {
			v.Redacted = true
		}
		resp.Likes = append(resp.Likes, v)
	}
	return resp, nil
}

// likerProfiles reads the current profiles of the likers; a liker whose
// profile is gone keeps the snapshot stored on the like.
func (s *Service) likerProfiles(ctx context.Context, likes []model.LikeRecord) (map[string]model.ProfileSnapshot, error) {
	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.From)
	}
	profiles, err := s.appCtx.Profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	live := make(map[string]model.ProfileSnapshot, len(profiles))
	for _, p := range profiles {
		live[p.UID] = p.Snapshot()
	}
	return live, nil
}

// ListMyLikes returns the users the caller liked, newest first.
func (s *Service) ListMyLikes(ctx context.Context, req *ListLikesRequest) (*ListLikesResponse, error) {
	if err := auth.CheckActor(ctx, req.UID); err != nil {
		return nil, err
	}
	likes, next, err := s.appCtx.Likes.ListOutgoing(ctx, req.UID, req.PaginationToken, pageSize(req.Limit))
	if err != nil {
		return nil, err
	}
	resp := &ListLikesResponse{Likes: make([]LikeView, 0, len(likes)), NextPaginationToken: next}
	for _, l := range likes {
		resp.Likes = append(resp.Likes, LikeView{
			UserID:    l.To,
			Type:      l.Type,
			Profile:   l.ToProfile,
			CreatedAt: l.CreatedAt,
		})
	}
	return resp, nil
}

// CountLikedYou returns how many users liked the caller.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:uid).
//  2. On a miss, counts in the store.
//  3. Stores the count in Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, req *UserRequest) (*CountResponse, error) {
	if err := auth.CheckActor(ctx, req.UID); err != nil {
		return nil, err
	}
	if req.UID == "" {
		return nil, svcErr.InvalidArgument("uid is required")
	}

	rc := s.appCtx.RedisCache
	if rc != nil {
		n, ok, err := rc.GetLikeCount(ctx, req.UID)
		if err != nil {
			s.appCtx.Logger.Warn("like count cache read failed", "uid", req.UID, "err", err)
		} else if ok {
			return &CountResponse{Count: n}, nil
		}
	}

	count, err := s.appCtx.Likes.CountIncoming(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		if err := rc.SetLikeCount(ctx, req.UID, count); err != nil {
			s.appCtx.Logger.Warn("like count cache write failed", "uid", req.UID, "err", err)
		}
	}
	return &CountResponse{Count: count}, nil
}

// ListMatches returns the caller's matches, most recent activity first.
func (s *Service) ListMatches(ctx context.Context, req *ListMatchesRequest) (*ListMatchesResponse, error) {
	if err := auth.CheckActor(ctx, req.UID); err != nil {
		return nil, err
	}
	if req.UID == "" {
		return nil, svcErr.InvalidArgument("uid is required")
	}
	matches, err := s.appCtx.Matches.ListForUser(ctx, req.UID, pageSize(req.Limit))
	if err != nil {
		return nil, err
	}
	return matchesResponse(req.UID, matches), nil
}

func matchesResponse(uid string, matches []model.MatchRecord) *ListMatchesResponse {
	resp := &ListMatchesResponse{Matches: make([]MatchView, 0, len(matches))}
	for _, m := range matches {
		other := m.Other(uid)
		name := m.UserNames[other]
		if name == "" {
			name = other
		}
		resp.Matches = append(resp.Matches, MatchView{
			ID:              m.ID,
			OtherID:         other,
			OtherName:       name,
			CreatedAt:       m.CreatedAt,
			LastMessageAt:   m.LastMessageAt,
			LastMessageFrom: m.LastMessageFrom,
		})
	}
	return resp
}

// SendFirstMessage opens the conversation with a mutual like. It fails
// with NOT_MATCHED unless both users liked each other.
func (s *Service) SendFirstMessage(ctx context.Context, req *FirstMessageRequest) (*FirstMessageResponse, error) {
	if err := auth.CheckActor(ctx, req.ActorID); err != nil {
		return nil, err
	}
	if req.ActorID == "" || req.OtherID == "" || req.ActorID == req.OtherID {
		return nil, svcErr.InvalidArgument("actorId and otherId must be two different users")
	}
	id, err := s.appCtx.Engine.Detector().EnsureMatchOnFirstMessage(ctx, req.ActorID, req.OtherID, req.Text)
	if err != nil {
		return nil, err
	}
	return &FirstMessageResponse{MatchID: id}, nil
}

// WatchProfile sends the caller's profile, then again after every change,
// until ctx ends.
func (s *Service) WatchProfile(ctx context.Context, req *UserRequest, send func(*ProfileResponse) error) error {
	if err := auth.CheckActor(ctx, req.UID); err != nil {
		return err
	}
	sess, err := session.Open(ctx, s.appCtx.Store, s.appCtx.Tracker, req.UID,
		session.WithClock(s.appCtx.Clock), session.WithLogger(s.appCtx.Logger))
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := send(&ProfileResponse{Profile: sess.Profile()}); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-sess.Updates():
			if !ok {
				return nil
			}
			if err := send(&ProfileResponse{Profile: p}); err != nil {
				return err
			}
		}
	}
}

// WatchMatches sends the caller's matches, then again after every change to
// the matches collection, until ctx ends. Without a change feed the current
// list is sent once.
func (s *Service) WatchMatches(ctx context.Context, req *ListMatchesRequest, send func(*ListMatchesResponse) error) error {
	if err := auth.CheckActor(ctx, req.UID); err != nil {
		return err
	}
	if req.UID == "" {
		return svcErr.InvalidArgument("uid is required")
	}
	limit := pageSize(req.Limit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// one watch per participant field; a user is either userA or userB
	watches := make([]*docstore.Watch, 0, len(repository.ParticipantFields))
	for _, field := range repository.ParticipantFields {
		w, err := s.appCtx.Store.WatchQuery(ctx, repository.QueryFor(field, req.UID, limit))
		if errors.Is(err, docstore.ErrNoNotifier) {
			matches, err := s.appCtx.Matches.ListForUser(ctx, req.UID, limit)
			if err != nil {
				return err
			}
			return send(matchesResponse(req.UID, matches))
		}
		if err != nil {
			return err
		}
		defer w.Close()
		watches = append(watches, w)
	}

	sides := make([][]*docstore.Document, len(watches))
	received := make([]bool, len(watches))
	for {
		var (
			side int
			snap docstore.Snapshot
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case snap, ok = <-watches[0].Events():
		case snap, ok = <-watches[1].Events():
			side = 1
		}
		if !ok {
			return nil
		}
		if snap.Err != nil {
			return snap.Err
		}
		sides[side], received[side] = snap.Documents, true
		if !received[0] || !received[1] {
			continue
		}

		matches, err := repository.CollectMatches(limit, sides...)
		if err != nil {
			return err
		}
		if err := send(matchesResponse(req.UID, matches)); err != nil {
			return err
		}
	}
}

func pageSize(n int) int {
	switch {
	case n <= 0:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	}
	return n
}
