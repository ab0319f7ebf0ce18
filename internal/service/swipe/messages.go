package swipe

import (
	"github.com/oggyb/ravematch/internal/model"
)

// UserRequest addresses one user's own data.
type UserRequest struct {
	UID string `json:"uid"`
}

type ProfileResponse struct {
	Profile model.UserProfile `json:"profile"`
}

type UpdateProfileRequest struct {
	UID    string         `json:"uid"`
	Fields map[string]any `json:"fields"`
}

type SetPremiumRequest struct {
	UID     string `json:"uid"`
	Premium bool   `json:"premium"`
}

type BoostResponse struct {
	BoostUntil int64 `json:"boostUntil"`
}

// Candidate is the public card of a profile in the swipe deck.
type Candidate struct {
	UID           string   `json:"uid"`
	Name          string   `json:"name"`
	Age           int      `json:"age"`
	Gender        string   `json:"gender,omitempty"`
	Country       string   `json:"country,omitempty"`
	City          string   `json:"city,omitempty"`
	Photos        []string `json:"photos"`
	Genres        []string `json:"genres"`
	BPMPreference string   `json:"bpmPreference,omitempty"`
	AfterParty    bool     `json:"afterParty"`
	Bio           string   `json:"bio,omitempty"`
	Verified      bool     `json:"verified"`
	BoostUntil    int64    `json:"boostUntil,omitempty"`
}

type CandidatesResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type SendLikeRequest struct {
	ActorID   string                 `json:"actorId"`
	TargetID  string                 `json:"targetId"`
	Type      model.LikeType         `json:"type"`
	ToProfile *model.ProfileSnapshot `json:"toProfile,omitempty"`
}

type SendLikeResponse struct {
	Matched              bool   `json:"matched"`
	MatchID              string `json:"matchId,omitempty"`
	DailySwipeCount      int    `json:"dailySwipeCount"`
	WeeklySuperlikeCount int    `json:"weeklySuperlikeCount"`
}

type ListLikesRequest struct {
	UID             string  `json:"uid"`
	PaginationToken *string `json:"paginationToken,omitempty"`
	Limit           int     `json:"limit,omitempty"`
}

// LikeView is one entry of a likes list. For a viewer without premium the
// liker's identity is withheld and Redacted is set.
type LikeView struct {
	UserID    string                 `json:"userId,omitempty"`
	Type      model.LikeType         `json:"type"`
	Profile   *model.ProfileSnapshot `json:"profile,omitempty"`
	CreatedAt int64                  `json:"createdAt"`
	Redacted  bool                   `json:"redacted,omitempty"`
}

type ListLikesResponse struct {
	Likes               []LikeView `json:"likes"`
	NextPaginationToken *string    `json:"nextPaginationToken,omitempty"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ListMatchesRequest struct {
	UID   string `json:"uid"`
	Limit int    `json:"limit,omitempty"`
}

type MatchView struct {
	ID              string `json:"id"`
	OtherID         string `json:"otherId"`
	OtherName       string `json:"otherName"`
	CreatedAt       int64  `json:"createdAt"`
	LastMessageAt   int64  `json:"lastMessageAt"`
	LastMessageFrom string `json:"lastMessageFrom"`
}

type ListMatchesResponse struct {
	Matches []MatchView `json:"matches"`
}

type FirstMessageRequest struct {
	ActorID string `json:"actorId"`
	OtherID string `json:"otherId"`
	Text    string `json:"text"`
}

type FirstMessageResponse struct {
	MatchID string `json:"matchId"`
}

func toCandidate(p model.UserProfile) Candidate {
	c := Candidate{
		UID:           p.UID,
		Name:          p.Name,
		Age:           p.Age,
		Gender:        p.Gender,
		Country:       p.Country,
		City:          p.City,
		Photos:        p.Photos,
		Genres:        p.Genres,
		BPMPreference: p.BPMPreference,
		AfterParty:    p.AfterParty,
		Bio:           p.Bio,
		Verified:      p.Verified,
		BoostUntil:    p.BoostUntil,
	}
	if c.Photos == nil {
		c.Photos = []string{}
	}
	if c.Genres == nil {
		c.Genres = []string{}
	}
	return c
}
