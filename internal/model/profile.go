package model

// Collection names of the document store.
const (
	CollectionUsers   = "users"
	CollectionLikes   = "likes"
	CollectionMatches = "matches"
)

// MessagesCollection is the message subcollection of a match.
func MessagesCollection(matchID string) string {
	return CollectionMatches + "/" + matchID + "/messages"
}

type VerificationStatus string

const (
	VerificationNone     VerificationStatus = "none"
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// UserProfile is the users/{uid} document.
//
// DailySwipeCount only counts for LastSwipeDate; on any other day the
// effective count is zero.
type UserProfile struct {
	UID             string   `json:"uid"`
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	Gender          string   `json:"gender"`
	Country         string   `json:"country"`
	City            string   `json:"city"`
	Photos          []string `json:"photos"`
	Genres          []string `json:"genres"`
	BPMPreference   string   `json:"bpmPreference,omitempty"`
	AfterParty      bool     `json:"afterParty"`
	Bio             string   `json:"bio,omitempty"`
	PreferredGender string   `json:"preferredGender,omitempty"`
	MinAge          int      `json:"minAge,omitempty"`
	MaxAge          int      `json:"maxAge,omitempty"`
	MaxDistanceKm   int      `json:"maxDistanceKm,omitempty"`

	Premium bool `json:"premium"`

	DailySwipeCount int    `json:"dailySwipeCount"`
	LastSwipeDate   string `json:"lastSwipeDate"`
	MaxDailySwipes  int    `json:"maxDailySwipes"`

	WeeklySuperlikeCount   int    `json:"weeklySuperlikeCount"`
	WeeklySuperlikeWeekKey string `json:"weeklySuperlikeWeekKey"`

	Verified              bool               `json:"verified"`
	VerificationStatus    VerificationStatus `json:"verificationStatus,omitempty"`
	VerificationUpdatedAt int64              `json:"verificationUpdatedAt,omitempty"`

	// BoostUntil is an epoch-millisecond expiry; zero means no boost.
	BoostUntil int64 `json:"boostUntil,omitempty"`
}

// ProfileSnapshot is the public part of a profile copied into likes and
// matches. It is not kept in sync and may be stale.
type ProfileSnapshot struct {
	Name     string   `json:"name,omitempty"`
	City     string   `json:"city,omitempty"`
	Country  string   `json:"country,omitempty"`
	Photos   []string `json:"photos"`
	Genres   []string `json:"genres"`
	Verified bool     `json:"verified"`
}

// Snapshot returns the public fields of p.
func (p UserProfile) Snapshot() ProfileSnapshot {
	s := ProfileSnapshot{
		Name:     p.Name,
		City:     p.City,
		Country:  p.Country,
		Photos:   p.Photos,
		Genres:   p.Genres,
		Verified: p.Verified,
	}
	if s.Photos == nil {
		s.Photos = []string{}
	}
	if s.Genres == nil {
		s.Genres = []string{}
	}
	return s
}
