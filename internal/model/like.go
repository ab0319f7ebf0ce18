package model

import "sort"

type LikeType string

const (
	LikeTypeLike      LikeType = "like"
	LikeTypeSuperlike LikeType = "superlike"
)

func (t LikeType) Valid() bool {
	return t == LikeTypeLike || t == LikeTypeSuperlike
}

// LikeRecord is the likes/{from}_{to} document. There is at most one per
// ordered pair; liking again merges into it.
type LikeRecord struct {
	ID          string           `json:"-"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Type        LikeType         `json:"type"`
	FromProfile *ProfileSnapshot `json:"fromProfile"`
	ToProfile   *ProfileSnapshot `json:"toProfile"`
	CreatedAt   int64            `json:"createdAt"`
}

// LikeID is the key of the like from actor to target.
func LikeID(actorID, targetID string) string {
	return actorID + "_" + targetID
}

// MatchRecord is the matches/{min}_{max} document. It exists once both
// likes of the pair exist.
type MatchRecord struct {
	ID              string            `json:"-"`
	UserA           string            `json:"userA"`
	UserB           string            `json:"userB"`
	Users           []string          `json:"users"`
	UserNames       map[string]string `json:"userNames"`
	CreatedAt       int64             `json:"createdAt"`
	LastMessageAt   int64             `json:"lastMessageAt"`
	LastMessageFrom string            `json:"lastMessageFrom"`
}

// MatchID joins the two ids in sorted order, so both directions of
// discovery address the same document.
func MatchID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

// Other returns the participant that is not uid.
func (m MatchRecord) Other(uid string) string {
	if m.UserA == uid {
		return m.UserB
	}
	return m.UserA
}

// Message is a matches/{id}/messages/{auto} document.
type Message struct {
	ID        string   `json:"-"`
	From      string   `json:"from"`
	Text      string   `json:"text"`
	Users     []string `json:"users"`
	CreatedAt int64    `json:"createdAt"`
}
