package models

import "time"

// Group is a multi-party chat. Admins is always a non-empty subset of
// Members while the group exists.
type Group struct {
	ID            string         `bson:"_id" json:"id"`
	Name          string         `bson:"name" json:"name"`
	Image         string         `bson:"image,omitempty" json:"image,omitempty"`
	Members       []string       `bson:"members" json:"members"`
	Admins        []string       `bson:"admins" json:"admins"`
	UnreadCounts  map[string]int `bson:"unread_counts" json:"unread_counts"`
	LastMessage   string         `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageAt time.Time      `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	LastSenderID  string         `bson:"last_sender_id,omitempty" json:"last_sender_id,omitempty"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updated_at"`
}

func (g *Group) Normalize() {
	if g.Members == nil {
		g.Members = []string{}
	}
	if g.Admins == nil {
		g.Admins = []string{}
	}
	if g.UnreadCounts == nil {
		g.UnreadCounts = map[string]int{}
	}
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// SoleAdmin reports whether userID is the only remaining admin.
func (g *Group) SoleAdmin(userID string) bool {
	return len(g.Admins) == 1 && g.Admins[0] == userID
}

// GroupMessage lives in the group_messages collection keyed by group_id.
type GroupMessage struct {
	ID         string    `bson:"_id" json:"id"`
	GroupID    string    `bson:"group_id" json:"group_id"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	SenderName string    `bson:"sender_name" json:"sender_name"`
	Text       string    `bson:"text" json:"text"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// NextUnreadCounts computes the unread map after senderID posts one
// message: every other member's counter goes up by one, starting at
// zero when absent. The sender's own counter is carried over untouched;
// sending is not reading. Counters for departed members are dropped.
// Pure, so the transaction primitive supplies the retry loop around it.
func NextUnreadCounts(members []string, counts map[string]int, senderID string) map[string]int {
	next := make(map[string]int, len(members))
	for _, m := range members {
		if m == senderID {
			if c, ok := counts[m]; ok {
				next[m] = c
			}
			continue
		}
		next[m] = counts[m] + 1
	}
	return next
}

// UniqueMembers deduplicates the union of creator and the initial
// member list, preserving first-seen order.
func UniqueMembers(creatorID string, initial []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(initial)+1)
	for _, m := range append([]string{creatorID}, initial...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
