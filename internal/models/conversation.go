package models

import (
	"sort"
	"time"
)

// LastMessage is the denormalized projection of the newest message,
// kept on the conversation document so chat lists render without a
// subquery.
type LastMessage struct {
	Text      string    `bson:"text" json:"text"`
	SenderID  string    `bson:"sender_id" json:"sender_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Conversation is a one-to-one chat. Its _id is deterministic
// (chatid.Build), so both participants racing to create it converge on
// the same document.
type Conversation struct {
	ID          string       `bson:"_id" json:"id"`
	Members     []string     `bson:"members" json:"members"`
	LastMessage *LastMessage `bson:"last_message,omitempty" json:"last_message,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}

// Normalize applies the defaulting policy once, at the store boundary.
func (c *Conversation) Normalize() {
	if c.Members == nil {
		c.Members = []string{}
	}
	sort.Strings(c.Members)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
}

// Message lives in the messages collection keyed by chat_id, ordered by
// created_at.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	ChatID    string    `bson:"chat_id" json:"chat_id"`
	SenderID  string    `bson:"sender_id" json:"sender_id"`
	Text      string    `bson:"text" json:"text"`
	SeenBy    []string  `bson:"seen_by" json:"seen_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Normalize guarantees seen_by always contains at least the sender.
func (m *Message) Normalize() {
	for _, u := range m.SeenBy {
		if u == m.SenderID {
			return
		}
	}
	m.SeenBy = append(m.SeenBy, m.SenderID)
}
