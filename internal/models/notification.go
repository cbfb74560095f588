package models

import "time"

// Notification is one raw per-event record: someone liked, commented on
// or followed something.
type Notification struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Type      string    `bson:"type" json:"type"`
	TargetID  string    `bson:"target_id" json:"target_id"`
	ActorID   string    `bson:"actor_id" json:"actor_id"`
	ActorName string    `bson:"actor_name,omitempty" json:"actor_name,omitempty"`
	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// AggregatedNotification is the display unit: all raw records sharing
// (type, target_id) folded into one row.
type AggregatedNotification struct {
	Type      string    `json:"type"`
	TargetID  string    `json:"target_id"`
	Count     int       `json:"count"`
	Actors    []string  `json:"actors"`
	ActorName string    `json:"actor_name,omitempty"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}
