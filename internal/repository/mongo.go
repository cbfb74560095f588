package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names. Messages and group messages live in their own
// collections keyed by parent id, the document-store equivalent of
// conversations/{id}/messages subcollections.
const (
	collConversations = "conversations"
	collMessages      = "messages"
	collGroups        = "groups"
	collGroupMessages = "group_messages"
	collNotifications = "notifications"
)

// Connect opens and pings a MongoDB client.
func Connect(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}
	return client, client.Database(dbName), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
