package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/realtime"
)

// NotificationRepo persists raw per-event notification records.
// Aggregation into display units is computed on read by the service.
type NotificationRepo interface {
	Insert(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	WatchUserNotifications(ctx context.Context, userID string) (realtime.Feed, error)
}

type mongoNotificationRepo struct {
	col *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) NotificationRepo {
	r := &mongoNotificationRepo{col: db.Collection(collNotifications)}
	_, _ = r.col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("user_created_idx"),
	})
	return r
}

func (r *mongoNotificationRepo) Insert(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *mongoNotificationRepo) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Notification
	for cur.Next(ctx) {
		var n models.Notification
		if err := cur.Decode(&n); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, cur.Err()
}

// MarkAllRead flips every unread record for the user. Safe to call on
// every screen focus: the filter makes the second call match nothing.
func (r *mongoNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}

func (r *mongoNotificationRepo) WatchUserNotifications(ctx context.Context, userID string) (realtime.Feed, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"fullDocument.user_id": userID}}}}
	return r.col.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
}
