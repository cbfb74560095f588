package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voyora/messaging-service/internal/apperr"
	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/realtime"
)

// GroupRepo persists multi-party chats, their messages and the
// per-member unread counters.
type GroupRepo interface {
	Create(ctx context.Context, creatorID, name, image string, initialMembers []string) (*models.Group, error)
	Get(ctx context.Context, groupID string) (*models.Group, error)
	AddMembers(ctx context.Context, groupID string, newMembers []string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	UpdateInfo(ctx context.Context, groupID, name, image string) error
	SendMessage(ctx context.Context, groupID, senderID, senderName, text string) (*models.GroupMessage, error)
	MarkRead(ctx context.Context, groupID, userID string) error
	ListMessages(ctx context.Context, groupID string, limit int64, before time.Time) ([]*models.GroupMessage, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Group, error)
	WatchMessages(ctx context.Context, groupID string) (realtime.Feed, error)
	WatchUserGroups(ctx context.Context, userID string) (realtime.Feed, error)
}

type mongoGroupRepo struct {
	client   *mongo.Client
	groups   *mongo.Collection
	messages *mongo.Collection
}

func NewGroupRepo(client *mongo.Client, db *mongo.Database) GroupRepo {
	r := &mongoGroupRepo{
		client:   client,
		groups:   db.Collection(collGroups),
		messages: db.Collection(collGroupMessages),
	}
	_, _ = r.groups.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "members", Value: 1}, {Key: "last_message_at", Value: -1}},
		Options: options.Index().SetName("members_last_msg_idx"),
	})
	_, _ = r.messages.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("group_created_idx"),
	})
	return r
}

func (r *mongoGroupRepo) Create(ctx context.Context, creatorID, name, image string, initialMembers []string) (*models.Group, error) {
	now := time.Now().UTC()
	g := &models.Group{
		ID:           uuid.NewString(),
		Name:         name,
		Image:        image,
		Members:      models.UniqueMembers(creatorID, initialMembers),
		Admins:       []string{creatorID},
		UnreadCounts: map[string]int{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.groups.InsertOne(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *mongoGroupRepo) Get(ctx context.Context, groupID string) (*models.Group, error) {
	var g models.Group
	if err := r.groups.FindOne(ctx, bson.M{"_id": groupID}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	g.Normalize()
	return &g, nil
}

// AddMembers merges via $addToSet, so re-adding an existing member is a
// no-op.
func (r *mongoGroupRepo) AddMembers(ctx context.Context, groupID string, newMembers []string) error {
	res, err := r.groups.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": newMembers}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// RemoveMember rejects removal of the sole remaining admin with
// ErrLastAdmin, leaving the group untouched. The check and the pull run
// in one transaction so a concurrent admin change cannot slip between
// them.
func (r *mongoGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var g models.Group
		if err := r.groups.FindOne(sc, bson.M{"_id": groupID}).Decode(&g); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, apperr.ErrNotFound
			}
			return nil, err
		}
		if g.SoleAdmin(userID) {
			return nil, apperr.ErrLastAdmin
		}
		update := bson.M{
			"$pull":  bson.M{"members": userID, "admins": userID},
			"$unset": bson.M{"unread_counts." + userID: ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
		if _, err := r.groups.UpdateByID(sc, groupID, update); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (r *mongoGroupRepo) UpdateInfo(ctx context.Context, groupID, name, image string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
	}
	if image != "" {
		set["image"] = image
	}
	res, err := r.groups.UpdateByID(ctx, groupID, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SendMessage runs the read-increment-write sequence in one
// transaction: read the group, fold the unread counters with
// models.NextUnreadCounts, insert the message, update the projection.
// The session retries on write conflict, so concurrent senders never
// lose an increment.
func (r *mongoGroupRepo) SendMessage(ctx context.Context, groupID, senderID, senderName, text string) (*models.GroupMessage, error) {
	sess, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	msgID := uuid.NewString()
	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var g models.Group
		if err := r.groups.FindOne(sc, bson.M{"_id": groupID}).Decode(&g); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, apperr.ErrNotFound
			}
			return nil, err
		}
		g.Normalize()
		if !g.HasMember(senderID) {
			return nil, apperr.ErrNotAMember
		}

		next := models.NextUnreadCounts(g.Members, g.UnreadCounts, senderID)

		insert := mongo.Pipeline{bson.D{{Key: "$set", Value: bson.M{
			"group_id":    bson.M{"$literal": groupID},
			"sender_id":   bson.M{"$literal": senderID},
			"sender_name": bson.M{"$literal": senderName},
			"text":        bson.M{"$literal": text},
			"created_at":  "$$NOW",
		}}}}
		if _, err := r.messages.UpdateOne(sc, bson.M{"_id": msgID}, insert, options.Update().SetUpsert(true)); err != nil {
			return nil, err
		}

		var msg models.GroupMessage
		if err := r.messages.FindOne(sc, bson.M{"_id": msgID}).Decode(&msg); err != nil {
			return nil, err
		}

		summary := bson.M{"$set": bson.M{
			"last_message":    msg.Text,
			"last_message_at": msg.CreatedAt,
			"last_sender_id":  msg.SenderID,
			"unread_counts":   next,
			"updated_at":      msg.CreatedAt,
		}}
		if _, err := r.groups.UpdateByID(sc, groupID, summary); err != nil {
			return nil, err
		}
		return &msg, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.GroupMessage), nil
}

// MarkRead zeroes a single member's counter with a targeted field
// update; the rest of the map is never rewritten.
func (r *mongoGroupRepo) MarkRead(ctx context.Context, groupID, userID string) error {
	res, err := r.groups.UpdateByID(ctx, groupID, bson.M{
		"$set": bson.M{"unread_counts." + userID: 0},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *mongoGroupRepo) ListMessages(ctx context.Context, groupID string, limit int64, before time.Time) ([]*models.GroupMessage, error) {
	filter := bson.M{"group_id": groupID}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.GroupMessage
	for cur.Next(ctx) {
		var m models.GroupMessage
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *mongoGroupRepo) ListForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cur, err := r.groups.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Group
	for cur.Next(ctx) {
		var g models.Group
		if err := cur.Decode(&g); err != nil {
			return nil, err
		}
		g.Normalize()
		out = append(out, &g)
	}
	return out, cur.Err()
}

func (r *mongoGroupRepo) WatchMessages(ctx context.Context, groupID string) (realtime.Feed, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"fullDocument.group_id": groupID}}}}
	return r.messages.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
}

func (r *mongoGroupRepo) WatchUserGroups(ctx context.Context, userID string) (realtime.Feed, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"fullDocument.members": userID}}}}
	return r.groups.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
}
