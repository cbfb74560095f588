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
	"github.com/voyora/messaging-service/internal/chatid"
	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/realtime"
)

// ConversationRepo persists one-to-one chats and their messages.
type ConversationRepo interface {
	GetOrCreate(ctx context.Context, idA, idB string) (*models.Conversation, error)
	Get(ctx context.Context, chatID string) (*models.Conversation, error)
	SendMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error)
	MarkMessageSeen(ctx context.Context, chatID, messageID, userID string) error
	ListMessages(ctx context.Context, chatID string, limit int64, before time.Time) ([]*models.Message, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	WatchMessages(ctx context.Context, chatID string) (realtime.Feed, error)
	WatchUserConversations(ctx context.Context, userID string) (realtime.Feed, error)
}

type mongoConversationRepo struct {
	client        *mongo.Client
	conversations *mongo.Collection
	messages      *mongo.Collection
}

// NewConversationRepo wires the conversation store onto db.
func NewConversationRepo(client *mongo.Client, db *mongo.Database) ConversationRepo {
	r := &mongoConversationRepo{
		client:        client,
		conversations: db.Collection(collConversations),
		messages:      db.Collection(collMessages),
	}
	_, _ = r.conversations.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "members", Value: 1}, {Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("members_updated_idx"),
	})
	_, _ = r.messages.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("chat_created_idx"),
	})
	return r
}

// GetOrCreate upserts the deterministic conversation document. Both
// participants racing through here converge on one document: members
// and created_at are only written when absent, so the second writer is
// a no-op and created_at is never reset.
func (r *mongoConversationRepo) GetOrCreate(ctx context.Context, idA, idB string) (*models.Conversation, error) {
	chatID, err := chatid.Build(idA, idB)
	if err != nil {
		return nil, err
	}
	members, _ := chatid.Members(chatID)

	update := mongo.Pipeline{bson.D{{Key: "$set", Value: bson.M{
		"members":    bson.M{"$ifNull": bson.A{"$members", bson.M{"$literal": members}}},
		"created_at": bson.M{"$ifNull": bson.A{"$created_at", "$$NOW"}},
		"updated_at": bson.M{"$ifNull": bson.A{"$updated_at", "$$NOW"}},
	}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	if err := r.conversations.FindOneAndUpdate(ctx, bson.M{"_id": chatID}, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	conv.Normalize()
	return &conv, nil
}

func (r *mongoConversationRepo) Get(ctx context.Context, chatID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.conversations.FindOne(ctx, bson.M{"_id": chatID}).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	conv.Normalize()
	return &conv, nil
}

// SendMessage inserts the message and updates the conversation's
// last_message projection as one transaction, so readers never observe
// one without the other. Timestamps come from the store's clock
// ($$NOW), keeping ordering consistent across clients with skewed
// clocks.
func (r *mongoConversationRepo) SendMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error) {
	sess, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	msgID := uuid.NewString()
	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var conv models.Conversation
		if err := r.conversations.FindOne(sc, bson.M{"_id": chatID}).Decode(&conv); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, apperr.ErrNotFound
			}
			return nil, err
		}
		if !contains(conv.Members, senderID) {
			return nil, apperr.ErrNotAMember
		}

		// $literal guards user-supplied strings from being read as
		// field paths by the pipeline
		insert := mongo.Pipeline{bson.D{{Key: "$set", Value: bson.M{
			"chat_id":    bson.M{"$literal": chatID},
			"sender_id":  bson.M{"$literal": senderID},
			"text":       bson.M{"$literal": text},
			"seen_by":    bson.M{"$literal": bson.A{senderID}},
			"created_at": "$$NOW",
		}}}}
		if _, err := r.messages.UpdateOne(sc, bson.M{"_id": msgID}, insert, options.Update().SetUpsert(true)); err != nil {
			return nil, err
		}

		var msg models.Message
		if err := r.messages.FindOne(sc, bson.M{"_id": msgID}).Decode(&msg); err != nil {
			return nil, err
		}

		summary := bson.M{"$set": bson.M{
			"last_message": bson.M{
				"text":       msg.Text,
				"sender_id":  msg.SenderID,
				"created_at": msg.CreatedAt,
			},
			"updated_at": msg.CreatedAt,
		}}
		if _, err := r.conversations.UpdateOne(sc, bson.M{"_id": chatID}, summary); err != nil {
			return nil, err
		}
		return &msg, nil
	})
	if err != nil {
		return nil, err
	}

	msg := res.(*models.Message)
	msg.Normalize()
	return msg, nil
}

// MarkMessageSeen adds userID to seen_by via $addToSet: commutative and
// idempotent, so concurrent readers never clobber each other and the
// set only grows. Nothing else on the message or conversation is
// touched.
func (r *mongoConversationRepo) MarkMessageSeen(ctx context.Context, chatID, messageID, userID string) error {
	res, err := r.messages.UpdateOne(ctx,
		bson.M{"_id": messageID, "chat_id": chatID},
		bson.M{"$addToSet": bson.M{"seen_by": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListMessages returns up to limit messages before the given cursor in
// ascending created_at order.
func (r *mongoConversationRepo) ListMessages(ctx context.Context, chatID string, limit int64, before time.Time) ([]*models.Message, error) {
	filter := bson.M{"chat_id": chatID}
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

	var out []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		m.Normalize()
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	// newest-first from the store, chronological for the caller
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *mongoConversationRepo) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.conversations.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		c.Normalize()
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (r *mongoConversationRepo) WatchMessages(ctx context.Context, chatID string) (realtime.Feed, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"fullDocument.chat_id": chatID}}}}
	return r.messages.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
}

func (r *mongoConversationRepo) WatchUserConversations(ctx context.Context, userID string) (realtime.Feed, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"fullDocument.members": userID}}}}
	return r.conversations.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
}
