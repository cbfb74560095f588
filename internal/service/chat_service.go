package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voyora/messaging-service/internal/apperr"
	"github.com/voyora/messaging-service/internal/cache"
	"github.com/voyora/messaging-service/internal/kafka"
	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/realtime"
	"github.com/voyora/messaging-service/internal/repository"
)

// ChatService is the one-to-one messaging front: validation before any
// I/O, atomic writes through the repository, then best-effort cache and
// event fan-out. Writes fail loudly; listeners degrade gracefully.
type ChatService struct {
	repo  repository.ConversationRepo
	cache *cache.Client
	prod  *kafka.Producer
	log   *zap.SugaredLogger
}

func NewChatService(repo repository.ConversationRepo, cache *cache.Client, prod *kafka.Producer, log *zap.SugaredLogger) *ChatService {
	return &ChatService{repo: repo, cache: cache, prod: prod, log: log}
}

// GetOrCreateChat returns the conversation for the pair, creating it on
// first use. Safe under concurrent first calls from both participants.
func (s *ChatService) GetOrCreateChat(ctx context.Context, idA, idB string) (*models.Conversation, error) {
	return s.repo.GetOrCreate(ctx, idA, idB)
}

func (s *ChatService) GetChat(ctx context.Context, chatID string) (*models.Conversation, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.Get(ctx, chatID)
}

func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error) {
	if chatID == "" || senderID == "" || text == "" {
		return nil, fmt.Errorf("%w: chat_id, sender_id and text required", apperr.ErrInvalidArgument)
	}
	msg, err := s.repo.SendMessage(ctx, chatID, senderID, text)
	if err != nil {
		return nil, err
	}
	s.afterSend(ctx, msg)
	return msg, nil
}

// afterSend runs the non-critical side effects of a committed message.
func (s *ChatService) afterSend(ctx context.Context, msg *models.Message) {
	if s.cache != nil {
		if payload, err := json.Marshal(msg); err == nil {
			s.cache.PushRecent(ctx, msg.ChatID, payload)
		}
	}
	if s.prod != nil {
		if err := s.prod.Publish(ctx, msg.ChatID, map[string]any{
			"event":   "message.new",
			"message": msg,
		}); err != nil {
			s.log.Warnw("publish message.new", "chat_id", msg.ChatID, "error", err)
		}
	}
}

func (s *ChatService) MarkMessageSeen(ctx context.Context, chatID, messageID, userID string) error {
	if chatID == "" || messageID == "" || userID == "" {
		return fmt.Errorf("%w: chat_id, message_id and user_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.MarkMessageSeen(ctx, chatID, messageID, userID)
}

func (s *ChatService) ListMessages(ctx context.Context, chatID string, limit int64, before time.Time) ([]*models.Message, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.ListMessages(ctx, chatID, limit, before)
}

func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.ListForUser(ctx, userID)
}

// ListenToMessages delivers the full chronological message list on
// every change until the returned disposer is called. Transport errors
// surface as one empty delivery while the subscription reattaches.
func (s *ChatService) ListenToMessages(chatID string, cb func([]*models.Message)) func() {
	if chatID == "" {
		s.log.Warnw("refusing message listener for empty chat id")
		return realtime.NoopUnsubscribe()
	}
	deliver := func(ctx context.Context) error {
		msgs, err := s.repo.ListMessages(ctx, chatID, 0, time.Time{})
		if err != nil {
			return err
		}
		cb(msgs)
		return nil
	}
	empty := func() { cb([]*models.Message{}) }
	open := func(ctx context.Context) (realtime.Feed, error) {
		return s.repo.WatchMessages(ctx, chatID)
	}
	return realtime.Subscribe(s.log, "chat.messages:"+chatID, deliver, empty, open)
}

// ListenToUserConversations delivers the user's conversation list,
// newest activity first, on every change.
func (s *ChatService) ListenToUserConversations(userID string, cb func([]*models.Conversation)) func() {
	if userID == "" {
		s.log.Warnw("refusing conversation listener for empty user id")
		return realtime.NoopUnsubscribe()
	}
	deliver := func(ctx context.Context) error {
		convs, err := s.repo.ListForUser(ctx, userID)
		if err != nil {
			return err
		}
		cb(convs)
		return nil
	}
	empty := func() { cb([]*models.Conversation{}) }
	open := func(ctx context.Context) (realtime.Feed, error) {
		return s.repo.WatchUserConversations(ctx, userID)
	}
	return realtime.Subscribe(s.log, "chat.list:"+userID, deliver, empty, open)
}
