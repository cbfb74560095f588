package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voyora/messaging-service/internal/apperr"
	"github.com/voyora/messaging-service/internal/kafka"
	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/realtime"
	"github.com/voyora/messaging-service/internal/repository"
)

// NotificationService stores raw notification events and serves them
// aggregated into display units.
type NotificationService struct {
	repo repository.NotificationRepo
	prod *kafka.Producer
	log  *zap.SugaredLogger
}

func NewNotificationService(repo repository.NotificationRepo, prod *kafka.Producer, log *zap.SugaredLogger) *NotificationService {
	return &NotificationService{repo: repo, prod: prod, log: log}
}

func (s *NotificationService) Record(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.UserID == "" || n.Type == "" || n.TargetID == "" || n.ActorID == "" {
		return nil, fmt.Errorf("%w: user_id, type, target_id and actor_id required", apperr.ErrInvalidArgument)
	}
	stored, err := s.repo.Insert(ctx, n)
	if err != nil {
		return nil, err
	}
	if s.prod != nil {
		if err := s.prod.Publish(ctx, stored.UserID, map[string]any{
			"event":        "notification.new",
			"notification": stored,
		}); err != nil {
			s.log.Warnw("publish notification.new", "user_id", stored.UserID, "error", err)
		}
	}
	return stored, nil
}

// ListAggregated returns the user's notifications folded per
// (type, target), newest group first.
func (s *NotificationService) ListAggregated(ctx context.Context, userID string) ([]*models.AggregatedNotification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id required", apperr.ErrInvalidArgument)
	}
	raw, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Aggregate(raw), nil
}

// MarkAllRead flips every unread record for the user. Idempotent, so
// the UI may call it on every screen focus.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.MarkAllRead(ctx, userID)
}

// ListenToNotifications delivers the aggregated digest on every change.
func (s *NotificationService) ListenToNotifications(userID string, cb func([]*models.AggregatedNotification)) func() {
	if userID == "" {
		s.log.Warnw("refusing notification listener for empty user id")
		return realtime.NoopUnsubscribe()
	}
	deliver := func(ctx context.Context) error {
		raw, err := s.repo.ListForUser(ctx, userID)
		if err != nil {
			return err
		}
		cb(Aggregate(raw))
		return nil
	}
	empty := func() { cb([]*models.AggregatedNotification{}) }
	open := func(ctx context.Context) (realtime.Feed, error) {
		return s.repo.WatchUserNotifications(ctx, userID)
	}
	return realtime.Subscribe(s.log, "notifications:"+userID, deliver, empty, open)
}
