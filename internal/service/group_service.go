package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voyora/messaging-service/internal/apperr"
	"github.com/voyora/messaging-service/internal/kafka"
	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/realtime"
	"github.com/voyora/messaging-service/internal/repository"
)

// GroupService fronts multi-party chats.
type GroupService struct {
	repo repository.GroupRepo
	prod *kafka.Producer
	log  *zap.SugaredLogger
}

func NewGroupService(repo repository.GroupRepo, prod *kafka.Producer, log *zap.SugaredLogger) *GroupService {
	return &GroupService{repo: repo, prod: prod, log: log}
}

func (s *GroupService) CreateGroup(ctx context.Context, creatorID, name, image string, initialMembers []string) (*models.Group, error) {
	if creatorID == "" || name == "" {
		return nil, fmt.Errorf("%w: creator_id and name required", apperr.ErrInvalidArgument)
	}
	return s.repo.Create(ctx, creatorID, name, image, initialMembers)
}

func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.Get(ctx, groupID)
}

func (s *GroupService) AddMembers(ctx context.Context, groupID string, newMembers []string) error {
	if groupID == "" || len(newMembers) == 0 {
		return fmt.Errorf("%w: group_id and members required", apperr.ErrInvalidArgument)
	}
	return s.repo.AddMembers(ctx, groupID, newMembers)
}

// RemoveMember takes userID out of the group. Removing the sole admin
// is rejected with ErrLastAdmin and leaves the group unchanged.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	if groupID == "" || userID == "" {
		return fmt.Errorf("%w: group_id and user_id required", apperr.ErrInvalidArgument)
	}
	err := s.repo.RemoveMember(ctx, groupID, userID)
	if errors.Is(err, apperr.ErrLastAdmin) {
		s.log.Warnw("refused removal of last admin", "group_id", groupID, "user_id", userID)
	}
	return err
}

func (s *GroupService) UpdateGroupInfo(ctx context.Context, groupID, name, image string) error {
	if groupID == "" {
		return fmt.Errorf("%w: group_id required", apperr.ErrInvalidArgument)
	}
	if name == "" && image == "" {
		return fmt.Errorf("%w: nothing to update", apperr.ErrInvalidArgument)
	}
	return s.repo.UpdateInfo(ctx, groupID, name, image)
}

func (s *GroupService) SendGroupMessage(ctx context.Context, groupID, senderID, senderName, text string) (*models.GroupMessage, error) {
	if groupID == "" || senderID == "" || text == "" {
		return nil, fmt.Errorf("%w: group_id, sender_id and text required", apperr.ErrInvalidArgument)
	}
	msg, err := s.repo.SendMessage(ctx, groupID, senderID, senderName, text)
	if err != nil {
		return nil, err
	}
	if s.prod != nil {
		if err := s.prod.Publish(ctx, groupID, map[string]any{
			"event":   "group.message.new",
			"message": msg,
		}); err != nil {
			s.log.Warnw("publish group.message.new", "group_id", groupID, "error", err)
		}
	}
	return msg, nil
}

// MarkGroupRead zeroes the caller's unread counter. This is a UX
// signal, not a correctness-critical write: failures are logged and
// swallowed.
func (s *GroupService) MarkGroupRead(ctx context.Context, groupID, userID string) {
	if groupID == "" || userID == "" {
		s.log.Warnw("mark group read with missing ids", "group_id", groupID, "user_id", userID)
		return
	}
	if err := s.repo.MarkRead(ctx, groupID, userID); err != nil {
		s.log.Warnw("mark group read failed", "group_id", groupID, "user_id", userID, "error", err)
	}
}

func (s *GroupService) ListGroupMessages(ctx context.Context, groupID string, limit int64, before time.Time) ([]*models.GroupMessage, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.ListMessages(ctx, groupID, limit, before)
}

func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id required", apperr.ErrInvalidArgument)
	}
	return s.repo.ListForUser(ctx, userID)
}

// ListenToGroupMessages refuses to attach to an empty group id: that is
// a programming error upstream, not a condition worth retrying.
func (s *GroupService) ListenToGroupMessages(groupID string, cb func([]*models.GroupMessage)) func() {
	if groupID == "" {
		s.log.Warnw("refusing message listener for empty group id")
		return realtime.NoopUnsubscribe()
	}
	deliver := func(ctx context.Context) error {
		msgs, err := s.repo.ListMessages(ctx, groupID, 0, time.Time{})
		if err != nil {
			return err
		}
		cb(msgs)
		return nil
	}
	empty := func() { cb([]*models.GroupMessage{}) }
	open := func(ctx context.Context) (realtime.Feed, error) {
		return s.repo.WatchMessages(ctx, groupID)
	}
	return realtime.Subscribe(s.log, "group.messages:"+groupID, deliver, empty, open)
}

func (s *GroupService) ListenToUserGroups(userID string, cb func([]*models.Group)) func() {
	if userID == "" {
		s.log.Warnw("refusing group listener for empty user id")
		return realtime.NoopUnsubscribe()
	}
	deliver := func(ctx context.Context) error {
		groups, err := s.repo.ListForUser(ctx, userID)
		if err != nil {
			return err
		}
		cb(groups)
		return nil
	}
	empty := func() { cb([]*models.Group{}) }
	open := func(ctx context.Context) (realtime.Feed, error) {
		return s.repo.WatchUserGroups(ctx, userID)
	}
	return realtime.Subscribe(s.log, "group.list:"+userID, deliver, empty, open)
}
