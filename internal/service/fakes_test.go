package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voyora/messaging-service/internal/apperr"
	"github.com/voyora/messaging-service/internal/chatid"
	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/realtime"
)

var errWatchUnsupported = errors.New("watch not supported in fake")

// fakeConversationRepo mirrors the store's transactional semantics with
// one mutex: an operation either applies completely or not at all.
type fakeConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*models.Conversation
	msgs  map[string][]*models.Message

	failSummary bool // inject a fault in the projection write
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		convs: map[string]*models.Conversation{},
		msgs:  map[string][]*models.Message{},
	}
}

func (f *fakeConversationRepo) GetOrCreate(ctx context.Context, idA, idB string) (*models.Conversation, error) {
	chatID, err := chatid.Build(idA, idB)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.convs[chatID]; ok {
		return c, nil
	}
	members, _ := chatid.Members(chatID)
	now := time.Now().UTC()
	c := &models.Conversation{ID: chatID, Members: members, CreatedAt: now, UpdatedAt: now}
	f.convs[chatID] = c
	return c, nil
}

func (f *fakeConversationRepo) Get(ctx context.Context, chatID string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[chatID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return c, nil
}

func (f *fakeConversationRepo) SendMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[chatID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	member := false
	for _, m := range c.Members {
		if m == senderID {
			member = true
		}
	}
	if !member {
		return nil, apperr.ErrNotAMember
	}
	if f.failSummary {
		// all-or-nothing: nothing is stored when any write fails
		return nil, apperr.ErrTransport
	}
	msg := &models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		SeenBy:    []string{senderID},
		CreatedAt: time.Now().UTC(),
	}
	f.msgs[chatID] = append(f.msgs[chatID], msg)
	c.LastMessage = &models.LastMessage{Text: text, SenderID: senderID, CreatedAt: msg.CreatedAt}
	c.UpdatedAt = msg.CreatedAt
	return msg, nil
}

func (f *fakeConversationRepo) MarkMessageSeen(ctx context.Context, chatID, messageID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs[chatID] {
		if m.ID == messageID {
			for _, u := range m.SeenBy {
				if u == userID {
					return nil
				}
			}
			m.SeenBy = append(m.SeenBy, userID)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeConversationRepo) ListMessages(ctx context.Context, chatID string, limit int64, before time.Time) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Message, len(f.msgs[chatID]))
	copy(out, f.msgs[chatID])
	return out, nil
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.convs {
		for _, m := range c.Members {
			if m == userID {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeConversationRepo) WatchMessages(ctx context.Context, chatID string) (realtime.Feed, error) {
	return nil, errWatchUnsupported
}

func (f *fakeConversationRepo) WatchUserConversations(ctx context.Context, userID string) (realtime.Feed, error) {
	return nil, errWatchUnsupported
}

// fakeGroupRepo serializes every operation with one mutex, matching the
// all-or-nothing transaction the mongo implementation runs.
type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*models.Group
	msgs   map[string][]*models.GroupMessage

	failMarkRead bool
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups: map[string]*models.Group{},
		msgs:   map[string][]*models.GroupMessage{},
	}
}

func (f *fakeGroupRepo) Create(ctx context.Context, creatorID, name, image string, initialMembers []string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.groups[g.ID] = g
	return g, nil
}

func (f *fakeGroupRepo) Get(ctx context.Context, groupID string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return g, nil
}

func (f *fakeGroupRepo) AddMembers(ctx context.Context, groupID string, newMembers []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return apperr.ErrNotFound
	}
	for _, m := range newMembers {
		if !g.HasMember(m) {
			g.Members = append(g.Members, m)
		}
	}
	return nil
}

func (f *fakeGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return apperr.ErrNotFound
	}
	if g.SoleAdmin(userID) {
		return apperr.ErrLastAdmin
	}
	g.Members = remove(g.Members, userID)
	g.Admins = remove(g.Admins, userID)
	delete(g.UnreadCounts, userID)
	return nil
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeGroupRepo) UpdateInfo(ctx context.Context, groupID, name, image string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return apperr.ErrNotFound
	}
	if name != "" {
		g.Name = name
	}
	if image != "" {
		g.Image = image
	}
	return nil
}

func (f *fakeGroupRepo) SendMessage(ctx context.Context, groupID, senderID, senderName, text string) (*models.GroupMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if !g.HasMember(senderID) {
		return nil, apperr.ErrNotAMember
	}
	g.UnreadCounts = models.NextUnreadCounts(g.Members, g.UnreadCounts, senderID)
	msg := &models.GroupMessage{
		ID:         uuid.NewString(),
		GroupID:    groupID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	f.msgs[groupID] = append(f.msgs[groupID], msg)
	g.LastMessage = text
	g.LastMessageAt = msg.CreatedAt
	g.LastSenderID = senderID
	return msg, nil
}

func (f *fakeGroupRepo) MarkRead(ctx context.Context, groupID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkRead {
		return apperr.ErrTransport
	}
	g, ok := f.groups[groupID]
	if !ok {
		return apperr.ErrNotFound
	}
	g.UnreadCounts[userID] = 0
	return nil
}

func (f *fakeGroupRepo) ListMessages(ctx context.Context, groupID string, limit int64, before time.Time) ([]*models.GroupMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.GroupMessage, len(f.msgs[groupID]))
	copy(out, f.msgs[groupID])
	return out, nil
}

func (f *fakeGroupRepo) ListForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Group
	for _, g := range f.groups {
		if g.HasMember(userID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) WatchMessages(ctx context.Context, groupID string) (realtime.Feed, error) {
	return nil, errWatchUnsupported
}

func (f *fakeGroupRepo) WatchUserGroups(ctx context.Context, userID string) (realtime.Feed, error) {
	return nil, errWatchUnsupported
}
