package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/voyora/messaging-service/internal/cache"
	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/service"
)

// Hub bridges the subscription layer to websocket clients. Each
// connected client gets standing listeners on its conversation list,
// group list and notification digest, plus per-chat message streams on
// demand. Every listener's disposer is invoked on disconnect.
type Hub struct {
	chats    *service.ChatService
	groups   *service.GroupService
	notifs   *service.NotificationService
	presence *cache.Client
	log      *zap.SugaredLogger

	mu      sync.Mutex
	clients map[*Client]bool
}

func NewHub(chats *service.ChatService, groups *service.GroupService, notifs *service.NotificationService, presence *cache.Client, log *zap.SugaredLogger) *Hub {
	return &Hub{
		chats:    chats,
		groups:   groups,
		notifs:   notifs,
		presence: presence,
		log:      log,
		clients:  make(map[*Client]bool),
	}
}

// envelope frames every push to the client.
type envelope struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
	Data    any    `json:"data"`
}

// command is what clients send upstream.
type command struct {
	Action  string `json:"action"`
	ChatID  string `json:"chat_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
}

// HandleConn serves one websocket connection until it drops. The auth
// middleware has already placed the user id in the locals.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	uid, _ := conn.Locals("user_id").(string)
	if uid == "" {
		_ = conn.Close()
		return
	}

	client := &Client{
		UserID: uid,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		unsubs: make(map[string]func()),
	}

	h.register(client)
	defer h.unregister(client)

	go client.writePump()
	client.attachBaseStreams()
	client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.SetPresence(context.Background(), c.UserID, true); err != nil {
			h.log.Warnw("set presence", "user_id", c.UserID, "error", err)
		}
	}
	h.log.Infow("client connected", "user_id", c.UserID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.teardown()
	if h.presence != nil {
		if err := h.presence.SetPresence(context.Background(), c.UserID, false); err != nil {
			h.log.Warnw("clear presence", "user_id", c.UserID, "error", err)
		}
	}
	h.log.Infow("client disconnected", "user_id", c.UserID)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		c.teardown()
		_ = c.conn.Close()
	}
}

// attachBaseStreams starts the per-user listeners every client gets.
func (c *Client) attachBaseStreams() {
	c.addStream("conversations", c.hub.chats.ListenToUserConversations(c.UserID, func(convs []*models.Conversation) {
		c.push(envelope{Type: "conversations", Data: convs})
	}))
	c.addStream("groups", c.hub.groups.ListenToUserGroups(c.UserID, func(groups []*models.Group) {
		c.push(envelope{Type: "groups", Data: groups})
	}))
	c.addStream("notifications", c.hub.notifs.ListenToNotifications(c.UserID, func(aggs []*models.AggregatedNotification) {
		c.push(envelope{Type: "notifications", Data: aggs})
	}))
}

func (c *Client) handleCommand(raw []byte) {
	var cmd command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.hub.log.Warnw("drop undecodable ws command", "user_id", c.UserID, "error", err)
		return
	}

	switch cmd.Action {
	case "subscribe_chat":
		c.addStream("chat:"+cmd.ChatID, c.hub.chats.ListenToMessages(cmd.ChatID, func(msgs []*models.Message) {
			c.push(envelope{Type: "chat_messages", ChatID: cmd.ChatID, Data: msgs})
		}))
	case "unsubscribe_chat":
		c.dropStream("chat:" + cmd.ChatID)
	case "subscribe_group":
		c.addStream("group:"+cmd.GroupID, c.hub.groups.ListenToGroupMessages(cmd.GroupID, func(msgs []*models.GroupMessage) {
			c.push(envelope{Type: "group_messages", GroupID: cmd.GroupID, Data: msgs})
		}))
	case "unsubscribe_group":
		c.dropStream("group:" + cmd.GroupID)
	default:
		c.hub.log.Warnw("unknown ws action", "user_id", c.UserID, "action", cmd.Action)
	}
}
