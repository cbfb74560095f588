package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	recentLimit = 99
	recentTTL   = 24 * time.Hour
)

// Client caches hot messaging state in Redis: the recent-message list
// per conversation and user presence flags. Everything here is
// best-effort; the store of record is MongoDB.
type Client struct {
	cli *redis.Client
	log *zap.SugaredLogger
}

func New(addr, password string, db int, log *zap.SugaredLogger) (*Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: r, log: log}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// PushRecent prepends a serialized message to the conversation's recent
// list, keeping the newest hundred around for a day.
func (c *Client) PushRecent(ctx context.Context, chatID string, payload []byte) {
	key := "chat:" + chatID + ":recent"
	if err := c.cli.LPush(ctx, key, payload).Err(); err != nil {
		c.log.Warnw("cache push failed", "chat_id", chatID, "error", err)
		return
	}
	_ = c.cli.LTrim(ctx, key, 0, recentLimit).Err()
	_ = c.cli.Expire(ctx, key, recentTTL).Err()
}

// Recent returns up to n cached messages, newest first.
func (c *Client) Recent(ctx context.Context, chatID string, n int64) ([]string, error) {
	key := "chat:" + chatID + ":recent"
	return c.cli.LRange(ctx, key, 0, n-1).Result()
}

func (c *Client) SetPresence(ctx context.Context, userID string, online bool) error {
	val := "0"
	if online {
		val = "1"
	}
	return c.cli.Set(ctx, "presence:"+userID, val, 0).Err()
}

func (c *Client) GetPresence(ctx context.Context, userID string) (bool, error) {
	s, err := c.cli.Get(ctx, "presence:"+userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s == "1", nil
}
