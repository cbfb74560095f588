package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/voyora/messaging-service/internal/models"
	"github.com/voyora/messaging-service/internal/repository"
)

// Consumer drains raw notification events produced by the other
// services (likes, comments, follows) into the notification store,
// where the aggregator reads them.
type Consumer struct {
	reader        *kafka.Reader
	notifications repository.NotificationRepo
	log           *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID string, notifications repository.NotificationRepo, log *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, notifications: notifications, log: log}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warnw("kafka read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		var n models.Notification
		if err := json.Unmarshal(m.Value, &n); err != nil {
			c.log.Warnw("drop undecodable notification event", "offset", m.Offset, "error", err)
			continue
		}
		if n.UserID == "" || n.Type == "" || n.TargetID == "" || n.ActorID == "" {
			c.log.Warnw("drop incomplete notification event", "offset", m.Offset)
			continue
		}
		if _, err := c.notifications.Insert(ctx, &n); err != nil {
			c.log.Errorw("store notification", "user_id", n.UserID, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
