package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mrlokans/readquest/internal/entities"
	"github.com/mrlokans/readquest/internal/logger"
)

const defaultChannelPrefix = "readquest:notifications"

// RedisMessage is the JSON body published for each delivered notification.
type RedisMessage struct {
	ID        uint                      `json:"id"`
	Ref       string                    `json:"ref"`
	AccountID uint                      `json:"account_id"`
	Type      entities.NotificationType `json:"type"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message,omitempty"`
	Payload   json.RawMessage           `json:"payload,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
}

// RedisDeliverer publishes notifications on a per-account pub/sub channel,
// "<prefix>:<account id>". Subscribers such as a push gateway fan them out.
type RedisDeliverer struct {
	rdb    *goredis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisDeliverer connects to addr and verifies the connection with a PING.
func NewRedisDeliverer(ctx context.Context, addr, prefix string, log *logger.Logger) (*RedisDeliverer, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisDeliverer(rdb, prefix, log), nil
}

func newRedisDeliverer(rdb *goredis.Client, prefix string, log *logger.Logger) *RedisDeliverer {
	if log == nil {
		log = logger.NewNop()
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisDeliverer{rdb: rdb, prefix: prefix, log: log.With("component", "redis_delivery")}
}

// Channel returns the channel notifications for accountID are published on.
func (d *RedisDeliverer) Channel(accountID uint) string {
	return fmt.Sprintf("%s:%d", d.prefix, accountID)
}

func (d *RedisDeliverer) Deliver(ctx context.Context, n *entities.Notification) error {
	raw, err := json.Marshal(newRedisMessage(n))
	if err != nil {
		return fmt.Errorf("encode notification %d: %w", n.ID, err)
	}
	receivers, err := d.rdb.Publish(ctx, d.Channel(n.AccountID), raw).Result()
	if err != nil {
		return fmt.Errorf("publish notification %d: %w", n.ID, err)
	}
	d.log.Debug("notification published", "notification_id", n.ID, "receivers", receivers)
	return nil
}

func (d *RedisDeliverer) Close() error {
	return d.rdb.Close()
}

func newRedisMessage(n *entities.Notification) RedisMessage {
	msg := RedisMessage{
		ID:        n.ID,
		Ref:       n.Ref,
		AccountID: n.AccountID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
	// Payload is stored as JSON text; anything else would corrupt the message.
	if n.Payload != "" && json.Valid([]byte(n.Payload)) {
		msg.Payload = json.RawMessage(n.Payload)
	}
	return msg
}
