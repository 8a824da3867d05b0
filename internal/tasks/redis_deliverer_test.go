package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readquest/internal/entities"
)

func TestRedisDeliverer_Channel(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "readquest:notifications:7"},
		{"family", "family:7"},
		{"family:", "family:7"},
	}
	for _, tt := range tests {
		d := newRedisDeliverer(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}), tt.prefix, nil)
		assert.Equal(t, tt.want, d.Channel(7))
		require.NoError(t, d.Close())
	}
}

func TestNewRedisMessage(t *testing.T) {
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	n := &entities.Notification{
		ID: 3, Ref: "ref-3", AccountID: 7, Type: entities.NotificationRewardRedeemed,
		Title: "Reward redeemed", Payload: `{"reward_id":2}`, CreatedAt: created,
	}

	raw, err := json.Marshal(newRedisMessage(n))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ref-3", decoded["ref"])
	assert.Equal(t, "reward_redeemed", decoded["type"])
	assert.Equal(t, map[string]any{"reward_id": float64(2)}, decoded["payload"])

	n.Payload = "not json"
	assert.Nil(t, newRedisMessage(n).Payload)
}

func TestRedisDeliverer_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisDeliverer(ctx, "", "", nil)
	require.Error(t, err)

	_, err = NewRedisDeliverer(ctx, "127.0.0.1:1", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")

	d := newRedisDeliverer(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), "", nil)
	defer d.Close()
	err = d.Deliver(ctx, &entities.Notification{ID: 1, AccountID: 7, Type: entities.NotificationPointsEarned})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish notification 1")
}
