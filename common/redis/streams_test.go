package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/iceplantengineering/paperplant/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *Client {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = Close(client) })
	return client
}

func TestPublishAndReadFromStream(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, Ping(ctx, client))
	require.NoError(t, CreateConsumerGroup(ctx, client, "alerts", "broadcaster"))
	// second call hits BUSYGROUP and must be tolerated
	require.NoError(t, CreateConsumerGroup(ctx, client, "alerts", "broadcaster"))

	id, err := PublishJSONToStream(ctx, client, "alerts", "alert.resolved", map[string]any{"log_id": 42})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := ReadFromStream(ctx, client, "alerts", "broadcaster", "c1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "alert.resolved", msgs[0].Values["type"])

	var payload map[string]int
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Data()), &payload))
	assert.Equal(t, 42, payload["log_id"])

	require.NoError(t, AckMessage(ctx, client, "alerts", "broadcaster", id))
}

func TestStreamMessage_DataMissing(t *testing.T) {
	msg := StreamMessage{Values: map[string]interface{}{"type": "x"}}
	assert.Equal(t, "", msg.Data())
}
