package transport

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/danmuck/framelink/internal/protocol"
	"github.com/danmuck/framelink/internal/testutil/testlog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const envRedisURL = "FRAMELINK_TEST_REDIS_URL"

// testRedisURL prefers a live server from the environment and falls back to
// an in-process miniredis.
func testRedisURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv(envRedisURL); url != "" {
		return url
	}
	return miniredis.RunT(t).Addr()
}

func TestRedisConfigValidation(t *testing.T) {
	testlog.Start(t)
	client, err := ConnectRedis("127.0.0.1:6379")
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedis(context.Background(), client, RedisConfig{Side: "host"})
	require.ErrorIs(t, err, ErrRedisSideRequired)
	_, err = NewRedis(context.Background(), client, RedisConfig{Side: "host", Peer: "host"})
	require.ErrorIs(t, err, ErrRedisSameSide)

	require.Equal(t, "framelink:host", RedisConfig{}.channel("host"))
	require.Equal(t, "app:frame", RedisConfig{Prefix: "app"}.channel("frame"))
}

func TestConnectRedisParsesURL(t *testing.T) {
	testlog.Start(t)
	client, err := ConnectRedis("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, "localhost:6380", client.Options().Addr)
	require.Equal(t, 2, client.Options().DB)

	_, err = ConnectRedis("redis://%zz")
	require.Error(t, err)
}

func TestRedisPubSubRoundTrip(t *testing.T) {
	testlog.Start(t)
	url := testRedisURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ConnectRedis(url)
	require.NoError(t, err)
	defer client.Close()

	prefix := "framelink-test-" + uuid.NewString()
	host, err := NewRedis(ctx, client, RedisConfig{Prefix: prefix, Side: "host", Peer: "frame"})
	require.NoError(t, err)
	defer host.Close()
	frame, err := NewRedis(ctx, client, RedisConfig{Prefix: prefix, Side: "frame", Peer: "host"})
	require.NoError(t, err)
	defer frame.Close()

	toFrame := collect(t, frame, 2)
	require.NoError(t, host.Send(ctx, []byte("a"), protocol.TargetRemote))
	require.NoError(t, host.Send(ctx, []byte("b"), protocol.TargetRemote))
	require.Equal(t, []string{"a", "b"}, waitFor(t, toFrame))

	toSelf := collect(t, host, 1)
	require.NoError(t, host.Send(ctx, []byte("self"), protocol.TargetLocal))
	require.Equal(t, []string{"self"}, waitFor(t, toSelf))
}
