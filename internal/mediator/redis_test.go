package mediator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/danmuck/framelink/internal/testutil/testlog"
	"github.com/danmuck/framelink/internal/transport"
)

func TestCallOverRedis(t *testing.T) {
	testlog.Start(t)
	srv := miniredis.RunT(t)
	client, err := transport.ConnectRedis(srv.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hostT, err := transport.NewRedis(ctx, client, transport.RedisConfig{Prefix: "calls", Side: "host", Peer: "frame"})
	if err != nil {
		t.Fatalf("host transport: %v", err)
	}
	t.Cleanup(func() { _ = hostT.Close() })
	frameT, err := transport.NewRedis(ctx, client, transport.RedisConfig{Prefix: "calls", Side: "frame", Peer: "host"})
	if err != nil {
		t.Fatalf("frame transport: %v", err)
	}
	t.Cleanup(func() { _ = frameT.Close() })

	host := mustStart(t, hostT, WithName("host"))
	frame := mustStart(t, frameT, WithName("frame"))
	frame.Respond(testNS, "getData", func(_ context.Context, data json.RawMessage) (any, error) {
		var req map[string]any
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return map[string]any{"echo": req["q"]}, nil
	})

	out, err := host.Call(ctx, Message{NameSpace: testNS, Event: "getData", Data: map[string]string{"q": "x"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(out) != `{"echo":"x"}` {
		t.Fatalf("unexpected reply data: %s", out)
	}
	if n := len(host.Pending()); n != 0 {
		t.Fatalf("expected no pending calls, got %d", n)
	}
}
