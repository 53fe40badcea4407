package mediator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/danmuck/framelink/internal/transport"
)

const testNS = "contentscripts"

// newPair wires a host and a frame mediator over an in-memory pipe.
func newPair(t *testing.T, opts ...Option) (host, frame *Mediator) {
	t.Helper()
	hostT, frameT := transport.NewPipe()
	t.Cleanup(func() {
		_ = hostT.Close()
		_ = frameT.Close()
	})
	host = mustStart(t, hostT, append([]Option{WithName("host")}, opts...)...)
	frame = mustStart(t, frameT, WithName("frame"))
	return host, frame
}

func mustStart(t *testing.T, tr transport.Transport, opts ...Option) *Mediator {
	t.Helper()
	m, err := New(tr, opts...)
	if err != nil {
		t.Fatalf("new mediator: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start mediator: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

// flush blocks until every message sent before it from sender has been
// dispatched on receiver. Delivery is ordered per endpoint.
func flush(t *testing.T, sender, receiver *Mediator, local bool) {
	t.Helper()
	done := make(chan struct{}, 1)
	id := receiver.On("flush", "flush", func(json.RawMessage) error {
		done <- struct{}{}
		return nil
	})
	defer receiver.Off("flush", "flush", id)

	msg := Message{NameSpace: "flush", Event: "flush"}
	var err error
	if local {
		err = sender.SendLocal(context.Background(), msg)
	} else {
		err = sender.Send(context.Background(), msg)
	}
	if err != nil {
		t.Fatalf("flush send: %v", err)
	}
	wait(t, done)
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
	var zero T
	return zero
}

type callResult struct {
	data json.RawMessage
	err  error
}

func callAsync(m *Mediator, ctx context.Context, msg Message) <-chan callResult {
	out := make(chan callResult, 1)
	go func() {
		data, err := m.Call(ctx, msg)
		out <- callResult{data: data, err: err}
	}()
	return out
}

// captureRequests records the message_id of every request frame receives on
// (testNS, event).
func captureRequests(t *testing.T, frame *Mediator, event string) <-chan string {
	t.Helper()
	ids := make(chan string, 16)
	frame.On(testNS, event, func(data json.RawMessage) error {
		var body struct {
			MessageID string `json:"message_id"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return err
		}
		ids <- body.MessageID
		return nil
	})
	return ids
}

func reply(t *testing.T, frame *Mediator, ns string, body map[string]any) {
	t.Helper()
	if err := frame.Send(context.Background(), Message{NameSpace: ns, Event: "datareturned", Data: body}); err != nil {
		t.Fatalf("send reply: %v", err)
	}
}

func waitPending(t *testing.T, m *Mediator, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(m.Pending()) == n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("pending=%d want=%d", len(m.Pending()), n)
}
