package transport

import (
	"context"
	"sync"

	"github.com/danmuck/framelink/internal/protocol"
)

// PipeEndpoint is one side of an in-memory transport pair.
type PipeEndpoint struct {
	name string
	in   *inbox

	mu     sync.RWMutex
	peer   *PipeEndpoint
	closed bool
}

var _ Transport = (*PipeEndpoint)(nil)

// NewPipe returns two connected endpoints. Messages sent remote from one are
// delivered to the other; local sends loop back on the sender.
func NewPipe() (host, frame *PipeEndpoint) {
	host = &PipeEndpoint{name: "host", in: newInbox()}
	frame = &PipeEndpoint{name: "frame", in: newInbox()}
	host.peer = frame
	frame.peer = host
	return host, frame
}

func (p *PipeEndpoint) Name() string {
	return p.name
}

func (p *PipeEndpoint) Send(ctx context.Context, raw []byte, target protocol.Target) error {
	if err := validTarget(target); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	closed, peer := p.closed, p.peer
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	dst := p
	if target == protocol.TargetRemote {
		dst = peer
	}
	// A closed peer simply loses the message.
	dst.in.push(clone(raw))
	return nil
}

func (p *PipeEndpoint) OnReceive(fn func(raw []byte)) func() {
	return p.in.subscribe(fn)
}

func (p *PipeEndpoint) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.in.close()
	return nil
}
