package transport

import (
	"context"
	"errors"

	"github.com/danmuck/framelink/internal/protocol"
)

var (
	ErrClosed        = errors.New("transport: closed")
	ErrInvalidTarget = errors.New("transport: invalid target")
)

// Transport delivers whole messages between the local and the remote context.
type Transport interface {
	// Send delivers raw to target. Delivery is fire-and-forget: a nil error
	// means the message left this side, not that anyone received it.
	Send(ctx context.Context, raw []byte, target protocol.Target) error
	// OnReceive subscribes fn to every inbound message on the local receive
	// channel. Registrations are not deduplicated. The returned func removes
	// this registration.
	OnReceive(fn func(raw []byte)) (unsubscribe func())
	Close() error
}

func validTarget(target protocol.Target) error {
	switch target {
	case protocol.TargetLocal, protocol.TargetRemote:
		return nil
	default:
		return ErrInvalidTarget
	}
}

func clone(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}
