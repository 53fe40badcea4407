package mediator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danmuck/framelink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// ResponderFunc answers one correlated call. ctx is cancelled when the
// mediator stops.
type ResponderFunc func(ctx context.Context, data json.RawMessage) (any, error)

// Respond serves correlated calls for (nameSpace, event). Each request that
// carries a message_id gets exactly one reply on the reserved reply event:
// success with fn's result, or failure with {"message": err.Error()}. A
// *RemoteError returned by fn is relayed with its own payload. Requests
// without a message_id are plain events and get no reply.
func (m *Mediator) Respond(nameSpace, event string, fn ResponderFunc) HandlerID {
	if fn == nil {
		return 0
	}
	return m.On(nameSpace, event, func(data json.RawMessage) error {
		id, ok := protocol.MessageID(data)
		if !ok {
			return nil
		}
		result, err := m.answer(fn, data)
		reply, buildErr := buildReply(id, result, err)
		if buildErr != nil {
			log.Warn().
				Str("mediator", m.name).
				Str("ns", nameSpace).
				Str("event", event).
				Str("message_id", id).
				Err(buildErr).
				Msg("responder result not encodable")
			reply, _ = protocol.FailureReply(id, errorPayload(buildErr))
		}
		return m.Send(m.ctx, Message{NameSpace: nameSpace, Event: protocol.EventDataReturned, Data: reply})
	})
}

func (m *Mediator) answer(fn ResponderFunc, data json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("responder panic: %v", r)
		}
	}()
	return fn(m.ctx, data)
}

func buildReply(id string, result any, err error) (protocol.Reply, error) {
	if err == nil {
		return protocol.SuccessReply(id, result)
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		if len(remote.Payload) == 0 {
			return protocol.FailureReply(id, nil)
		}
		return protocol.FailureReply(id, remote.Payload)
	}
	return protocol.FailureReply(id, errorPayload(err))
}

func errorPayload(err error) map[string]string {
	return map[string]string{"message": err.Error()}
}
