package mediator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrRemoteFailure = errors.New("mediator: remote call failed")

// RemoteError is a failure reply. Payload is the reply's err value, or nil
// when the remote gave no recognizable failure detail.
type RemoteError struct {
	Payload json.RawMessage
}

func (e *RemoteError) Error() string {
	if len(e.Payload) == 0 {
		return ErrRemoteFailure.Error()
	}
	return ErrRemoteFailure.Error() + ": " + string(e.Payload)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteFailure
}

const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeCancelled = "cancelled"
	outcomeStopped   = "stopped"
	outcomeSendError = "send_error"
)

// Call sends msg to the remote context with a fresh message_id stamped into
// its data and waits for the matching reply on the reserved reply event.
// msg.Data must encode to a json object or be nil.
//
// Call returns when the reply arrives, when ctx is done, or when the mediator
// stops. With a background context and no call timeout it may wait forever.
func (m *Mediator) Call(ctx context.Context, msg Message) (json.RawMessage, error) {
	if err := m.running(); err != nil {
		return nil, err
	}
	if msg.Event == protocol.EventDataReturned {
		return nil, ErrReservedEvent
	}
	if msg.NameSpace == "" {
		return nil, protocol.ErrMissingNameSpace
	}
	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	payload, err := protocol.StampMessageID(msg.Data, id)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	entry := newPendingEntry(PendingCall{
		MessageID: id,
		NameSpace: msg.NameSpace,
		Event:     msg.Event,
		QueuedAt:  start,
	})
	if err := m.track(entry); err != nil {
		return nil, err
	}

	if err := m.Send(ctx, Message{NameSpace: msg.NameSpace, Event: msg.Event, Data: payload}); err != nil {
		if _, ok := m.release(msg.NameSpace, id); ok {
			observability.RecordCall(m.name, msg.NameSpace, outcomeSendError, time.Since(start))
			return nil, err
		}
		// Stop won the race and already settled the entry.
		res := <-entry.settle
		return res.data, res.err
	}

	select {
	case res := <-entry.settle:
		m.recordSettled(msg.NameSpace, res.err, start)
		return res.data, res.err
	case <-ctx.Done():
		if _, ok := m.release(msg.NameSpace, id); ok {
			observability.RecordCall(m.name, msg.NameSpace, outcomeCancelled, time.Since(start))
			log.Debug().
				Str("mediator", m.name).
				Str("ns", msg.NameSpace).
				Str("event", msg.Event).
				Str("message_id", id).
				Err(ctx.Err()).
				Msg("call abandoned before reply")
			return nil, ctx.Err()
		}
		res := <-entry.settle
		m.recordSettled(msg.NameSpace, res.err, start)
		return res.data, res.err
	}
}

func (m *Mediator) recordSettled(nameSpace string, err error, start time.Time) {
	outcome := outcomeSuccess
	switch {
	case errors.Is(err, ErrStopped):
		outcome = outcomeStopped
	case err != nil:
		outcome = outcomeFailure
	}
	observability.RecordCall(m.name, nameSpace, outcome, time.Since(start))
}

// track stores a pending call and, for the first one in its namespace,
// registers the namespace's reply router.
func (m *Mediator) track(e *pendingEntry) error {
	m.routeMu.Lock()
	defer m.routeMu.Unlock()
	if err := m.running(); err != nil {
		return err
	}
	if m.pending.add(e) {
		ns := e.NameSpace
		m.routers[ns] = m.registry.Register(ns, protocol.EventDataReturned, func(data json.RawMessage) error {
			m.routeReply(ns, data)
			return nil
		})
	}
	observability.SetPendingCalls(m.name, m.pending.Len())
	return nil
}

// release takes a pending call out of the table. When it was the last one in
// its namespace the reply router goes with it.
func (m *Mediator) release(nameSpace, id string) (*pendingEntry, bool) {
	m.routeMu.Lock()
	defer m.routeMu.Unlock()
	e, last, ok := m.pending.take(nameSpace, id)
	if !ok {
		return nil, false
	}
	if last {
		m.unroute(nameSpace)
	}
	observability.SetPendingCalls(m.name, m.pending.Len())
	return e, true
}

// unroute must be called with routeMu held. A router that is already gone is
// not an error.
func (m *Mediator) unroute(nameSpace string) {
	id := m.routers[nameSpace]
	delete(m.routers, nameSpace)
	if !m.registry.Remove(nameSpace, protocol.EventDataReturned, id) {
		log.Debug().
			Str("mediator", m.name).
			Str("ns", nameSpace).
			Msg("reply router already removed")
	}
}

// routeReply settles the pending call a reply belongs to. Replies for unknown
// or already settled ids are ignored.
func (m *Mediator) routeReply(nameSpace string, data json.RawMessage) {
	reply, ok := protocol.DecodeReply(data)
	if !ok {
		return
	}
	e, ok := m.release(nameSpace, reply.MessageID)
	if !ok {
		return
	}
	e.settle <- settle(reply)
}

func settle(reply protocol.Reply) settlement {
	switch {
	case reply.Status == protocol.StatusSuccess:
		return settlement{data: reply.Data}
	case reply.Status == protocol.StatusFailure && reply.HasErr():
		return settlement{err: &RemoteError{Payload: reply.Err}}
	default:
		return settlement{err: &RemoteError{}}
	}
}
