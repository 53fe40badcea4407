package mediator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/internal/protocol"
	"github.com/danmuck/framelink/internal/transport"
	"github.com/rs/zerolog/log"
)

var (
	ErrTransportRequired = errors.New("mediator: transport required")
	ErrNotStarted        = errors.New("mediator: not started")
	ErrStopped           = errors.New("mediator: stopped")
	ErrReservedEvent     = errors.New("mediator: event name is reserved for replies")
)

// Message is what callers hand to Send, SendLocal and Call.
type Message struct {
	NameSpace string
	Event     string
	Data      any
}

type Option func(*Mediator)

// WithName labels log lines and metrics for this mediator.
func WithName(name string) Option {
	return func(m *Mediator) {
		if v := strings.TrimSpace(name); v != "" {
			m.name = v
		}
	}
}

// WithCallTimeout bounds every Call. Zero leaves calls unbounded unless the
// caller's context says otherwise.
func WithCallTimeout(d time.Duration) Option {
	return func(m *Mediator) {
		if d > 0 {
			m.callTimeout = d
		}
	}
}

// Mediator exchanges envelopes with exactly one remote context over one
// Transport.
type Mediator struct {
	name        string
	transport   transport.Transport
	registry    *Registry
	pending     *PendingCalls
	callTimeout time.Duration

	routeMu sync.Mutex
	routers map[string]HandlerID

	lifeMu      sync.Mutex
	started     bool
	stopped     bool
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
}

func New(t transport.Transport, opts ...Option) (*Mediator, error) {
	if t == nil {
		return nil, ErrTransportRequired
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mediator{
		name:      "mediator",
		transport: t,
		registry:  NewRegistry(),
		pending:   NewPendingCalls(),
		routers:   make(map[string]HandlerID),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Mediator) Name() string {
	return m.name
}

// Start subscribes the dispatcher to the transport. Calling it again while
// running is a no-op; a stopped mediator cannot be restarted.
func (m *Mediator) Start() error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.stopped {
		return ErrStopped
	}
	if m.started {
		return nil
	}
	m.unsubscribe = m.transport.OnReceive(m.dispatch)
	m.started = true
	log.Debug().Str("mediator", m.name).Msg("mediator started")
	return nil
}

// Stop unsubscribes the dispatcher and fails every pending call with
// ErrStopped. The transport is left open for its owner to close.
//
// A message already handed to the dispatcher when Stop runs invokes no
// further handlers once Stop returns, but a handler that had already started
// may still be running. Stop does not wait for it, so a handler may call Stop.
func (m *Mediator) Stop() {
	m.lifeMu.Lock()
	if m.stopped {
		m.lifeMu.Unlock()
		return
	}
	m.stopped = true
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.cancel()
	m.lifeMu.Unlock()

	m.routeMu.Lock()
	entries := m.pending.drain()
	for ns := range m.routers {
		m.unroute(ns)
	}
	m.routeMu.Unlock()

	for _, e := range entries {
		e.settle <- settlement{err: ErrStopped}
	}
	observability.SetPendingCalls(m.name, 0)
	log.Debug().
		Str("mediator", m.name).
		Int("failed_pending", len(entries)).
		Msg("mediator stopped")
}

func (m *Mediator) halted() bool {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	return m.stopped
}

func (m *Mediator) running() error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	switch {
	case m.stopped:
		return ErrStopped
	case !m.started:
		return ErrNotStarted
	default:
		return nil
	}
}

// On registers h for (nameSpace, event). The reserved reply event is refused.
func (m *Mediator) On(nameSpace, event string, h Handler) HandlerID {
	if event == protocol.EventDataReturned {
		log.Warn().
			Str("mediator", m.name).
			Str("ns", nameSpace).
			Msg("refusing handler on reserved reply event")
		return 0
	}
	return m.registry.Register(nameSpace, event, h)
}

// Off removes one registration made through On or Respond.
func (m *Mediator) Off(nameSpace, event string, id HandlerID) bool {
	if event == protocol.EventDataReturned {
		return false
	}
	return m.registry.Remove(nameSpace, event, id)
}

// OffAll clears every handler for (nameSpace, event).
func (m *Mediator) OffAll(nameSpace, event string) {
	if event == protocol.EventDataReturned {
		return
	}
	m.registry.RemoveAll(nameSpace, event)
}

// Registry exposes the handler registry for inspection.
func (m *Mediator) Registry() *Registry {
	return m.registry
}

// Pending lists calls still awaiting a reply, oldest first.
func (m *Mediator) Pending() []PendingCall {
	return m.pending.List()
}

// Send delivers msg to the remote context. Nothing confirms receipt.
func (m *Mediator) Send(ctx context.Context, msg Message) error {
	return m.send(ctx, msg, protocol.TargetRemote)
}

// SendLocal delivers msg back to this context's own dispatcher.
func (m *Mediator) SendLocal(ctx context.Context, msg Message) error {
	return m.send(ctx, msg, protocol.TargetLocal)
}

func (m *Mediator) send(ctx context.Context, msg Message, target protocol.Target) error {
	raw, err := protocol.EncodeEnvelope(msg.NameSpace, msg.Event, msg.Data)
	if err != nil {
		return err
	}
	if err := m.transport.Send(ctx, raw, target); err != nil {
		observability.RecordSend(m.name, string(target), false)
		return fmt.Errorf("mediator: send %s/%s: %w", msg.NameSpace, msg.Event, err)
	}
	observability.RecordSend(m.name, string(target), true)
	return nil
}
