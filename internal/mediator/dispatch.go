package mediator

import (
	"fmt"

	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// dispatch is the single transport subscription of a started mediator.
func (m *Mediator) dispatch(raw []byte) {
	if m.halted() {
		return
	}
	in, ok := protocol.DecodeEnvelope(raw)
	if !ok {
		observability.RecordReceive(m.name, observability.DispositionForeign)
		return
	}
	handlers := m.registry.Handlers(in.NameSpace, in.Event)
	if len(handlers) == 0 {
		observability.RecordReceive(m.name, observability.DispositionUnhandled)
		return
	}
	observability.RecordReceive(m.name, observability.DispositionDispatched)
	for i, h := range handlers {
		if m.halted() {
			return
		}
		m.invoke(in, i, h)
	}
}

func (m *Mediator) invoke(in protocol.Inbound, index int, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordHandlerFailure(m.name, in.NameSpace, in.Event, observability.FailurePanic)
			log.Warn().
				Str("mediator", m.name).
				Str("ns", in.NameSpace).
				Str("event", in.Event).
				Int("handler", index).
				Str("panic", fmt.Sprint(r)).
				Msg("handler panicked")
		}
	}()
	if err := h(in.Data); err != nil {
		observability.RecordHandlerFailure(m.name, in.NameSpace, in.Event, observability.FailureError)
		log.Warn().
			Str("mediator", m.name).
			Str("ns", in.NameSpace).
			Str("event", in.Event).
			Int("handler", index).
			Err(err).
			Msg("handler failed")
	}
}
